package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pylon/api/internal/handle"
)

type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	log        *zap.SugaredLogger
}

// New registers the public routes on a fresh mux wrapped in the request middleware.
func New(addr string, h *handle.Handle, log *zap.SugaredLogger) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("POST /process-flyer/{$}", h.ProcessFlyer)
	mux.Handle("POST /process-flyer", http.RedirectHandler("/process-flyer/", http.StatusTemporaryRedirect))
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           Middleware(mux, log),
			ReadHeaderTimeout: 10 * time.Second,
			MaxHeaderBytes:    1 << 20, // 1 MB
		},
		mux: mux,
		log: log,
	}
}

// Handle registers an extra route, e.g. the Telegram webhook.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Run() error {
	s.log.Infow("listening", "address", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
