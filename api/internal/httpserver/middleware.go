package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aidarkhanov/nanoid"
	"go.uber.org/zap"

	"pylon/api/internal/logger"
	"pylon/api/internal/metrics"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// statusRecorder captures the status code and stamps X-Process-Time
// right before the headers go out.
type statusRecorder struct {
	http.ResponseWriter
	start       time.Time
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.wroteHeader {
		return
	}
	s.wroteHeader = true
	s.status = code
	s.Header().Set("X-Process-Time", strconv.FormatFloat(time.Since(s.start).Seconds(), 'f', 6, 64))
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.WriteHeader(http.StatusOK)
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// Middleware tags each request with an id and a scoped logger, recovers panics,
// logs the end of the request and counts status codes.
func Middleware(next http.Handler, log *zap.SugaredLogger) http.Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID, _ := nanoid.Generate(idAlphabet, 28)
		reqID = "req_" + reqID
		reqLog := log.With("request_id", reqID, "method", r.Method, "path", r.URL.Path)

		rec := &statusRecorder{ResponseWriter: w, start: time.Now(), status: http.StatusOK}
		rec.Header().Set("X-Request-Id", reqID)
		inner := r.WithContext(logger.WithContext(r.Context(), reqLog))

		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				reqLog.Errorw("api panic", "error", fmt.Sprint(p))
				if !rec.wroteHeader {
					writeJSONError(rec, http.StatusInternalServerError, "internal server error")
				}
			}
			reqLog.Infow("end_of_request",
				"status_code", rec.status,
				"duration", time.Since(rec.start).String(),
			)
			metrics.ResponseCodes.WithLabelValues(routeLabel(inner), strconv.Itoa(rec.status)).Inc()
		}()

		next.ServeHTTP(rec, inner)
	})
}

// routeLabel keeps metric cardinality bounded by using the matched mux pattern.
func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, "{\"detail\":%q}\n", msg)
}
