package handle

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pylon/api/internal/flyer"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultMaxUpload = 10 << 20
)

type Handle struct {
	ext       flyer.Extractor
	log       *zap.SugaredLogger
	timeout   time.Duration
	maxUpload int64
}

func New(ext flyer.Extractor, log *zap.SugaredLogger, timeout time.Duration, maxUpload int64) *Handle {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handle{
		ext:       ext,
		log:       log,
		timeout:   timeout,
		maxUpload: maxUpload,
	}
}

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRaw sends an already encoded JSON body.
func writeRaw(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Detail: msg})
}
