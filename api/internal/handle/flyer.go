package handle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"pylon/api/internal/flyer"
	"pylon/api/internal/logger"
	"pylon/api/internal/metrics"
)

// FileField is the multipart field carrying the flyer image.
const FileField = "file"

type ProcessResponse struct {
	Status      string          `json:"status"`
	Filename    string          `json:"filename"`
	ContentType string          `json:"content_type"`
	Info        json.RawMessage `json:"info"`
}

// encode builds the response body. Info is copied byte-for-byte, never re-encoded.
func (p ProcessResponse) encode() []byte {
	var b bytes.Buffer
	b.WriteString(`{"status":`)
	b.Write(jsonString(p.Status))
	b.WriteString(`,"filename":`)
	b.Write(jsonString(p.Filename))
	b.WriteString(`,"content_type":`)
	b.Write(jsonString(p.ContentType))
	b.WriteString(`,"info":`)
	if len(p.Info) == 0 {
		b.WriteString("null")
	} else {
		b.Write(p.Info)
	}
	b.WriteString("}\n")
	return b.Bytes()
}

func jsonString(s string) []byte {
	b, _ := json.Marshal(s)
	return b
}

// ProcessFlyer accepts one uploaded image and returns the extracted event fields.
func (h *Handle) ProcessFlyer(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.log)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile(FileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file is too large")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, "multipart field \""+FileField+"\" is required")
		return
	}
	defer file.Close()

	declared := header.Header.Get("Content-Type")
	contentType, err := flyer.CheckContentType(declared)
	if err != nil {
		metrics.RejectedUploads.WithLabelValues("http", flyer.RejectedLabel(declared)).Inc()
		log.Infow("flyer rejected", "filename", header.Filename, "content_type", declared)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	img, err := io.ReadAll(file)
	if err != nil {
		log.Errorw("read upload", "error", err)
		writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}
	log.Infow("flyer accepted", "filename", header.Filename, "content_type", contentType, "bytes", len(img))

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	info, err := h.ext.Extract(ctx, img, contentType)
	if err != nil {
		var ue *flyer.UpstreamError
		if errors.As(err, &ue) {
			writeError(w, http.StatusBadRequest, "extraction failed: "+ue.Error())
			return
		}
		log.Errorw("extract", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeRaw(w, http.StatusOK, ProcessResponse{
		Status:      "success",
		Filename:    header.Filename,
		ContentType: declared,
		Info:        info,
	}.encode())
}
