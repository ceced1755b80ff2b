package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"pylon/api/internal/flyer"
	"pylon/api/internal/metrics"
	"pylon/api/internal/util"
)

var errTooLarge = errors.New("file is too large")

// processFile downloads one image, checks its type and runs a single extraction.
// Photos carry no declared type, so it is sniffed from the bytes.
func (r *Router) processFile(ctx context.Context, cid int64, fileID, declared, filename string) {
	log := r.Log.With("chat_id", cid, "filename", filename)

	if declared != "" {
		if _, err := flyer.CheckContentType(declared); err != nil {
			metrics.RejectedUploads.WithLabelValues("telegram", flyer.RejectedLabel(declared)).Inc()
			r.send(cid, err.Error())
			return
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		log.Warnw("telegram get file", "error", err)
		r.send(cid, "Could not fetch the file from Telegram: "+err.Error())
		return
	}
	img, err := r.download(ctx, url, r.MaxBytes)
	if err != nil {
		log.Warnw("telegram download", "error", err)
		r.send(cid, "Could not download the file: "+err.Error())
		return
	}

	ct := declared
	if ct == "" {
		ct = util.SniffMimeHTTP(img)
	}
	contentType, err := flyer.CheckContentType(ct)
	if err != nil {
		metrics.RejectedUploads.WithLabelValues("telegram", flyer.RejectedLabel(ct)).Inc()
		r.send(cid, err.Error())
		return
	}

	r.send(cid, "Got it, reading the flyer…")
	info, err := r.Extractor.Extract(ctx, img, contentType)
	if err != nil {
		var ue *flyer.UpstreamError
		if errors.As(err, &ue) {
			r.send(cid, "Extraction failed: "+ue.Error())
			return
		}
		log.Errorw("extract", "error", err)
		r.send(cid, "Something went wrong, please try again later.")
		return
	}
	r.send(cid, FormatInfo(info))
}

func download(ctx context.Context, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errTooLarge
	}
	return b, nil
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
