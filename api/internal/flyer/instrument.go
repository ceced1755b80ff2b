package flyer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"pylon/api/internal/logger"
	"pylon/api/internal/metrics"
)

type instrumented struct {
	next Extractor
	log  *zap.SugaredLogger
}

// Instrument wraps an Extractor with metrics and a log line per call.
func Instrument(next Extractor, log *zap.SugaredLogger) Extractor {
	return &instrumented{next: next, log: log}
}

func (i *instrumented) Name() string     { return i.next.Name() }
func (i *instrumented) GetModel() string { return i.next.GetModel() }

func (i *instrumented) Extract(ctx context.Context, image []byte, contentType string) (json.RawMessage, error) {
	log := logger.FromContext(ctx, i.log).With(
		"provider", i.next.Name(),
		"model", i.next.GetModel(),
		"content_type", contentType,
		"bytes", len(image),
	)
	start := time.Now()
	out, err := i.next.Extract(ctx, image, contentType)
	elapsed := time.Since(start)

	metrics.ExtractDuration.WithLabelValues(i.next.Name(), i.next.GetModel()).Observe(elapsed.Seconds())
	if err != nil {
		metrics.ExtractCount.WithLabelValues(i.next.Name(), i.next.GetModel(), "failed").Inc()
		reason := "other"
		var ue *UpstreamError
		if errors.As(err, &ue) {
			reason = ue.Reason()
		}
		metrics.UpstreamErrors.WithLabelValues(i.next.Name(), reason).Inc()
		log.Warnw("extraction failed", "duration", elapsed.String(), "reason", reason, "error", err)
		return nil, err
	}
	metrics.ExtractCount.WithLabelValues(i.next.Name(), i.next.GetModel(), "succeeded").Inc()
	log.Infow("extraction succeeded", "duration", elapsed.String())
	return out, nil
}
