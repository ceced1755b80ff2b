package flyer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// Extractor turns one flyer image into the provider's structured answer.
type Extractor interface {
	Name() string
	GetModel() string
	Extract(ctx context.Context, image []byte, contentType string) (json.RawMessage, error)
}

type Engines struct {
	OpenRouter Extractor
	Gemini     Extractor
}

func (e *Engines) GetEngine(name string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "openrouter":
		if e.OpenRouter == nil {
			return nil, errors.New("openrouter engine is not configured")
		}
		return e.OpenRouter, nil
	case "gemini":
		if e.Gemini == nil {
			return nil, errors.New("gemini engine is not configured")
		}
		return e.Gemini, nil
	default:
		return nil, errors.New("unknown provider; use 'openrouter' or 'gemini'")
	}
}
