package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"pylon/api/internal/flyer"
	"pylon/api/internal/util"
)

const (
	DefaultURL   = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel = "openai/gpt-4o-mini"

	appTitle = "Pylon"
)

type Engine struct {
	APIKey  string
	Model   string
	URL     string
	Referer string // public base URL, sent as HTTP-Referer for OpenRouter attribution
	httpc   *http.Client
}

func New(key, model string) *Engine {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}

	return &Engine{
		APIKey: strings.TrimSpace(key),
		Model:  model,
		URL:    DefaultURL,
		// the overall deadline comes from the caller's context
		httpc: &http.Client{
			Timeout:   0,
			Transport: tr,
		},
	}
}

// WithHTTPClient overrides the internal HTTP client (e.g., for custom timeouts or tracing).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
	}
	return e
}

func (e *Engine) WithURL(u string) *Engine {
	if s := strings.TrimSpace(u); s != "" {
		e.URL = s
	}
	return e
}

func (e *Engine) WithReferer(r string) *Engine {
	e.Referer = strings.TrimSpace(r)
	return e
}

func (e *Engine) Name() string     { return "openrouter" }
func (e *Engine) GetModel() string { return e.Model }

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// buildBody returns the chat-completions payload for one flyer image.
func (e *Engine) buildBody(image []byte, contentType string) map[string]any {
	dataURL := util.MakeDataURL(contentType, image)

	return map[string]any{
		"model": e.Model,
		"messages": []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "text", "text": flyer.Instruction},
					map[string]any{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
				},
			},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   flyer.SchemaName,
				"strict": true,
				"schema": flyer.Schema(),
			},
		},
	}
}

func (e *Engine) Extract(ctx context.Context, image []byte, contentType string) (json.RawMessage, error) {
	payload, err := json.Marshal(e.buildBody(image, contentType))
	if err != nil {
		return nil, fmt.Errorf("openrouter: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, &flyer.UpstreamError{Provider: e.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	// an empty key is still sent; the provider answers 401 and that surfaces as UpstreamError
	req.Header.Set("Authorization", "Bearer "+e.APIKey)
	req.Header.Set("X-Title", appTitle)
	if e.Referer != "" {
		req.Header.Set("HTTP-Referer", e.Referer)
	}

	resp, err := e.httpc.Do(req)
	if err != nil {
		return nil, &flyer.UpstreamError{Provider: e.Name(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &flyer.UpstreamError{Provider: e.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &flyer.UpstreamError{
			Provider:   e.Name(),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(util.TruncateBytes(raw, 512))),
		}
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &flyer.UpstreamError{Provider: e.Name(), Err: fmt.Errorf("bad JSON: %w", err)}
	}
	if len(out.Choices) == 0 {
		if out.Error != nil && out.Error.Message != "" {
			return nil, &flyer.UpstreamError{Provider: e.Name(), Err: fmt.Errorf("%w: %s", flyer.ErrNoChoices, out.Error.Message)}
		}
		return nil, &flyer.UpstreamError{Provider: e.Name(), Err: flyer.ErrNoChoices}
	}
	return flyer.RawInfo(out.Choices[0].Message.Content), nil
}
