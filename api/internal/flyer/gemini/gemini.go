package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"pylon/api/internal/flyer"
)

const DefaultModel = "gemini-2.5-flash"

type Engine struct {
	APIKey string
	Model  string
	opts   []option.ClientOption
}

func New(apiKey, model string) *Engine {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

// WithClientOptions appends client options (endpoint, HTTP client) used on every call.
func (e *Engine) WithClientOptions(opts ...option.ClientOption) *Engine {
	e.opts = append(e.opts, opts...)
	return e
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// ResponseSchema mirrors flyer.Schema in genai terms.
func ResponseSchema() *genai.Schema {
	props := make(map[string]*genai.Schema, len(flyer.RequiredFields)+len(flyer.OptionalFields))
	for _, f := range flyer.RequiredFields {
		props[f] = &genai.Schema{Type: genai.TypeString, Description: flyer.DescribeField(f)}
	}
	for _, f := range flyer.OptionalFields {
		props[f] = &genai.Schema{Type: genai.TypeString, Description: flyer.DescribeField(f), Nullable: true}
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   append([]string(nil), flyer.RequiredFields...),
	}
}

func (e *Engine) Extract(ctx context.Context, image []byte, contentType string) (json.RawMessage, error) {
	if e.APIKey == "" {
		return nil, &flyer.UpstreamError{Provider: e.Name(), Err: errors.New("GEMINI_API_KEY is empty")}
	}
	opts := append([]option.ClientOption{option.WithAPIKey(e.APIKey)}, e.opts...)
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, &flyer.UpstreamError{Provider: e.Name(), Err: err}
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return nil, &flyer.UpstreamError{Provider: e.Name(), Err: fmt.Errorf("model is nil")}
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   ResponseSchema(),
	}

	resp, err := m.GenerateContent(ctx,
		genai.Text(flyer.Instruction),
		genai.Blob{MIMEType: contentType, Data: image},
	)
	if err != nil {
		ue := &flyer.UpstreamError{Provider: e.Name(), Err: err}
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			ue.StatusCode = gerr.Code
		}
		return nil, ue
	}
	txt, ok := firstText(resp)
	if !ok {
		return nil, &flyer.UpstreamError{Provider: e.Name(), Err: flyer.ErrNoChoices}
	}
	return flyer.RawInfo(txt), nil
}

// firstText returns the text parts of the first candidate joined together.
func firstText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return "", false
	}
	var b strings.Builder
	found := false
	for _, p := range c.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
			found = true
		}
	}
	return b.String(), found
}

func ptrFloat32(f float32) *float32 { return &f }
