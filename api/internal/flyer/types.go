package flyer

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strings"
)

// Instruction is the fixed prompt sent alongside every flyer image.
const Instruction = `You are reading a photo of an event flyer or poster.
Interpret the flyer and extract the event information it advertises.
Return ONLY JSON that matches the provided schema. Use the text exactly as printed on the flyer.
Leave out optional fields that the flyer does not mention.`

// SchemaName identifies the response schema in provider requests.
const SchemaName = "flyer_info"

// Info field names.
const (
	FieldEventName   = "event_name"
	FieldDate        = "date"
	FieldTime        = "time"
	FieldLocation    = "location"
	FieldDescription = "description"
	FieldTicketInfo  = "ticket_info"
)

// RequiredFields are the schema fields the provider must always return.
var RequiredFields = []string{FieldEventName, FieldDate, FieldTime, FieldLocation}

// OptionalFields may be omitted by the provider.
var OptionalFields = []string{FieldDescription, FieldTicketInfo}

var fieldDescriptions = map[string]string{
	FieldEventName:   "Name or title of the event",
	FieldDate:        "Date of the event as printed on the flyer",
	FieldTime:        "Start time (and end time if shown)",
	FieldLocation:    "Venue name and/or address",
	FieldDescription: "Short description of the event",
	FieldTicketInfo:  "Ticket prices, registration or admission details",
}

// DescribeField returns the human description of a schema field.
func DescribeField(name string) string { return fieldDescriptions[name] }

// Schema builds a fresh copy of the JSON schema describing Info.
// Unknown properties are not allowed.
func Schema() map[string]any {
	props := make(map[string]any, len(RequiredFields)+len(OptionalFields))
	for _, f := range append(append([]string{}, RequiredFields...), OptionalFields...) {
		props[f] = map[string]any{
			"type":        "string",
			"description": fieldDescriptions[f],
		}
	}
	req := make([]any, 0, len(RequiredFields))
	for _, f := range RequiredFields {
		req = append(req, f)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             req,
		"additionalProperties": false,
	}
}

// Info is the structured event data returned by a provider, kept as-is.
// Typed access for rendering only; the HTTP surface passes the raw JSON through.
type Info struct {
	EventName   string `json:"event_name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Location    string `json:"location"`
	Description string `json:"description,omitempty"`
	TicketInfo  string `json:"ticket_info,omitempty"`
}

// RawInfo wraps provider content into a JSON value without altering it.
// Valid JSON is returned byte-for-byte; anything else becomes a JSON string.
func RawInfo(content string) json.RawMessage {
	if json.Valid([]byte(content)) {
		return json.RawMessage(content)
	}
	b, _ := json.Marshal(content)
	return b
}

// --- content types -----------------------------------------------------------

// AllowedContentTypes are the image formats providers accept inline.
var AllowedContentTypes = []string{"image/jpeg", "image/png", "image/webp"}

// NormalizeContentType lowercases a declared type and drops parameters.
func NormalizeContentType(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return strings.ToLower(ct)
}

// CheckContentType returns the normalized type when it is allowed,
// and a *ClientError otherwise.
func CheckContentType(ct string) (string, error) {
	n := NormalizeContentType(ct)
	for _, a := range AllowedContentTypes {
		if n == a {
			return n, nil
		}
	}
	return "", &ClientError{ContentType: ct, Allowed: AllowedContentTypes}
}

// knownRejected are refused types common enough to get their own metric label.
var knownRejected = map[string]bool{
	"image/gif":                true,
	"image/heic":               true,
	"image/heif":               true,
	"image/bmp":                true,
	"image/tiff":               true,
	"image/svg+xml":            true,
	"application/pdf":          true,
	"application/octet-stream": true,
}

// RejectedLabel maps a refused content type onto a bounded set of metric
// label values: "none", one of knownRejected, or "other".
func RejectedLabel(ct string) string {
	n := NormalizeContentType(ct)
	switch {
	case n == "":
		return "none"
	case knownRejected[n]:
		return n
	default:
		return "other"
	}
}

// --- errors ------------------------------------------------------------------

// ErrNoChoices is wrapped by UpstreamError when the provider answered
// without any usable result.
var ErrNoChoices = errors.New("provider returned no choices")

// ClientError reports an upload the service refuses to forward.
type ClientError struct {
	ContentType string
	Allowed     []string
}

func (e *ClientError) Error() string {
	ct := e.ContentType
	if ct == "" {
		ct = "(none)"
	}
	return fmt.Sprintf("unsupported file type: %s. Supported types are: %s", ct, strings.Join(e.Allowed, ", "))
}

// UpstreamError reports a provider call that produced no usable result.
type UpstreamError struct {
	Provider   string
	StatusCode int // provider HTTP status, 0 when the call never got a response
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Reason is a short label used for metrics.
func (e *UpstreamError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrNoChoices):
		return "no_choices"
	case e.StatusCode != 0:
		return "status"
	default:
		return "transport"
	}
}
