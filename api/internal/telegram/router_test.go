package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pylon/api/internal/flyer"
)

type fakeBot struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) GetFileDirectURL(fileID string) (string, error) {
	return "https://files.example/" + fileID, nil
}

func (f *fakeBot) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

type fakeExtractor struct {
	out   json.RawMessage
	err   error
	calls int
	ct    string
}

func (f *fakeExtractor) Name() string     { return "fake" }
func (f *fakeExtractor) GetModel() string { return "fake-1" }
func (f *fakeExtractor) Extract(_ context.Context, _ []byte, ct string) (json.RawMessage, error) {
	f.calls++
	f.ct = ct
	return f.out, f.err
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0}

func newTestRouter(ext flyer.Extractor, payload []byte) (*Router, *fakeBot, *int) {
	bot := &fakeBot{}
	r := NewRouter(bot, ext, nil, time.Second, 1<<20)
	downloads := 0
	r.download = func(context.Context, string, int64) ([]byte, error) {
		downloads++
		return payload, nil
	}
	return r, bot, &downloads
}

func chat() *tgbotapi.Chat { return &tgbotapi.Chat{ID: 42} }

func TestDocumentWithUnsupportedTypeIsRejected(t *testing.T) {
	ext := &fakeExtractor{out: json.RawMessage(`{}`)}
	r, bot, downloads := newTestRouter(ext, pngBytes)

	r.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     chat(),
		Document: &tgbotapi.Document{FileID: "doc1", FileName: "flyer.pdf", MimeType: "application/pdf"},
	}})

	if ext.calls != 0 || *downloads != 0 {
		t.Fatalf("calls=%d downloads=%d, want none", ext.calls, *downloads)
	}
	if !strings.Contains(bot.last(), "application/pdf") {
		t.Errorf("reply = %q", bot.last())
	}
}

func TestPhotoIsSniffedAndExtracted(t *testing.T) {
	ext := &fakeExtractor{out: json.RawMessage(`{"event_name":"Gala","date":"Dec 1","time":"19:00","location":"Hall"}`)}
	r, bot, _ := newTestRouter(ext, pngBytes)

	r.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:  chat(),
		Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
	}})

	if ext.calls != 1 {
		t.Fatalf("extract calls = %d", ext.calls)
	}
	if ext.ct != "image/png" {
		t.Errorf("content type = %q", ext.ct)
	}
	if got := bot.last(); !strings.Contains(got, "Event: Gala") || !strings.Contains(got, "Location: Hall") {
		t.Errorf("reply = %q", got)
	}
}

func TestPhotoWithUnknownBytesIsRejected(t *testing.T) {
	ext := &fakeExtractor{}
	r, bot, _ := newTestRouter(ext, []byte("GIF89a...."))

	r.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:  chat(),
		Photo: []tgbotapi.PhotoSize{{FileID: "p"}},
	}})
	if ext.calls != 0 {
		t.Fatalf("extract calls = %d", ext.calls)
	}
	if !strings.Contains(bot.last(), "unsupported file type") {
		t.Errorf("reply = %q", bot.last())
	}
}

func TestUpstreamErrorIsReported(t *testing.T) {
	ext := &fakeExtractor{err: &flyer.UpstreamError{Provider: "fake", Err: flyer.ErrNoChoices}}
	r, bot, _ := newTestRouter(ext, pngBytes)

	r.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     chat(),
		Document: &tgbotapi.Document{FileID: "d", FileName: "f.png", MimeType: "image/png"},
	}})
	if ext.calls != 1 {
		t.Fatalf("extract calls = %d", ext.calls)
	}
	if !strings.HasPrefix(bot.last(), "Extraction failed") {
		t.Errorf("reply = %q", bot.last())
	}

	ext.err = errors.New("boom")
	r.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     chat(),
		Document: &tgbotapi.Document{FileID: "d", FileName: "f.png", MimeType: "image/png"},
	}})
	if strings.Contains(bot.last(), "boom") {
		t.Errorf("internal error leaked: %q", bot.last())
	}
}

func TestHealthCommand(t *testing.T) {
	r, bot, _ := newTestRouter(&fakeExtractor{}, nil)
	r.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     chat(),
		Text:     "/health",
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len("/health")}},
	}})
	if got := bot.last(); got != "OK: fake (fake-1)" {
		t.Errorf("reply = %q", got)
	}
}

func TestFormatInfo(t *testing.T) {
	full := FormatInfo(json.RawMessage(`{"event_name":"Jazz","date":"Fri","time":"8pm","location":"Club","description":"Live band","ticket_info":"$10"}`))
	for _, want := range []string{"Event: Jazz", "Date: Fri", "Time: 8pm", "Location: Club", "Tickets: $10", "Live band"} {
		if !strings.Contains(full, want) {
			t.Errorf("missing %q in %q", want, full)
		}
	}

	partial := FormatInfo(json.RawMessage(`{"event_name":"Jazz","date":"","time":"8pm","location":"Club"}`))
	if strings.Contains(partial, "Date:") || strings.Contains(partial, "Tickets:") {
		t.Errorf("empty fields rendered: %q", partial)
	}

	if got := FormatInfo(json.RawMessage(`"no flyer here"`)); !strings.HasSuffix(got, "no flyer here") {
		t.Errorf("string result = %q", got)
	}
	if got := FormatInfo(json.RawMessage(`[1,2]`)); !strings.HasSuffix(got, "[1,2]") {
		t.Errorf("array result = %q", got)
	}
}

func TestWebhookPathIsStable(t *testing.T) {
	a, b := WebhookPath("123:abc"), WebhookPath("123:abc")
	if a != b || !strings.HasPrefix(a, "/webhook/") || len(a) != len("/webhook/")+16 {
		t.Fatalf("path = %q", a)
	}
	if WebhookPath("123:abd") == a {
		t.Fatal("different tokens share a path")
	}
}

func TestRetryDelayFromError(t *testing.T) {
	if d := retryDelayFromError(errors.New("Too Many Requests: retry after 7")); d != 7*time.Second {
		t.Errorf("429 delay = %v", d)
	}
	if d := retryDelayFromError(errors.New("connection reset")); d != time.Second {
		t.Errorf("default delay = %v", d)
	}
	if d := retryDelayFromError(nil); d != 0 {
		t.Errorf("nil delay = %v", d)
	}
}

func TestLongRepliesAreCutOnRuneBoundary(t *testing.T) {
	r, bot, _ := newTestRouter(&fakeExtractor{}, nil)
	r.send(42, "a"+strings.Repeat("é", 3000))

	got := bot.last()
	if !utf8.ValidString(got) {
		t.Fatalf("reply is not valid UTF-8")
	}
	if !strings.HasSuffix(got, "…") || len(got) > maxMessageLen+len("…") {
		t.Errorf("reply length = %d", len(got))
	}

	if s := truncate("short", maxMessageLen); s != "short" {
		t.Errorf("short text changed: %q", s)
	}
}
