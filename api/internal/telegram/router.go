package telegram

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pylon/api/internal/flyer"
)

const maxMessageLen = 3900

// Sender is the subset of *tgbotapi.BotAPI the router talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot       Sender
	Extractor flyer.Extractor
	Log       *zap.SugaredLogger

	Timeout  time.Duration // bound on one download + extraction
	MaxBytes int64

	// download fetches a Telegram file URL; replaced in tests
	download func(ctx context.Context, url string, limit int64) ([]byte, error)
}

func NewRouter(bot Sender, ext flyer.Extractor, log *zap.SugaredLogger, timeout time.Duration, maxBytes int64) *Router {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Router{
		Bot:       bot,
		Extractor: ext,
		Log:       log,
		Timeout:   timeout,
		MaxBytes:  maxBytes,
		download:  download,
	}
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	if msg.IsCommand() {
		r.handleCommand(cid, msg.Command())
		return
	}

	switch {
	case len(msg.Photo) > 0:
		// the last size is the largest
		ph := msg.Photo[len(msg.Photo)-1]
		r.processFile(ctx, cid, ph.FileID, "", "photo.jpg")
	case msg.Document != nil:
		r.processFile(ctx, cid, msg.Document.FileID, msg.Document.MimeType, msg.Document.FileName)
	default:
		r.send(cid, usageText)
	}
}

const usageText = "Send me a photo of an event flyer and I will read the event details from it.\n" +
	"Images can also be sent as files (JPEG, PNG or WebP).\nCommands: /health"

func (r *Router) handleCommand(cid int64, cmd string) {
	switch cmd {
	case "start", "help":
		r.send(cid, usageText)
	case "health":
		r.send(cid, fmt.Sprintf("OK: %s (%s)", r.Extractor.Name(), r.Extractor.GetModel()))
	default:
		r.send(cid, "Unknown command")
	}
}

func (r *Router) send(chatID int64, text string) {
	text = truncate(text, maxMessageLen)
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.Log.Warnw("telegram send", "chat_id", chatID, "error", err)
	}
}

// truncate cuts text to at most n bytes on a rune boundary and marks the cut.
func truncate(text string, n int) string {
	if len(text) <= n {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n] + "…"
}
