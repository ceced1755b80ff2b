package telegram

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 from Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

// RunPolling long-polls Telegram until ctx is cancelled. Errors back off
// between 1s and 15s and never stop the loop.
func (r *Router) RunPolling(ctx context.Context, bot *tgbotapi.BotAPI) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			r.Log.Info("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			r.Log.Warnw("polling error", "error", err, "retry_in", d.String())
			select {
			case <-ctx.Done():
				return
			case <-time.After(d):
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			go r.HandleUpdate(ctx, upd)
		}
	}
}

// WebhookPath derives a hard-to-guess webhook path from the bot token.
func WebhookPath(token string) string {
	return "/webhook/" + shortHash(token)
}

// RegisterWebhook points Telegram at baseURL+WebhookPath(token).
func RegisterWebhook(bot *tgbotapi.BotAPI, baseURL string) (string, error) {
	public := strings.TrimRight(baseURL, "/") + WebhookPath(bot.Token)
	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return "", err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return "", err
	}
	return public, nil
}

// WebhookHandler decodes an update and answers Telegram immediately;
// the update itself is processed in the background under ctx.
func (r *Router) WebhookHandler(ctx context.Context, bot *tgbotapi.BotAPI) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		upd, err := bot.HandleUpdate(req)
		if err != nil {
			r.Log.Warnw("webhook decode", "error", err)
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		go r.HandleUpdate(ctx, *upd)
		w.WriteHeader(http.StatusOK)
	})
}

func shortHash(s string) string {
	// FNV-1a, stable for a given token
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
