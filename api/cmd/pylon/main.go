package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pylon/api/internal/config"
	"pylon/api/internal/flyer"
	"pylon/api/internal/flyer/gemini"
	"pylon/api/internal/flyer/openrouter"
	"pylon/api/internal/handle"
	"pylon/api/internal/httpserver"
	"pylon/api/internal/logger"
	"pylon/api/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewSugared(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	engines := &flyer.Engines{
		OpenRouter: openrouter.New(cfg.OpenRouterAPIKey, cfg.OpenRouterModel).
			WithURL(cfg.OpenRouterURL).
			WithReferer(cfg.PublicBaseURL),
		Gemini: gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel),
	}
	engine, err := engines.GetEngine(cfg.Provider)
	if err != nil {
		log.Fatalw("provider", "error", err)
	}
	if cfg.Provider == "openrouter" && cfg.OpenRouterAPIKey == "" {
		log.Warn("OPENROUTER_API_KEY is empty; provider calls will fail authentication")
	}
	ext := flyer.Instrument(engine, log)

	h := handle.New(ext, log, cfg.RequestTimeout, cfg.MaxUploadBytes)
	srv := httpserver.New("0.0.0.0:"+cfg.Port, h, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TelegramBotToken != "" {
		startTelegram(ctx, cfg, srv, ext, log)
	}

	go func() {
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()
	log.Infow("pylon started", "provider", engine.Name(), "model", engine.GetModel())

	<-ctx.Done()
	log.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	log.Info("server exited")
}

// startTelegram runs the bot in webhook mode when a public URL is known,
// long polling otherwise.
func startTelegram(ctx context.Context, cfg *config.Config, srv *httpserver.Server, ext flyer.Extractor, log *zap.SugaredLogger) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatalw("telegram", "error", err)
	}
	bot.Debug = false

	r := telegram.NewRouter(bot, ext, log.With("component", "telegram"), cfg.RequestTimeout, cfg.MaxUploadBytes)

	if cfg.PublicBaseURL != "" {
		public, err := telegram.RegisterWebhook(bot, cfg.PublicBaseURL)
		if err != nil {
			log.Fatalw("telegram webhook", "error", err)
		}
		srv.Handle("POST "+telegram.WebhookPath(bot.Token), r.WebhookHandler(ctx, bot))
		log.Infow("telegram webhook registered", "url", public)
		return
	}

	// polling needs the webhook removed
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Warnw("telegram delete webhook", "error", err)
	}
	go r.RunPolling(ctx, bot)
	log.Infow("telegram polling started", "bot", bot.Self.UserName)
}
