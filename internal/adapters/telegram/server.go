package telegram

import (
	"PushProbe/internal/shared/config"
	"context"
	"fmt"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// BotServer is responsible for running the bot (polling or webhook)
type BotServer struct {
	api    *tgbotapi.BotAPI
	router *Router
	cfg    *config.BotConnectionConfig
	log    zerolog.Logger
}

// NewBotServer creates a new server instance
func NewBotServer(
	api *tgbotapi.BotAPI,
	router *Router,
	cfg *config.BotConnectionConfig,
	baseLogger *zerolog.Logger,
) *BotServer {
	return &BotServer{
		api:    api,
		router: router,
		cfg:    cfg,
		log:    baseLogger.With().Str("component", "bot_server").Logger(),
	}
}

// Start begins the bot server based on the config mode
func (s *BotServer) Start(ctx context.Context) error {
	s.log.Info().Str("mode", s.cfg.Mode).Msg("Starting bot server...")

	switch s.cfg.Mode {
	case "polling":
		return s.startPolling(ctx)
	case "webhook":
		return s.startWebhook(ctx)
	default:
		return fmt.Errorf("unknown bot mode: %s", s.cfg.Mode)
	}
}

// startPolling starts the bot in long polling mode with a worker pool
func (s *BotServer) startPolling(ctx context.Context) error {
	s.log.Info().Int("workers", s.cfg.Polling.WorkerPoolSize).Msg("Starting bot in POLLING mode")

	// 1. Clear any existing webhook
	deleteWebhookConfig := tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: false,
	}
	if _, err := s.api.Request(deleteWebhookConfig); err != nil {
		s.log.Warn().Err(err).Msg("Failed to delete webhook (continuing anyway)")
	}

	// 2. Create the channel for updates
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.api.GetUpdatesChan(u)

	s.dispatch(ctx, updates, "polling")
	s.api.StopReceivingUpdates()
	s.log.Info().Msg("Polling stopped gracefully")
	return nil
}

// startWebhook starts the bot in webhook mode (for production)
func (s *BotServer) startWebhook(ctx context.Context) error {
	s.log.Info().
		Int("port", s.cfg.Webhook.ListenPort).
		Int("workers", s.cfg.Polling.WorkerPoolSize). // We reuse the worker pool size
		Msg("Starting bot in WEBHOOK mode")

	// 1. Set the webhook
	webhookURL := fmt.Sprintf("%s/webhook/%s", s.cfg.Webhook.URL, s.api.Token)
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to create webhook config")
		return err
	}
	if _, err := s.api.Request(wh); err != nil {
		s.log.Error().Err(err).Msg("Failed to set webhook")
		return err
	}

	info, err := s.api.GetWebhookInfo()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get webhook info")
		return err
	}
	if info.LastErrorDate != 0 {
		s.log.Error().Str("error_message", info.LastErrorMessage).Msg("Telegram webhook has a last error")
	}

	// 2. Serve the webhook on its own mux, behind a TLS-terminating proxy
	mux := http.NewServeMux()
	updates := make(chan tgbotapi.Update, s.cfg.Polling.WorkerPoolSize)
	mux.HandleFunc("/webhook/"+s.api.Token, func(w http.ResponseWriter, r *http.Request) {
		update, err := s.api.HandleUpdate(r)
		if err != nil {
			s.log.Warn().Err(err).Msg("Rejected webhook request")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		select {
		case updates <- *update:
		case <-r.Context().Done():
		}
	})

	listenAddr := fmt.Sprintf("127.0.0.1:%d", s.cfg.Webhook.ListenPort)
	s.log.Info().Str("addr", listenAddr).Msg("Starting HTTP server for webhook")
	httpServer := &http.Server{Addr: listenAddr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("Webhook HTTP server failed")
		}
	}()

	s.dispatch(ctx, updates, "webhook")

	s.log.Info().Msg("Shutting down HTTP server...")
	if err := httpServer.Shutdown(context.Background()); err != nil {
		s.log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	s.log.Info().Msg("Webhook server stopped gracefully")
	return nil
}

// dispatch fans updates out to the worker pool until ctx is done.
func (s *BotServer) dispatch(ctx context.Context, updates <-chan tgbotapi.Update, mode string) {
	jobs := make(chan tgbotapi.Update, 100)

	var wg sync.WaitGroup
	for w := 1; w <= s.cfg.Polling.WorkerPoolSize; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			log := s.router.log.With().Str("mode", mode).Int("worker_id", id).Logger()
			log.Debug().Msg("Starting worker")
			for job := range jobs {
				// Commands may wait on push deliveries; they outlive shutdown.
				s.router.HandleUpdate(context.Background(), &job)
			}
			log.Debug().Msg("Stopping worker (channel closed)")
		}(w)
	}

	s.log.Info().Msg("Update listener started")
	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				close(jobs)
				wg.Wait()
				return
			}
			jobs <- update
		}
	}
}
