package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nkaliyev/tengebot/internal/botui"
	"github.com/nkaliyev/tengebot/internal/config"
	"github.com/nkaliyev/tengebot/internal/ledger"
	"github.com/nkaliyev/tengebot/internal/logger"
	"github.com/nkaliyev/tengebot/internal/profile"
	"github.com/nkaliyev/tengebot/internal/store/bigquery"
	"github.com/nkaliyev/tengebot/internal/store/bolt"
	"github.com/nkaliyev/tengebot/internal/telegram"
	"github.com/nkaliyev/tengebot/internal/webhook"
	"github.com/nkaliyev/tengebot/internal/wizard"
	"github.com/rs/zerolog"
)

// store is the full storage surface the bot wires its services over. Both
// backends satisfy it.
type store interface {
	ledger.AccountStore
	ledger.CategoryStore
	ledger.TransactionStore
	profile.Store
	Close() error
}

func main() {
	mode := flag.String("mode", "poll", "Update delivery mode: poll or webhook")
	flag.Parse()

	cfg := config.Load()
	log := logger.New("bot").Level(logger.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if *mode == "webhook" && cfg.WebhookSecret == "" {
		log.Fatal().Msg("WEBHOOK_SECRET is required in webhook mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", string(cfg.Backend)).Msg("Opening store failed")
	}
	defer st.Close()

	defaults, err := profile.LoadDefaults(cfg.DefaultsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DefaultsPath).Msg("Loading profile defaults failed")
	}

	profiles := profile.New(st, defaults)
	directory := ledger.NewDirectory(st, st)
	engine := ledger.NewEngine(st, st)
	router := wizard.NewRouter(directory)

	tg := telegram.NewWithBaseURL(cfg.APIBaseURL + "/bot" + cfg.BotToken)
	bot := botui.New(tg, profiles, router, engine, directory)

	dispatcher := botui.NewDispatcher(bot.HandleUpdate, 16)
	if err := dispatcher.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Starting dispatcher failed")
	}

	if err := tg.SetMyCommands(ctx, botui.Commands()); err != nil {
		log.Warn().Err(err).Msg("Registering bot commands failed")
	}

	log.Info().
		Str("mode", *mode).
		Str("backend", string(cfg.Backend)).
		Msg("Starting bot")

	switch *mode {
	case "poll":
		runPolling(ctx, cancel, log, tg, dispatcher, cfg.PollTimeout)
	case "webhook":
		runWebhook(log, dispatcher, cfg)
	default:
		log.Fatal().Str("mode", *mode).Msg("Unknown mode, expected poll or webhook")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during dispatcher shutdown")
	}

	log.Info().Msg("Bot exited")
}

func openStore(ctx context.Context, cfg config.Config) (store, error) {
	switch cfg.Backend {
	case config.BackendBigQuery:
		return bigquery.New(ctx, cfg.ProjectID, cfg.DatasetID)
	case config.BackendBolt:
		return bolt.Open(cfg.BoltPath)
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// runPolling long-polls until an interrupt or a poller failure.
func runPolling(ctx context.Context, cancel context.CancelFunc, log zerolog.Logger, tg *telegram.Client, dispatcher *botui.Dispatcher, timeout time.Duration) {
	poller := botui.NewPoller(tg, dispatcher, timeout)

	errCh := make(chan error, 1)
	go func() {
		errCh <- poller.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Shutting down bot...")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Poller stopped with error")
		}
	}
}

// runWebhook serves pushed updates until an interrupt.
func runWebhook(log zerolog.Logger, dispatcher *botui.Dispatcher, cfg config.Config) {
	server := webhook.New(cfg.WebhookAddr, cfg.WebhookSecret, dispatcher, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Shutting down bot...")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Webhook server stopped with error")
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during webhook shutdown")
	}
	<-errCh
}
