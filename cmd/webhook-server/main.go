package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ducminhle1904/bracket-webhook-bot/internal/config"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange/adapters"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/logger"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/monitoring"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/notifications"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/orchestrator"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/server"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/sizing"
)

func main() {
	var (
		envFile     = flag.String("env", ".env", "Environment file path")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}

	// The .env file is optional; real deployments set the environment directly
	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("Warning: could not load %s (%v), using process environment", *envFile, err)
	}

	if err := run(); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLog, logCloser, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logCloser.Close()

	venueRules, err := config.LoadVenueRules(cfg.Trading.RulesFile)
	if err != nil {
		return err
	}
	rules := venueRules.RulesFor(cfg.Exchange.Name)

	rawVenue, err := adapters.CreateVenue(cfg.ExchangeConfig())
	if err != nil {
		return fmt.Errorf("failed to create venue: %w", err)
	}
	venue := exchange.Guarded(rawVenue, cfg.GuardConfig(), appLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := monitoring.NewHealthChecker(venue.Name())
	if err := venue.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", venue.Name(), err)
	}
	health.SetConnected(true)
	defer disconnect(venue, appLog)

	journal, err := logger.NewJournal(cfg.Logging.Dir, venue.Name())
	if err != nil {
		return fmt.Errorf("failed to open trade journal: %w", err)
	}
	defer journal.Close()

	orch := orchestrator.New(venue, sizing.NewSizer(rules), orchestrator.Options{
		LockMode: cfg.LockMode(),
		Journal:  journal,
		Notifier: newNotifier(cfg, appLog),
		Health:   health,
		Logger:   appLog,
	})

	cfg.PrintSummary(os.Stdout, venue.Environment(), rules)
	appLog.Info().
		Str("venue", venue.Name()).
		Str("environment", venue.Environment()).
		Str("journal", journal.Path()).
		Msg("🚀 bracket webhook bot starting")

	srv := server.New(server.Config{
		Port:            cfg.Server.Port,
		WebhookSecret:   cfg.Server.WebhookSecret,
		DefaultRiskUSD:  cfg.Trading.DefaultRiskUSD,
		MaxRiskUSD:      cfg.Trading.MaxRiskUSD,
		ReferenceSymbol: cfg.Trading.ReferenceSymbol,
	}, venue, orch, health, appLog)

	if err := srv.Run(ctx, cfg.Server.ShutdownTimeout); err != nil {
		return err
	}
	appLog.Info().Msg("👋 shutdown complete")
	return nil
}

func newNotifier(cfg *config.Config, log zerolog.Logger) notifications.Notifier {
	if cfg.Notifications.TelegramToken == "" {
		return notifications.Nop{}
	}
	log.Info().Msg("telegram alerts enabled")
	return notifications.NewTelegramNotifier(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID)
}

func disconnect(venue exchange.Venue, log zerolog.Logger) {
	if err := venue.Disconnect(); err != nil {
		log.Warn().Err(err).Msg("venue disconnect failed")
	}
}
