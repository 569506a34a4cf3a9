package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/endurancevpn/vpnbot/internal/billing"
	"github.com/endurancevpn/vpnbot/internal/bot"
	"github.com/endurancevpn/vpnbot/internal/config"
	"github.com/endurancevpn/vpnbot/internal/database"
	"github.com/endurancevpn/vpnbot/internal/logger"
	"github.com/endurancevpn/vpnbot/internal/provision"
	"github.com/endurancevpn/vpnbot/internal/storage"
	"github.com/endurancevpn/vpnbot/internal/telegram"
	"github.com/endurancevpn/vpnbot/internal/telegram/state"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := run(); err != nil {
		log.Fatalf("vpnbot: %v", err)
	}
}

func run() error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.InitLogger(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.Database); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	store := storage.New(db, cfg.TrialWindow())
	biller := billing.NewClient(cfg.Billing)
	prov := provision.NewClient(cfg.Provisioning, store)
	fsm := state.NewMemoryManager()

	app := bot.New(cfg, store, biller, prov, fsm)

	runOpts := app.TelegramRunOptions()

	startedAt := time.Now()
	runOpts.OnStart = func(ctx context.Context, rt telegram.Runtime) error {
		logger.L.With("component", "app").Info("app ready",
			slog.String("event", "ready"),
			slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
		)
		return nil
	}
	runOpts.OnStop = func(ctx context.Context, rt telegram.Runtime) error {
		logger.L.With("component", "app").Info("shutting down...",
			slog.String("event", "shutdown"),
		)
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return telegram.RunTelegram(ctx, runOpts)
}
