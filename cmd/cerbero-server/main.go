package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nferreyra/cerbero/internal/cerbero/service"
	"github.com/nferreyra/cerbero/internal/cerbero/store/sqlite"
	"github.com/nferreyra/cerbero/internal/clock"
	"github.com/nferreyra/cerbero/internal/config"
	"github.com/nferreyra/cerbero/internal/db"
	"github.com/nferreyra/cerbero/internal/httpapi"
	"github.com/nferreyra/cerbero/internal/logging"
	"github.com/nferreyra/cerbero/internal/realtime"
	"github.com/nferreyra/cerbero/internal/relay"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.NewText(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Error(ctx, "db open failed", "err", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, dbConn); err != nil {
			logger.Error(ctx, "dev seed failed", "err", err)
			os.Exit(1)
		}
	}

	writer := db.NewWorker(dbConn)
	defer writer.Close()

	// Stores
	identity := sqlite.NewIdentityStore(dbConn)
	ledger := sqlite.NewLedgerStore(dbConn, writer)
	settings := sqlite.NewSettingsStore(dbConn)
	operators := sqlite.NewOperatorStore(dbConn)

	// Shared localized clock
	clk := clock.NewLocalized(settings, clock.Config{
		DefaultTimezone: cfg.DefaultTimezone,
		RefreshInterval: time.Duration(cfg.TZRefreshMinutes) * time.Minute,
	}, logger)
	clk.Start(ctx)
	defer clk.Stop()

	// Door relay
	relayClient := relay.NewClient(relay.Config{
		BaseURL:       cfg.RelayBaseURL,
		Channel:       cfg.RelayChannel,
		Timeout:       time.Duration(cfg.RelayTimeoutMs) * time.Millisecond,
		RetryAttempts: cfg.RelayRetryAttempts,
		RetryDelay:    time.Duration(cfg.RelayRetryDelayMs) * time.Millisecond,
		PulseDuration: time.Duration(cfg.RelayPulseMs) * time.Millisecond,
		OpenState:     relay.Action(cfg.RelayOpenState),
		NativePulse:   cfg.RelayNativePulse,
	}, logger)

	// Monitoring feed
	hub := realtime.NewHub(time.Duration(cfg.WSHeartbeatSeconds)*time.Second, logger)
	hub.Start(ctx)
	defer hub.Stop()

	// Services
	evaluator := service.NewComplianceEvaluator(identity, clk.Now)
	resolver := service.NewOperatorResolver(operators, cfg.GuardUserID, logger)
	engine := service.NewDecisionEngine(evaluator, ledger, relayClient, hub, resolver, clk, logger)

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:         logger,
		Addr:           cfg.HTTPAddr,
		Engine:         engine,
		Ledger:         ledger,
		Hub:            hub,
		ScanSecret:     cfg.ScanSecret,
		JWTSecret:      cfg.JWTSecret,
		ScanRatePerSec: cfg.ScanRatePerSec,
		ScanBurst:      cfg.ScanBurst,
	})

	go func() {
		logger.Info(ctx, "listening", "addr", cfg.HTTPAddr, "env", cfg.Env,
			"relay_configured", relayClient.Config().Enabled())
		if err := srv.Start(); err != nil {
			logger.Error(ctx, "server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
