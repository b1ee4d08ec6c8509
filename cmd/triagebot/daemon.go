package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"triagebot/internal/audit"
	"triagebot/internal/bus"
	"triagebot/internal/channel"
	"triagebot/internal/config"
	"triagebot/internal/domain"
	"triagebot/internal/knowledge"
	"triagebot/internal/metrics"
	"triagebot/internal/provider"
	"triagebot/internal/triage"

	"github.com/spf13/cobra"
)

const restartNotice = "✅ Bot restarted and active"

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the assistant daemon",
		RunE:  runDaemon,
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		// Configuration errors are fatal: refuse to serve traffic.
		return err
	}

	logger, err = setupLogger(cfg)
	if err != nil {
		return err
	}
	logger.Info("starting triagebot", "version", version, "mode", cfg.Telegram.Mode)

	kb, err := knowledge.Load(cfg.Knowledge.Path, logger)
	if err != nil {
		return err
	}

	var auditStore domain.AuditStore = audit.NopStore{}
	if cfg.Audit.Enabled {
		store, err := audit.NewSQLiteStore(cfg.Audit.DBPath, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		auditStore = store
	}

	factory := provider.NewFactory(cfg, logger)
	completer, err := factory.Get("")
	if err != nil {
		// Degraded mode: the classifier folds a missing completer into
		// cannot-answer, so the assistant still escalates instead of dying.
		logger.Warn("completion service unavailable, running degraded", "err", err)
		completer = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tg, err := channel.NewTelegram(channel.TelegramConfig{
		Token:  cfg.Telegram.Token,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	auth := triage.NewAuthConfig(
		cfg.Triage.Operators,
		int64(cfg.Triage.ModerationChatID),
		cfg.Triage.ChatAllowlist,
	)
	state := triage.NewState()

	classifier := triage.NewClassifier(triage.ClassifierConfig{
		Completer:   completer,
		Knowledge:   kb,
		Timeout:     time.Duration(cfg.Triage.ClassifyTimeoutSeconds) * time.Second,
		Temperature: cfg.Triage.Temperature,
		MaxTokens:   cfg.Triage.MaxAnswerTokens,
		Logger:      logger,
	})

	admin := triage.NewAdmin(triage.AdminConfig{
		Auth:       auth,
		State:      state,
		Knowledge:  kb,
		Classifier: classifier,
		Audit:      auditStore,
		API:        tg,
		Logger:     logger,
	})

	handler := triage.NewHandler(triage.HandlerConfig{
		Gate:                triage.NewGate(auth, state, logger),
		Classifier:          classifier,
		Deliverer:           triage.NewDeliverer(tg, logger),
		Notifier:            triage.NewNotifier(tg, auth, auditStore, logger),
		Retractor:           triage.NewRetractor(auth, tg, cfg.Triage.DownvoteEmoji, auditStore, logger),
		Admin:               admin,
		API:                 tg,
		ReplyOnCannotAnswer: cfg.Triage.ReplyOnCannotAnswer,
		Logger:              logger,
	})

	eventBus := bus.New(100, logger)
	defer eventBus.Close()

	go handler.Run(ctx, eventBus, cfg.General.MaxConcurrentEvents)

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics.ListenAddr)
	}

	tg.NotifyOperators(ctx, auth.OperatorIDs(), restartNotice)

	if cfg.Telegram.Mode == "webhook" {
		srv := channel.NewWebhookServer(channel.WebhookServerConfig{
			Telegram:   tg,
			Domain:     cfg.Telegram.Webhook.Domain,
			Path:       cfg.Telegram.Webhook.Path,
			ListenAddr: cfg.Telegram.Webhook.ListenAddr,
			Health:     admin.Snapshot,
			Logger:     logger,
		})
		return srv.Start(ctx, eventBus)
	}
	return tg.Start(ctx, eventBus)
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", metrics.Collector.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server starting", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", "err", err)
	}
}
