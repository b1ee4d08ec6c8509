package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"triagebot/internal/domain"
)

// HealthFunc produces the snapshot served on the health endpoint.
type HealthFunc func(ctx context.Context) domain.HealthSnapshot

// WebhookServer receives Telegram updates over HTTPS instead of polling,
// and serves the liveness endpoint.
type WebhookServer struct {
	tg         *Telegram
	domainName string
	path       string
	listenAddr string
	health     HealthFunc
	logger     *slog.Logger
	server     *http.Server
}

type WebhookServerConfig struct {
	Telegram   *Telegram
	Domain     string
	Path       string
	ListenAddr string
	Health     HealthFunc
	Logger     *slog.Logger
}

func NewWebhookServer(cfg WebhookServerConfig) *WebhookServer {
	if cfg.Path == "" {
		cfg.Path = "/telegram/webhook"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "0.0.0.0:8443"
	}
	return &WebhookServer{
		tg:         cfg.Telegram,
		domainName: cfg.Domain,
		path:       cfg.Path,
		listenAddr: cfg.ListenAddr,
		health:     cfg.Health,
		logger:     cfg.Logger,
	}
}

// Start registers the webhook with Telegram and serves until ctx is
// cancelled.
func (w *WebhookServer) Start(ctx context.Context, bus domain.EventBus) error {
	w.tg.bus = bus

	publicURL := fmt.Sprintf("https://%s/%s",
		strings.TrimSuffix(w.domainName, "/"),
		strings.TrimPrefix(w.path, "/"),
	)
	if err := w.tg.RegisterWebhook(publicURL); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc(w.path, w.handleUpdate)
	mux.HandleFunc("/health", w.handleHealth)

	w.server = &http.Server{
		Addr:              w.listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	w.logger.Info("webhook server starting", "addr", w.listenAddr, "path", w.path)

	errCh := make(chan error, 1)
	go func() {
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		w.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return w.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	}
}

func (w *WebhookServer) handleUpdate(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(rw, "read error", http.StatusBadRequest)
		return
	}

	var update rawUpdate
	if err := json.Unmarshal(body, &update); err != nil {
		w.logger.Warn("malformed webhook update", "err", err)
		// Always 200: Telegram retries non-2xx responses and a poison
		// update would wedge the queue.
		rw.WriteHeader(http.StatusOK)
		return
	}

	w.tg.dispatch(update)
	rw.WriteHeader(http.StatusOK)
}

func (w *WebhookServer) handleHealth(rw http.ResponseWriter, r *http.Request) {
	snap := w.health(r.Context())
	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(snap); err != nil {
		w.logger.Warn("health encode failed", "err", err)
	}
}
