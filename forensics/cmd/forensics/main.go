package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sentinelvnc/sentinel/common/logging"
	natsclient "github.com/sentinelvnc/sentinel/common/messaging/nats"
	"github.com/sentinelvnc/sentinel/forensics/internal/config"
	"github.com/sentinelvnc/sentinel/forensics/internal/handlers"
	"github.com/sentinelvnc/sentinel/forensics/internal/server"
	"github.com/sentinelvnc/sentinel/forensics/internal/service"
	"github.com/sentinelvnc/sentinel/forensics/pkg/anchor"
	"github.com/sentinelvnc/sentinel/forensics/pkg/collector"
	"github.com/sentinelvnc/sentinel/forensics/pkg/manifest"
	"github.com/sentinelvnc/sentinel/forensics/pkg/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format).
		With(logging.Service("forensics"))
	logging.SetDefault(logger)

	if err := run(cfg, logger.Logger); err != nil {
		logger.Error("forensics service stopped", logging.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.Storage.DataRoot, 0o755); err != nil {
		return fmt.Errorf("create data root: %w", err)
	}

	layout := storage.NewLayout(cfg.Storage.DataRoot, cfg.Storage.SourcesRoot)
	ledger := anchor.NewClient(anchor.Config{
		AnchorURL: cfg.Ledger.AnchorURL,
		VerifyURL: cfg.Ledger.VerifyURL,
		APIKey:    cfg.Ledger.APIKey,
		Timeout:   cfg.Ledger.Timeout,
	}, logger)

	opts := []service.Option{service.WithLogger(logger)}
	if cfg.NATS.Enabled {
		nc, err := natsclient.NewClient(natsclient.Config{
			URL:           cfg.NATS.URL,
			Name:          "sentinel-forensics",
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
			Timeout:       5 * time.Second,
		})
		if err != nil {
			logger.Warn("NATS unavailable, capture notifications disabled", logging.Error(err))
		} else {
			defer nc.Close()
			opts = append(opts, service.WithNotifier(nc))
			logger.Info("NATS capture notifications enabled", slog.String("url", cfg.NATS.URL))
		}
	}

	svc := service.NewService(
		collector.New(layout, logger),
		manifest.NewStore(layout),
		manifest.Build,
		ledger,
		opts...,
	)

	if cfg.Auth.APIKey == "" {
		logger.Warn("auth.api_key is empty, internal endpoints are unauthenticated")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.NewRouter(handlers.NewHandler(svc, logger), cfg.Auth.APIKey),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("forensics service listening",
			slog.String("addr", srv.Addr),
			slog.String("data_root", cfg.Storage.DataRoot),
			slog.String("sources_root", cfg.Storage.SourcesRoot))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}
