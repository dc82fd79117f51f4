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
	"github.com/sentinelvnc/sentinel/common/messaging"
	natsclient "github.com/sentinelvnc/sentinel/common/messaging/nats"
	"github.com/sentinelvnc/sentinel/respond/internal/client"
	"github.com/sentinelvnc/sentinel/respond/internal/config"
	"github.com/sentinelvnc/sentinel/respond/internal/handlers"
	respondnats "github.com/sentinelvnc/sentinel/respond/internal/nats"
	"github.com/sentinelvnc/sentinel/respond/internal/server"
	"github.com/sentinelvnc/sentinel/respond/internal/service"
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
		With(logging.Service("respond"))
	logging.SetDefault(logger)

	if err := run(cfg, logger.Logger); err != nil {
		logger.Error("respond service stopped", logging.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := service.NewService(
		client.NewProxyClient(cfg.Proxy.BaseURL, cfg.Proxy.APIKey),
		client.NewForensicsClient(cfg.Forensics.StartURL, cfg.Forensics.APIKey),
		cfg.Actions.Timeout,
		logger,
	)
	defer svc.Wait()

	var broker messaging.Client
	if cfg.NATS.Enabled {
		nc, err := natsclient.NewClient(natsclient.Config{
			URL:           cfg.NATS.URL,
			Name:          "sentinel-respond",
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
			Timeout:       5 * time.Second,
		})
		if err != nil {
			logger.Warn("NATS unavailable, HTTP intake only", logging.Error(err))
		} else {
			defer nc.Close()
			broker = nc
			natsHandler := respondnats.NewHandler(nc, svc, logger)
			if err := natsHandler.Start(); err != nil {
				logger.Warn("NATS subscription failed", logging.Error(err))
			} else {
				defer natsHandler.Stop()
			}
		}
	}

	if cfg.Auth.APIKey == "" {
		logger.Warn("auth.api_key is empty, /incoming-incident is unauthenticated")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.NewRouter(handlers.NewHandler(svc, broker, logger), cfg.Auth.APIKey),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("respond service listening",
			slog.String("addr", srv.Addr),
			slog.String("proxy", cfg.Proxy.BaseURL),
			slog.String("forensics", cfg.Forensics.StartURL))
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
	logger.Info("server stopped gracefully, draining in-flight responses")
	return nil
}
