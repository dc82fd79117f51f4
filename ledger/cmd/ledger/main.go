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

	"github.com/redis/go-redis/v9"

	"github.com/sentinelvnc/sentinel/common/logging"
	"github.com/sentinelvnc/sentinel/ledger/internal/config"
	"github.com/sentinelvnc/sentinel/ledger/internal/handlers"
	"github.com/sentinelvnc/sentinel/ledger/internal/server"
	"github.com/sentinelvnc/sentinel/ledger/internal/store"
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
		With(logging.Service("ledger"))
	logging.SetDefault(logger)

	if err := run(cfg, logger.Logger); err != nil {
		logger.Error("ledger gateway stopped", logging.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	anchors, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer anchors.Close()

	if cfg.Auth.APIKey == "" {
		logger.Warn("auth.api_key is empty, anchor endpoints are unauthenticated")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.NewRouter(handlers.NewHandler(anchors, logger), cfg.Auth.APIKey),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ledger gateway listening",
			slog.String("addr", srv.Addr),
			slog.String("store", cfg.Store.Type))
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

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if cfg.Store.Type != "redis" {
		s, err := store.NewFileStore(cfg.Store.DataDir)
		if err != nil {
			return nil, err
		}
		logger.Info("using file anchor store", slog.String("data_dir", cfg.Store.DataDir))
		return s, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("using redis anchor store", slog.String("addr", cfg.Redis.Addr), slog.String("key", cfg.Redis.Key))
	return store.NewRedisStore(client, cfg.Redis.Key), nil
}
