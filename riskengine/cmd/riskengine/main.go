package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/sentinelvnc/sentinel/common/logging"
	natsclient "github.com/sentinelvnc/sentinel/common/messaging/nats"
	"github.com/sentinelvnc/sentinel/riskengine/internal/config"
	"github.com/sentinelvnc/sentinel/riskengine/internal/handlers"
	"github.com/sentinelvnc/sentinel/riskengine/internal/publisher"
	"github.com/sentinelvnc/sentinel/riskengine/internal/repository"
	"github.com/sentinelvnc/sentinel/riskengine/internal/scoring"
	"github.com/sentinelvnc/sentinel/riskengine/internal/server"
	"github.com/sentinelvnc/sentinel/riskengine/internal/service"
	"github.com/sentinelvnc/sentinel/riskengine/internal/window"
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
		With(logging.Service("riskengine"))
	logging.SetDefault(logger)

	if err := run(cfg, logger.Logger); err != nil {
		logger.Error("risk engine stopped", logging.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	scorer := scoring.NewScorer(loadWeights(cfg.Correlation.WeightsFile, logger))
	go reloadWeightsOnHUP(ctx, scorer, cfg.Correlation.WeightsFile, logger)

	sinks := []publisher.Sink{publisher.NewHTTPSink(cfg.Publisher.ResponseURL, cfg.Auth.APIKey)}
	if cfg.NATS.Enabled {
		nc, err := natsclient.NewClient(natsclient.Config{
			URL:           cfg.NATS.URL,
			Name:          "sentinel-riskengine",
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
			Timeout:       5 * time.Second,
		})
		if err != nil {
			logger.Warn("NATS unavailable, publishing over HTTP only", logging.Error(err))
		} else {
			defer nc.Close()
			sinks = append(sinks, publisher.NewNATSSink(nc))
			logger.Info("NATS publishing enabled", slog.String("url", cfg.NATS.URL))
		}
	}

	pub := publisher.New(publisher.Config{
		QueueSize:   cfg.Publisher.QueueSize,
		SendTimeout: cfg.Publisher.Timeout,
	}, logger, sinks...)

	store := window.NewStore(cfg.Correlation.Window, logger)
	svc := service.NewService(store, scorer, repo, pub, service.WithLogger(logger))
	handler := handlers.NewHandler(svc, repo, logger)

	if cfg.Auth.APIKey == "" {
		logger.Warn("auth.api_key is empty, internal endpoints are unauthenticated")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.NewRouter(handler, cfg.Auth.APIKey),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("risk engine listening",
			slog.String("addr", srv.Addr),
			slog.Duration("window", cfg.Correlation.Window),
			slog.String("response_url", cfg.Publisher.ResponseURL))
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
	if err := pub.Close(shutdownCtx); err != nil {
		logger.Warn("publisher did not drain", logging.Error(err))
	}
	logger.Info("server stopped gracefully")
	return nil
}

func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Repository, error) {
	if cfg.Database.Type != "postgres" {
		logger.Info("using in-memory incident registry")
		return repository.NewInMemoryRepository(), nil
	}

	connString := cfg.Database.Postgres.ConnString()

	logger.Info("running database migrations")
	m, err := migrate.New(cfg.Database.Postgres.Migrations, connString)
	if err != nil {
		return nil, fmt.Errorf("initialize migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo, err := repository.NewPostgresRepository(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	logger.Info("using PostgreSQL incident registry", slog.String("host", cfg.Database.Postgres.Host))
	return repo, nil
}

func loadWeights(path string, logger *slog.Logger) scoring.Weights {
	w, err := scoring.LoadWeights(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("risk weights file not found, every event type weighs 0", slog.String("path", path))
		return scoring.Weights{}
	case err != nil:
		logger.Error("risk weights unreadable, every event type weighs 0", slog.String("path", path), logging.Error(err))
		return scoring.Weights{}
	}
	logger.Info("loaded risk weights", slog.String("path", path), slog.Int("types", len(w)))
	return w
}

// reloadWeightsOnHUP swaps the weight table when the process gets SIGHUP.
func reloadWeightsOnHUP(ctx context.Context, scorer *scoring.Scorer, path string, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			w, err := scoring.LoadWeights(path)
			if err != nil {
				logger.Error("weights reload failed, keeping current table", logging.Error(err))
				continue
			}
			scorer.SetWeights(w)
			logger.Info("reloaded risk weights", slog.Int("types", len(w)))
		}
	}
}
