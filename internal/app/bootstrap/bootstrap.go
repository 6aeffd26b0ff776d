package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"

	votingservice "quorum/contexts/member-governance/voting-service"
	postgresadapter "quorum/contexts/member-governance/voting-service/adapters/postgres"
	workerapp "quorum/contexts/member-governance/voting-service/application/workers"
	"quorum/internal/platform/config"
	"quorum/internal/platform/db"
	"quorum/internal/platform/httpserver"
	"quorum/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres      *db.Postgres
	sweeper       workerapp.SessionSweeper
	outboxRelay   workerapp.OutboxRelay
	sweepEnabled  bool
	relayEnabled  bool
	sweepInterval time.Duration
	logger        *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := votingservice.NewModule(votingservice.Dependencies{
		Topics:    repo,
		Sessions:  repo,
		Ballots:   repo,
		Outbox:    repo,
		OutboxSrc: repo,
		Clock:     postgresadapter.SystemClock{},
		IDGen:     postgresadapter.UUIDGenerator{},
		BatchSize: cfg.OutboxBatchSize,
		Logger:    logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	bus := messaging.NewBus(logger)
	repo := postgresadapter.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		sweeper: workerapp.SessionSweeper{
			Sessions: repo,
			Outbox:   repo,
			Clock:    postgresadapter.SystemClock{},
			IDGen:    postgresadapter.UUIDGenerator{},
			Logger:   logger,
		},
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: bus,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		sweepEnabled:  cfg.EnableSessionSweeper,
		relayEnabled:  cfg.EnableOutboxRelay,
		sweepInterval: time.Duration(cfg.SweepIntervalSeconds) * time.Second,
		logger:        logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"sweep_interval", w.sweepInterval.String(),
	)

	// A failed pass must not kill the worker. Store outages are transient;
	// expired sessions stay open until the next tick picks them up.
	for {
		if w.sweepEnabled {
			if err := w.sweeper.RunOnce(ctx); err != nil {
				w.logger.Error("session sweep pass failed",
					"event", "bootstrap_sweep_failed",
					"module", "internal/app/bootstrap",
					"layer", "platform",
					"error", err.Error(),
				)
			}
		}
		if w.relayEnabled {
			if err := w.outboxRelay.RunOnce(ctx); err != nil {
				w.logger.Error("outbox relay pass failed",
					"event", "bootstrap_relay_failed",
					"module", "internal/app/bootstrap",
					"layer", "platform",
					"error", err.Error(),
				)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
