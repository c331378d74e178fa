// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/auth/postgres"
	"github.com/holomush/authcore/internal/config"
	"github.com/holomush/authcore/internal/observability"
	"github.com/holomush/authcore/internal/store"
)

// readinessTimeout bounds the database ping behind /healthz/readiness.
const readinessTimeout = 2 * time.Second

// Migrator is the part of store.Migrator the migrate commands use.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

// ObservabilityServer is the part of observability.Server that serve uses.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Registry() *prometheus.Registry
	SetLogger(logger *slog.Logger)
}

// Backend is a ready-to-use auth service and the resources behind it.
type Backend struct {
	Service *auth.Service
	// Ready reports whether storage is reachable.
	Ready observability.ReadinessChecker
	// Close releases storage resources.
	Close func()
}

// Deps contains injectable dependencies for the CLI commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// MigratorFactory creates a migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// BackendFactory connects storage and builds the auth service.
	// Default: PostgreSQL via store.Connect
	BackendFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *auth.Metrics) (*Backend, error)

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker) ObservabilityServer
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if out.BackendFactory == nil {
		out.BackendFactory = newPostgresBackend
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, ready)
		}
	}
	return &out
}

// newPostgresBackend connects to PostgreSQL and wires the auth service to it.
func newPostgresBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *auth.Metrics) (*Backend, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	pool, err := store.Connect(ctx, cfg.Database.URL, store.ConnectOptions{
		MaxRetries:     cfg.Database.ConnectRetries,
		InitialBackoff: cfg.Database.ConnectBackoff,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	svc, err := newService(cfg, logger, metrics,
		postgres.NewUserRepository(pool), postgres.NewTransactor(pool))
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &Backend{
		Service: svc,
		Ready:   store.ReadinessCheck(pool, readinessTimeout),
		Close:   pool.Close,
	}, nil
}

// newService builds an auth.Service from configuration.
func newService(cfg *config.Config, logger *slog.Logger, metrics *auth.Metrics, users auth.UserRepository, tx auth.Transactor) (*auth.Service, error) {
	clock := auth.SystemClock{}
	registry := auth.NewResetTokenRegistry(
		auth.WithTokenTTL(cfg.Auth.ResetTokenTTL),
		auth.WithRegistryClock(clock),
	)
	//nolint:wrapcheck // NewService errors are already descriptive
	return auth.NewService(users, tx,
		auth.NewBcryptHasher(auth.WithCost(cfg.Auth.BcryptCost)),
		auth.WithLogger(logger),
		auth.WithClock(clock),
		auth.WithMetrics(metrics),
		auth.WithResetTokens(registry),
	)
}
