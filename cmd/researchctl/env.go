package main

import (
	"context"
	"fmt"
	"time"

	"marketpulse/internal/config"
	"marketpulse/internal/logger"
	"marketpulse/internal/storage"

	tclient "go.temporal.io/sdk/client"
)

// env is what every subcommand needs: config, a Temporal client and the database.
type env struct {
	cfg config.Config
	log *logger.Logger
	tc  tclient.Client
	db  *storage.DB
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	lg, err := logger.New(cfg.App.Env, "warn")
	if err != nil {
		return nil, err
	}
	tc, err := tclient.Dial(tclient.Options{
		HostPort:  cfg.Temporal.Address,
		Namespace: cfg.Temporal.Namespace,
		Logger:    lg,
	})
	if err != nil {
		return nil, fmt.Errorf("dial temporal: %w", err)
	}
	dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(dbCtx, cfg.Postgres.URL, 2)
	if err != nil {
		tc.Close()
		return nil, err
	}
	return &env{cfg: cfg, log: lg, tc: tc, db: db}, nil
}

func (e *env) Close() {
	e.db.Close()
	e.tc.Close()
	e.log.Sync()
}
