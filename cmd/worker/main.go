package main

import (
	"context"
	"log"
	"time"

	"marketpulse/internal/activities"
	"marketpulse/internal/config"
	"marketpulse/internal/logger"
	"marketpulse/internal/metrics"
	"marketpulse/internal/observability"
	"marketpulse/internal/storage"
	"marketpulse/internal/workflows"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	lg, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer lg.Sync()

	metrics.Init()
	shutdown := observability.InitOTel(context.Background(), lg, cfg.Observability, cfg.App.Env)
	defer func() { _ = shutdown(context.Background()) }()
	tracker, err := observability.NewErrorTracker(cfg.Observability.SentryDSN, cfg.App.Env, cfg.Observability.Version)
	if err != nil {
		lg.Warn("sentry init failed, error tracking disabled", "error", err)
		tracker = observability.NopTracker{}
	}
	defer tracker.Flush(2 * time.Second)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.Address,
		Namespace: cfg.Temporal.Namespace,
		Logger:    lg,
	})
	if err != nil {
		lg.Fatal("temporal dial failed", "error", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns)
	if err != nil {
		lg.Fatal("postgres connect failed", "error", err)
	}
	defer db.Close()

	a, err := activities.New(cfg, db, lg, tracker)
	if err != nil {
		lg.Fatal("activities init failed", "error", err)
	}
	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, a)

	lg.Info("marketpulse worker listening", "temporal", cfg.Temporal.Address, "queue", cfg.Temporal.TaskQueue,
		"llm_providers", cfg.Pipeline.LLMProviders, "embed_providers", cfg.Embedding.Providers)
	if err := w.Run(worker.InterruptCh()); err != nil {
		lg.Fatal("worker stopped", "error", err)
	}
}
