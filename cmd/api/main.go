package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketpulse/internal/api"
	"marketpulse/internal/config"
	"marketpulse/internal/logger"
	"marketpulse/internal/metrics"
	"marketpulse/internal/observability"
	"marketpulse/internal/providers"
	"marketpulse/internal/storage"

	tclient "go.temporal.io/sdk/client"
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns)
	if err != nil {
		lg.Fatal("postgres connect failed", "error", err)
	}
	defer db.Close()
	pm, err := providers.NewManager(cfg)
	if err != nil {
		lg.Fatal("providers init failed", "error", err)
	}
	tc, err := tclient.Dial(tclient.Options{
		HostPort:  cfg.Temporal.Address,
		Namespace: cfg.Temporal.Namespace,
		Logger:    lg,
	})
	if err != nil {
		lg.Fatal("temporal dial failed", "error", err)
	}
	defer tc.Close()

	srv := &http.Server{
		Addr:              cfg.App.APIAddr,
		Handler:           api.NewServer(cfg, lg, api.NewDeps(db, tc, pm)).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		lg.Info("marketpulse api listening", "addr", cfg.App.APIAddr, "llm_providers", cfg.Pipeline.LLMProviders, "embed_providers", cfg.Embedding.Providers)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("api server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("api shutdown", "error", err)
	}
}
