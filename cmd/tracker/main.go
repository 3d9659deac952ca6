package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsadapter "github.com/samirrijal/fieldtrace/internal/adapters/nats"
	"github.com/samirrijal/fieldtrace/internal/adapters/postgres"
	"github.com/samirrijal/fieldtrace/internal/adapters/valkey"
	"github.com/samirrijal/fieldtrace/internal/core/usecases"
	"github.com/samirrijal/fieldtrace/internal/pkg/config"
	"github.com/samirrijal/fieldtrace/internal/pkg/logging"
	"github.com/samirrijal/fieldtrace/internal/pkg/metrics"
)

// The tracker is the decision-engine worker: it consumes position events
// from JetStream, runs each through the live tracking pipeline, and sweeps
// quiet sessions to OFFLINE.
func main() {
	cfg, err := config.Load("fieldtrace-tracker")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()

	// NATS publisher for live updates
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	// Pipeline
	engine := usecases.NewDecisionEngine(postgres.NewPunchRepo(db), usecases.DecisionEngineConfig{
		DefaultRadiusMeters: cfg.Tracking.GeofenceRadiusM,
		IdleAfter:           time.Duration(cfg.Tracking.IdleThresholdMin) * time.Minute,
		MinMovementMeters:   cfg.Tracking.MinMovementM,
	})
	store := usecases.NewLiveSessionStore()
	liveSvc := usecases.NewLiveTrackingService(
		engine, store,
		postgres.NewEmployeeRepo(db),
		postgres.NewTaskRepo(db),
		postgres.NewRouteSampleRepo(db),
		cache, pub, slog.Default())

	// Durable JetStream consumer
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	if err := sub.SubscribePositions(ctx, liveSvc.HandlePosition); err != nil {
		log.Fatalf("subscribe positions: %v", err)
	}

	// Offline sweeper
	staleAfter := time.Duration(cfg.Tracking.OfflineAfterSec) * time.Second
	sweepEvery := staleAfter / 5
	if sweepEvery < 10*time.Second {
		sweepEvery = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				liveSvc.SweepOffline(staleAfter)
			case <-ctx.Done():
				return
			}
		}
	}()

	// Metrics endpoint for scraping
	go metrics.Serve(":9091")

	slog.Info("tracker started",
		"stale_after", staleAfter.String(), "sweep_every", sweepEvery.String())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received", "signal", sig.String())
	cancel()
	// Let in-flight handlers finish before the NATS connections drain.
	time.Sleep(2 * time.Second)
}
