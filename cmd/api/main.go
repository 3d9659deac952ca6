package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/fieldtrace/internal/adapters/geocode"
	"github.com/samirrijal/fieldtrace/internal/adapters/http"
	natsadapter "github.com/samirrijal/fieldtrace/internal/adapters/nats"
	"github.com/samirrijal/fieldtrace/internal/adapters/postgres"
	"github.com/samirrijal/fieldtrace/internal/adapters/valkey"
	"github.com/samirrijal/fieldtrace/internal/core/ports"
	"github.com/samirrijal/fieldtrace/internal/core/usecases"
	"github.com/samirrijal/fieldtrace/internal/pkg/config"
	"github.com/samirrijal/fieldtrace/internal/pkg/logging"
	"github.com/samirrijal/fieldtrace/internal/pkg/resource"
	"github.com/samirrijal/fieldtrace/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("fieldtrace-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache. The API keeps serving without one; services skip the
	// read-through path on a nil cache, so cacheSvc must stay an untyped nil
	// when Valkey is down.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, running without cache", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Repos
	employeeRepo := postgres.NewEmployeeRepo(db)
	taskRepo := postgres.NewTaskRepo(db)
	punchRepo := postgres.NewPunchRepo(db)
	routeRepo := postgres.NewRouteSampleRepo(db)
	stopEventRepo := postgres.NewStopEventRepo(db)

	// Use cases
	engine := usecases.NewDecisionEngine(punchRepo, usecases.DecisionEngineConfig{
		DefaultRadiusMeters: cfg.Tracking.GeofenceRadiusM,
		IdleAfter:           time.Duration(cfg.Tracking.IdleThresholdMin) * time.Minute,
		MinMovementMeters:   cfg.Tracking.MinMovementM,
	})
	store := usecases.NewLiveSessionStore()
	liveSvc := usecases.NewLiveTrackingService(
		engine, store, employeeRepo, taskRepo, routeRepo, cacheSvc, pub, slog.Default())

	geocoderLoader := resource.NewLoader(func(ctx context.Context) (ports.Geocoder, error) {
		return geocode.New(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent, cacheSvc, slog.Default()), nil
	})
	historySvc := usecases.NewRouteHistoryService(
		routeRepo, stopEventRepo,
		usecases.NewStopDetector(usecases.StopDetectorConfig{
			StopDistanceMeters: cfg.Tracking.StopDistanceM,
			StopMinMinutes:     cfg.Tracking.StopMinMinutes,
		}),
		usecases.NewIdleAggregator(),
		cacheSvc, geocoderLoader, slog.Default())

	// Per-employee watch socket feed
	var positions ports.PositionSource
	if natsConn != nil {
		positions = natsadapter.NewPositionSource(natsConn)
	}

	deps := &http.Dependencies{
		Live:      liveSvc,
		History:   historySvc,
		Tasks:     taskRepo,
		Employees: employeeRepo,
		Punches:   punchRepo,
		Positions: positions,
		NATS:      natsConn,
		DB:        db,
		Cache:     cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "FieldTrace API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
