package main

import (
	"context"
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/fieldtrace/internal/adapters/nats"
	"github.com/samirrijal/fieldtrace/internal/adapters/postgres"
	"github.com/samirrijal/fieldtrace/internal/core/usecases"
	"github.com/samirrijal/fieldtrace/internal/pkg/config"
	"github.com/samirrijal/fieldtrace/internal/workflows"
)

func main() {
	cfg, err := config.Load("fieldtrace-alerter")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.IdleAlertWorkflow)
	w.RegisterActivity(&workflows.IdleAlertActivities{
		Employees:  postgres.NewEmployeeRepo(db),
		Routes:     postgres.NewRouteSampleRepo(db),
		StopEvents: postgres.NewStopEventRepo(db),
		Detector: usecases.NewStopDetector(usecases.StopDetectorConfig{
			StopDistanceMeters: cfg.Tracking.StopDistanceM,
			StopMinMinutes:     cfg.Tracking.StopMinMinutes,
		}),
		Aggregator: usecases.NewIdleAggregator(),
		Publisher:  pub,
	})

	log.Println("alerter worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
