package config_test

import (
	"strings"
	"testing"

	"github.com/samirrijal/fieldtrace/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("fieldtrace-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("unexpected default nats url: %s", cfg.NATS.URL)
	}
	if cfg.Tracking.GeofenceRadiusM != 200 {
		t.Errorf("expected default geofence radius 200, got %f", cfg.Tracking.GeofenceRadiusM)
	}
	if cfg.Tracking.StopDistanceM != 20 || cfg.Tracking.StopMinMinutes != 20 {
		t.Errorf("unexpected stop thresholds: %f m / %f min",
			cfg.Tracking.StopDistanceM, cfg.Tracking.StopMinMinutes)
	}
	if cfg.Tracking.OfflineAfterSec != 300 {
		t.Errorf("expected offline after 300s, got %d", cfg.Tracking.OfflineAfterSec)
	}
	if cfg.Temporal.TaskQueue != "fieldtrace-idle-alerts" {
		t.Errorf("unexpected task queue: %s", cfg.Temporal.TaskQueue)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FIELDTRACE_SERVER_PORT", "9999")
	t.Setenv("FIELDTRACE_TRACKING_GEOFENCE_RADIUS_M", "150")

	cfg, err := config.Load("fieldtrace-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("expected env port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Tracking.GeofenceRadiusM != 150 {
		t.Errorf("expected env radius 150, got %f", cfg.Tracking.GeofenceRadiusM)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg, err := config.Load("fieldtrace-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg.Server.Port = 0
	cfg.Database.Host = ""
	cfg.Tracking.StopDistanceM = -1

	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"server.port", "database.host", "tracking.stop_distance_m"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected error to mention %s, got: %s", want, msg)
		}
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := config.DatabaseConfig{
		Host: "db", Port: 5432, User: "ft", Password: "secret",
		DBName: "fieldtrace", SSLMode: "disable",
	}
	want := "postgres://ft:secret@db:5432/fieldtrace?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("dsn mismatch:\n got %s\nwant %s", got, want)
	}
}
