package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/fieldtrace/internal/adapters/postgres"
	"github.com/samirrijal/fieldtrace/internal/adapters/valkey"
	"github.com/samirrijal/fieldtrace/internal/core/ports"
	"github.com/samirrijal/fieldtrace/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Live      *usecases.LiveTrackingService
	History   *usecases.RouteHistoryService
	Tasks     ports.TaskRepository
	Employees ports.EmployeeRepository
	Punches   ports.PunchRepository
	Positions ports.PositionSource
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
}
