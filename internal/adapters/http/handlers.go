package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/fieldtrace/internal/core/domain"
	"github.com/samirrijal/fieldtrace/internal/core/usecases"
)

// parseDate reads the ?date=YYYY-MM-DD query parameter, defaulting to today.
func parseDate(c *fiber.Ctx) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	return time.Parse("2006-01-02", raw)
}

// ListEmployeesHandler returns the live records for all tracked employees.
func ListEmployeesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		employees := deps.Live.Snapshot()

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 100
		}

		total := len(employees)
		if offset >= total {
			employees = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			employees = employees[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: employees, Pagination: pg})
	}
}

// GetEmployeeHandler returns one employee's live record. An employee known
// to the directory but never seen on the stream comes back OFFLINE with no
// position; an unknown id is a 404.
func GetEmployeeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "employee id is required")
		}
		if rec := deps.Live.Employee(id); rec != nil {
			return c.JSON(rec)
		}

		if deps.Employees != nil {
			emp, err := deps.Employees.GetByID(c.Context(), id)
			if err != nil {
				return errInternal(c, err.Error())
			}
			if emp != nil {
				return c.JSON(domain.TrackedEmployee{
					ID:     emp.ID,
					Name:   emp.Name,
					Role:   emp.Role,
					Status: domain.EmployeeOffline,
				})
			}
		}
		return errNotFound(c, "employee not found")
	}
}

// EmployeeDecisionHandler returns the employee's latest work-status decision.
func EmployeeDecisionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "employee id is required")
		}
		rec := deps.Live.Employee(id)
		if rec == nil || rec.LastDecision == nil {
			return errNotFound(c, "no decision recorded for employee")
		}
		return c.JSON(rec.LastDecision)
	}
}

// EmployeeRouteHandler returns the employee's trail for one day.
func EmployeeRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "employee id is required")
		}
		date, err := parseDate(c)
		if err != nil {
			return errBadRequest(c, "date must be YYYY-MM-DD")
		}

		samples, err := deps.History.GetRoute(c.Context(), id, date)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if samples == nil {
			samples = []domain.RouteSample{}
		}
		return c.JSON(samples)
	}
}

// EmployeeStopsHandler returns the employee's reconstructed stops for one day.
// ?source=events serves backend-precomputed stop events; the default
// recomputes from raw samples.
func EmployeeStopsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "employee id is required")
		}
		date, err := parseDate(c)
		if err != nil {
			return errBadRequest(c, "date must be YYYY-MM-DD")
		}

		source := usecases.StopSourceRecompute
		switch c.Query("source") {
		case "", "recompute":
		case "events":
			source = usecases.StopSourceEvents
		default:
			return errBadRequest(c, "source must be events or recompute")
		}

		stops, err := deps.History.GetStops(c.Context(), id, date, source)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if stops == nil {
			stops = []domain.Stop{}
		}
		return c.JSON(stops)
	}
}

// EmployeeHeatmapHandler returns weighted idle heat points for one day.
func EmployeeHeatmapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "employee id is required")
		}
		date, err := parseDate(c)
		if err != nil {
			return errBadRequest(c, "date must be YYYY-MM-DD")
		}

		heat, err := deps.History.Heatmap(c.Context(), id, date)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if heat == nil {
			heat = []domain.IdleHeatSample{}
		}
		return c.JSON(heat)
	}
}

// PunchOutHandler explicitly closes the employee's open punch on a task.
// Punch-in has no handler: it happens automatically on geofence entry.
func PunchOutHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		taskID := c.Query("task_id")
		if id == "" || taskID == "" {
			return errBadRequest(c, "employee id and task_id are required")
		}

		if err := deps.Punches.PunchOut(c.Context(), id, taskID, time.Now()); err != nil {
			return errConflict(c, err.Error())
		}
		return c.JSON(fiber.Map{"status": "punched out"})
	}
}

// GetTaskHandler returns a task with its geofence target.
func GetTaskHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "task id is required")
		}
		task, err := deps.Tasks.GetByID(c.Context(), id)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if task == nil {
			return errNotFound(c, "task not found")
		}
		return c.JSON(task)
	}
}

// CreateTaskHandler creates or updates a task.
func CreateTaskHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var task domain.Task
		if err := c.BodyParser(&task); err != nil {
			return errBadRequest(c, "invalid task payload")
		}
		if task.ID == "" || task.EmployeeID == "" {
			return errBadRequest(c, "id and employee_id are required")
		}
		if task.Target != nil && !task.Target.GeoPoint.Valid() {
			return errBadRequest(c, "target coordinates out of range")
		}

		if err := deps.Tasks.Upsert(c.Context(), &task); err != nil {
			return errInternal(c, err.Error())
		}
		return c.Status(201).JSON(task)
	}
}

// assignTargetRequest is the payload for attaching a customer address to a task.
type assignTargetRequest struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	RadiusMeters float64 `json:"radius_meters"`
}

// AssignTargetHandler attaches a new geofence target to a task. A target is
// immutable once set; posting again replaces it with a fresh one.
func AssignTargetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "task id is required")
		}

		var req assignTargetRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid target payload")
		}

		target := domain.GeofenceTarget{
			GeoPoint:     domain.GeoPoint{Lat: req.Lat, Lon: req.Lon},
			RadiusMeters: req.RadiusMeters,
		}
		if !target.GeoPoint.Valid() {
			return errBadRequest(c, "target coordinates out of range")
		}
		if target.RadiusMeters <= 0 {
			target.RadiusMeters = domain.DefaultGeofenceRadiusMeters
		}

		if err := deps.Tasks.AssignTarget(c.Context(), id, target); err != nil {
			return errNotFound(c, err.Error())
		}

		// The cached active task is stale now.
		if deps.Cache != nil {
			task, err := deps.Tasks.GetByID(c.Context(), id)
			if err == nil && task != nil {
				_ = deps.Cache.Delete(c.Context(), "task:active:"+task.EmployeeID)
			}
		}
		return c.JSON(target)
	}
}

// TrackingStats holds row counts from the tracking tables.
type TrackingStats struct {
	Employees    int    `json:"employees"`
	Tasks        int    `json:"tasks"`
	OpenPunches  int    `json:"open_punches"`
	RouteSamples int    `json:"route_samples"`
	StopEvents   int    `json:"stop_events"`
	LastSample   string `json:"last_sample,omitempty"`
}

// StatsHandler returns row counts from the tracking tables.
func StatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var stats TrackingStats
		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				(SELECT count(*) FROM employees),
				(SELECT count(*) FROM tasks),
				(SELECT count(*) FROM punches WHERE punch_out_time IS NULL),
				(SELECT count(*) FROM route_samples),
				(SELECT count(*) FROM stop_events),
				COALESCE((SELECT max(time)::text FROM route_samples), '')
		`)
		if err := row.Scan(&stats.Employees, &stats.Tasks, &stats.OpenPunches,
			&stats.RouteSamples, &stats.StopEvents, &stats.LastSample); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}
