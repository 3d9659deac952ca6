package domain

import "time"

// DefaultGeofenceRadiusMeters is used when a customer address carries no
// explicit radius.
const DefaultGeofenceRadiusMeters = 200.0

// Employee is a field employee known to the backend.
type Employee struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// EmployeeStatus is the live presence state of a tracked employee.
type EmployeeStatus string

const (
	EmployeeOnline  EmployeeStatus = "ONLINE"
	EmployeeIdle    EmployeeStatus = "IDLE"
	EmployeeOffline EmployeeStatus = "OFFLINE"
)

// TrackedEmployee is the live-tracking record for one employee. Owned
// exclusively by the session store; mutated only by inbound stream events
// for that employee. Entries are never deleted, only marked OFFLINE.
type TrackedEmployee struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Role         string         `json:"role"`
	LastPosition *Position      `json:"last_position,omitempty"`
	Status       EmployeeStatus `json:"status"`
	LastDecision *Decision      `json:"last_decision,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// GeofenceTarget is the circular geofence around a task's customer address.
// Created when a task is assigned an address and immutable thereafter; a new
// address selection produces a new target.
type GeofenceTarget struct {
	GeoPoint
	RadiusMeters float64 `json:"radius_meters"`
}

// Task is the unit of field work. Target is nil while no customer address
// is assigned.
type Task struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employee_id"`
	Title      string          `json:"title"`
	Target     *GeofenceTarget `json:"target,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// PunchRecord marks an employee as actively working a task.
type PunchRecord struct {
	EmployeeID  string     `json:"employee_id"`
	TaskID      string     `json:"task_id"`
	PunchInTime time.Time  `json:"punch_in_time"`
	PunchOut    *time.Time `json:"punch_out_time,omitempty"`
}

// RouteSample is one point of an employee's historical trail for a day.
// Read-only once recorded.
type RouteSample struct {
	GeoPoint
	Time    time.Time `json:"time"`
	Address string    `json:"address,omitempty"`
}

// Stop is a reconstructed interval where an employee was stationary.
// Derived from route samples, never persisted by the detection layer.
type Stop struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes float64   `json:"duration_minutes"`
	Lat             float64   `json:"lat"`
	Lng             float64   `json:"lng"`
	Address         string    `json:"address,omitempty"`
}

// IdleHeatSample is a weighted point for idle-heatmap rendering.
type IdleHeatSample struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Weight float64 `json:"weight"` // 0..1
}

// Idle severity tiers, exact thresholds on heat weight.
type IdleSeverity string

const (
	SeverityLow    IdleSeverity = "low"
	SeverityMedium IdleSeverity = "medium"
	SeverityHigh   IdleSeverity = "high"
)

// IdleAlert is emitted for stops that cross the alerting tiers.
type IdleAlert struct {
	EmployeeID string       `json:"employee_id"`
	Stop       Stop         `json:"stop"`
	Weight     float64      `json:"weight"`
	Severity   IdleSeverity `json:"severity"`
}

// LiveUpdate is the message published for every processed position sample.
// Field names are a stability contract for map markers, list panels, and the
// mobile screen; the embedded decision is rendered as-is by all of them.
type LiveUpdate struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Role     string         `json:"role"`
	Lat      float64        `json:"lat"`
	Lng      float64        `json:"lng"`
	Status   EmployeeStatus `json:"status"`
	Decision Decision       `json:"decision"`
}
