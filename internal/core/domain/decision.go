package domain

// WorkStatus classifies an employee's relationship to their assigned
// customer site at one point in time.
type WorkStatus string

const (
	StatusWorking       WorkStatus = "WORKING"
	StatusNotAtCustomer WorkStatus = "NOT_AT_CUSTOMER"
	StatusIdle          WorkStatus = "IDLE"
	StatusNotWorking    WorkStatus = "NOT_WORKING"
)

// Reasons a task operation is blocked. Empty means not blocked.
const (
	BlockedOutsideGeofence = "OUTSIDE_GEOFENCE"
	BlockedNoTarget        = "NO_TARGET"
	BlockedInvalidLocation = "INVALID_LOCATION"
)

// Decision is the canonical output of the decision engine for one
// employee-task pair at one point in time. The JSON field names are a
// stability contract: the map sidebar, the mobile screen, and the validator
// panel all render this object verbatim. Consumers must not re-derive status
// text from raw distance; duplicated status logic is the exact defect this
// type exists to prevent.
type Decision struct {
	WorkStatus         WorkStatus `json:"workStatus"`
	DistanceToCustomer *float64   `json:"distanceToCustomer"` // meters, unrounded; nil when no target
	WithinGeofence     bool       `json:"withinGeofence"`
	CanOperateTask     bool       `json:"canOperateTask"`
	BlockedReason      *string    `json:"blockedReason"` // nil when not blocked
	Message            string     `json:"message"`
}

// Blocked reports whether the decision carries a blocked reason.
func (d Decision) Blocked() bool {
	return d.BlockedReason != nil && *d.BlockedReason != ""
}
