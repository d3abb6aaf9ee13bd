package lending

// Role selects the multiplier applied to several thresholds. Staff patrons
// get more generous limits: doubled allowances and halved windows.
type Role int

const (
	// RoleRegular is the default patron role with unmodified thresholds.
	RoleRegular Role = iota

	// RoleStaff doubles count-based allowances and halves time windows.
	RoleStaff
)

// String provides a string representation of Role for logging and metrics.
func (r Role) String() string {
	switch r {
	case RoleRegular:
		return "regular"
	case RoleStaff:
		return "staff"
	default:
		return "unknown"
	}
}

// RoleFactors holds the uniform multipliers a role applies to thresholds.
// Count-based limits are multiplied by Count; time windows are divided by
// Window. Each rule reads one derived effective threshold instead of
// branching on the role internally.
type RoleFactors struct {
	Count  int
	Window int
}

// Factors returns the threshold multipliers for this role.
func (r Role) Factors() RoleFactors {
	if r == RoleStaff {
		return RoleFactors{Count: 2, Window: 2}
	}

	return RoleFactors{Count: 1, Window: 1}
}
