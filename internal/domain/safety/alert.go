package safety

import "time"

// AlertState is one currently-active distress signal. A school's live status
// is the set of active AlertStates, keyed by principal.
type AlertState struct {
	// Principal identifies the session that raised the alert. At most one
	// active state exists per principal per school.
	Principal string
	// SchoolID is the school the alert belongs to.
	SchoolID string
	// Building is where help is needed. Always one of the school's
	// registered buildings.
	Building string
	// Room optionally narrows the location inside the building.
	Room string
	// StartedAt is when the alert was first raised. Re-triggering does not
	// refresh it, so duration reporting stays accurate.
	StartedAt time.Time
}

// Clone returns a copy of the alert state.
func (a *AlertState) Clone() *AlertState {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}
