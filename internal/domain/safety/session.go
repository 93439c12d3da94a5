package safety

import "time"

// Role distinguishes what a session is allowed to do.
type Role string

const (
	// RoleStudent is issued for a correct join secret. Students raise and
	// cancel their own alerts.
	RoleStudent Role = "student"
	// RoleAdmin is issued for a correct admin secret. Administrators observe
	// live status and audit history.
	RoleAdmin Role = "admin"
)

// Session is a capability token: holding it proves a successful credential
// check against one school. It carries no further mutable state.
type Session struct {
	// ID is the opaque principal identifier. At most one alert may be active
	// per session per school.
	ID string
	// SchoolID scopes the session to the school whose secret was presented.
	SchoolID string
	// Role records which secret was matched.
	Role Role
	// EstablishedAt is when the credential check succeeded. Callers may layer
	// expiry on top of it; the core does not.
	EstablishedAt time.Time
}

// Clone returns a copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}
