package safety

import "errors"

// The error taxonomy shared by every service. Callers classify failures with
// errors.Is against these sentinels; services add detail with fmt.Errorf and
// the %w verb so the kind survives wrapping.
var (
	// ErrValidation marks malformed or missing input. Caller's fault, never
	// retried, and the detail is safe to surface verbatim.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown school identifier.
	ErrNotFound = errors.New("school not found")
	// ErrAuth marks a credential mismatch. The message never says which part
	// of the credential was wrong.
	ErrAuth = errors.New("code incorrect")
	// ErrInvalidState marks an operation that is illegal in the current alert
	// state, e.g. cancelling when no alert is active.
	ErrInvalidState = errors.New("invalid state")
	// ErrStorage marks a failed durability write. Fatal to the request; the
	// caller must not assume the transition was recorded.
	ErrStorage = errors.New("storage failure")
)
