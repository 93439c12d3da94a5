package safety

import "time"

// EventKind classifies an alert transition in the ledger.
type EventKind string

const (
	// EventTriggered records a new alert being raised.
	EventTriggered EventKind = "triggered"
	// EventCancelled records an active alert being withdrawn. It always
	// follows an unmatched EventTriggered for the same principal.
	EventCancelled EventKind = "cancelled"
)

// AlertEvent is one immutable ledger entry. Events are append-only and
// ordered by Sequence within a school.
type AlertEvent struct {
	// SchoolID is the school the event belongs to.
	SchoolID string `json:"school_id"`
	// Principal is the session that caused the transition.
	Principal string `json:"principal"`
	// Kind is the transition recorded.
	Kind EventKind `json:"kind"`
	// Building is where the alert was located.
	Building string `json:"building"`
	// Room optionally narrows the location.
	Room string `json:"room,omitempty"`
	// Timestamp is when the transition happened.
	Timestamp time.Time `json:"timestamp"`
	// Sequence increases strictly per school and is assigned by the ledger
	// at write time. It breaks ties between equal timestamps.
	Sequence uint64 `json:"sequence"`
}
