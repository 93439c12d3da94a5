package safety

import "time"

// Message is one chat relay entry. The relay carries no business logic beyond
// per-school ordering and delivery.
type Message struct {
	// SchoolID is the school the message belongs to.
	SchoolID string `json:"school_id"`
	// SenderRole records whether a student or an administrator wrote it.
	SenderRole Role `json:"sender_role"`
	// Text is the message body.
	Text string `json:"text"`
	// Timestamp is when the message was posted.
	Timestamp time.Time `json:"timestamp"`
	// Sequence increases strictly per school, mirroring the alert ledger.
	Sequence uint64 `json:"sequence"`
}
