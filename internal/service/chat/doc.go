// Package chat is the thin per-school message relay.
//
// It carries no business logic beyond per-school ordering and delivery:
// messages get a monotonic sequence mirroring the alert ledger and are fanned
// out to connected observers.
package chat
