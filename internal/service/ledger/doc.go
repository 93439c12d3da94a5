// Package ledger maintains the append-only history of alert transitions.
//
// It assigns per-school monotonic sequence numbers, writes every event through
// the durable repository before acknowledging it, and serves ordered reads
// for administrator history views and startup replay. An unrecorded alert
// transition is safety-relevant data loss, so append failures are surfaced,
// never swallowed.
package ledger
