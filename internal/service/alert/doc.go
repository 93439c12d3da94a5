// Package alert implements the per-school alert state machine.
//
// Each (school, principal) pair is either Idle or Active. Triggering while
// Active is absorbed without a duplicate ledger entry; cancelling while Idle
// is an error so caller bugs surface instead of being masked. Every
// transition is recorded in the history ledger before the live set changes,
// and the updated full-state snapshot is published to the notification hub.
package alert
