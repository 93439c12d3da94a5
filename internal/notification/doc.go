// Package notification fans live-status snapshots out to subscribed
// administrator views.
//
// Delivery is fire-and-forget: snapshots are idempotent full state, so a slow
// subscriber is allowed to miss intermediate deliveries and must never block
// the trigger or cancel path.
package notification
