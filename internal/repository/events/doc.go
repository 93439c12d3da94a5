// Package events implements durable storage for the alert ledger.
//
// The FileRepository appends one JSON line per AlertEvent to a log file and
// reads the whole log back for startup replay. Append is the durability
// barrier of the whole system: an event is only acknowledged after it reached
// the file. A Memory implementation backs tests.
package events
