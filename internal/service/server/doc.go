// Package server wires the campus-safety services together and runs the HTTP
// server process.
//
// Run loads configuration, restores persisted state (school catalog and alert
// ledger replay), mounts the API router and blocks until shutdown.
package server
