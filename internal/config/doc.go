// Package config defines server settings and provides helpers to load,
// validate and save them in YAML format.
//
// The Config type holds the HTTP listen address, the data directory for
// persisted state, the log level and the operation timeouts.
package config
