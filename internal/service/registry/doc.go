// Package registry owns the catalog of schools and their credentials.
//
// It validates registrations, assigns school identifiers, answers search and
// lookup queries, and grows a school's building list. The catalog is
// persisted as a snapshot through the school repository.
package registry
