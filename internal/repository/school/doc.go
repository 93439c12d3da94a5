// Package school implements persistence for the school catalog.
//
// The FileRepository stores and loads the whole catalog as JSON on disk and
// exposes a Repository interface the registry service depends on. A Memory
// implementation backs tests.
package school
