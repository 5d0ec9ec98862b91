// Package sqlite persists the offline mutation queue in a local SQLite file
// using zombiezen.com/go/sqlite. The database lives next to the CLI's config
// and survives restarts, so writes queued while offline are replayed after
// the process comes back.
package sqlite
