// Package store defines the persistence interfaces of the smera server and
// the error taxonomy their implementations return. Services depend on these
// interfaces; internal/platform/postgres implements them.
package store
