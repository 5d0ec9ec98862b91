// Package offline records task writes that could not reach the backend and
// replays them, in the order they were submitted, once connectivity returns.
//
// The queue owns each record between Enqueue and its terminal resolution:
// removal after a successful replay, or retirement after MaxRetries failed
// replays. Persistence is delegated to a Store, so the same queue runs over
// the in-memory store in tests and the SQLite store in the CLI.
package offline
