// Package quota enforces plan-based usage limits.
//
// Monthly features (AI parsing and AI summaries) are metered with counters
// kept by a store.UsageStore and keyed by the first instant of the calendar
// month in UTC. Spaces are a standing count checked against the plan limit
// when a new space is created.
package quota
