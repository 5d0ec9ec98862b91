// Package job runs background work outside the request path.
//
// Jobs are persisted before they are queued, so work accepted by the API
// survives a restart: on Start the Runner reloads pending jobs and resets
// jobs that were interrupted mid-flight. The only job type today is the AI
// summary of a task, triggered when a progress note is added or when a user
// asks for a summary explicitly.
package job
