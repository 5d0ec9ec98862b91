// Package events decouples the code that asks for background work from the
// code that schedules it.
//
// Services emit a JobRequestEvent through an EventEmitter; handlers
// registered on the emitter (see job.EventHandler) turn events into jobs.
// Services therefore never import the job runner.
package events
