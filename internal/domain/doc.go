// Package domain contains the core entities of Smera: spaces, the tasks inside
// them, the progress updates appended to tasks, and the plans that bound how
// much a user may do. It has no knowledge of storage or transport.
package domain
