// Package service contains the application use cases of the Smera server.
// It coordinates the stores in internal/store, the quota enforcer, the AI
// collaborator and the background job pipeline.
//
// Every operation is scoped to the calling user: a resource owned by someone
// else is reported as ErrNotOwned, which the API layer renders exactly like a
// missing resource. Domain validation failures are returned wrapped by
// domain.Invalid so callers can test for domain.ErrValidation, and quota
// failures match quota.ErrQuotaExceeded.
package service
