// Package api is the HTTP surface of the Smera server. It decodes and
// validates requests, calls the services in internal/service and renders
// their results and errors as JSON.
//
// All error responses share the shared.ErrorResponse envelope. Internal error
// details are logged, redacted, and never sent to the client.
package api
