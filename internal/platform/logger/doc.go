// Package logger configures log/slog for the smera binaries: JSON on stdout
// for the server, text on stderr for the CLI. Request-scoped loggers travel in
// the context via WithLogger and FromContext.
package logger
