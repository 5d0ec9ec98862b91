// Package client is the CLI's HTTP client for the smera backend. Task writes
// double as the offline replay path (Client implements offline.Writer), AI
// calls run inside the retry executor and Health serves as the connectivity
// probe.
package client
