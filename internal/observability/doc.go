// Package observability provides structured logging for the proxy.
//
// This package implements:
//   - zap logger construction from configuration (json or console output)
//   - per-request access logging with request ID propagation
package observability
