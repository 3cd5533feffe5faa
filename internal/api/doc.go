// Package api implements the optional HTTP status server.
//
// This package provides:
//   - GET /healthz for liveness checks and buffer health
//   - GET /api/v1/status with the forwarder's state and counters
//   - GET /metrics with the Prometheus registry
//   - Middleware stack (request ID, logging, recovery)
//
// The server is read-only and binds to loopback by default. It never sits
// on the reading path: a slow or failing request cannot delay a Log call.
package api
