// Package health tracks per-component status and runs the periodic
// store-ping, supervisor-sweep, and retention loops named in §4.10/§5.
//
// HTTP exposure of this status (liveness/readiness probes) is left to
// the external thin gateway along with all other HTTP framing; this
// package only provides the HealthAPI/HealthMonitor data model and the
// Scheduler that drives the periodic checks and ordered shutdown drain.
//
// Key Components:
//   - HealthAPI: interface for health monitoring components
//   - HealthMonitor: component registration, status aggregation
//   - Scheduler: periodic store-ping/supervisor-sweep/retention tasks
//     plus the reverse-order graceful shutdown drain
//
// Health Status Semantics:
//   - healthy: all components operational
//   - degraded: some components failing but core functionality available
//   - unhealthy: critical components failing
package health
