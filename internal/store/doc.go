// Package store is the Metadata Store Gateway (§4.2): CRUD over Camera,
// Recording, SystemConfig with bounded retry and a circuit breaker
// guarding against retry storms when the backing store is down for an
// extended period (SPEC_FULL.md SUPPLEMENTED FEATURES §1).
//
// Grounded on the teacher's internal/mediamtx/circuit_breaker.go
// (closed/open/half-open state machine) wrapping a Gateway
// implementation the way recording_manager.go wraps ffmpegManager calls.
package store
