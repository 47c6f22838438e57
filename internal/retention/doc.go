// Package retention implements the three-phase eviction run described in
// §4.9: time-based expiry, storage-quota enforcement, and disk-safety
// enforcement, followed by a trailing orphan-reconciler pass.
//
// Disk-usage percent is read via gopsutil, grounded on the teacher's
// SystemMetricsManager.calculateDiskUsage
// (internal/mediamtx/system_metrics_manager.go). The "already running"
// de-dup (§5: "at most one retention run is in flight") is grounded on
// golang.org/x/sync/singleflight, used the way the rest of the pack
// reaches for x/sync primitives rather than a hand-rolled mutex-and-bool.
package retention
