// Package ingest implements the Ingest Supervisor: one long-running
// transcoder child process per camera, spawned, watched via its stderr
// stream, restarted on crash after a cool-off, and stopped gracefully on
// demand.
//
// Grounded on the teacher's internal/mediamtx/ffmpeg_manager.go process
// lifecycle (spawn, graceful-then-forced stop, per-PID tracking under a
// mutex) and internal/camera/hybrid_monitor.go's per-camera goroutine +
// map-of-handles concurrency pattern. The child-process contract itself
// (RTSP in, segmented fMP4 out, "Opening '<path>'" stderr markers) is
// opaque to this package per the external transcoder contract.
package ingest
