// Package live implements the Live Playlist Publisher (§4.7): an
// on-demand per-camera child producing a rolling low-latency playlist,
// a parsed cache of its current (mediaSequence, partIndex), and the
// blocking `_HLS_msn`/`_HLS_part` wait semantics low-latency HLS
// clients expect.
//
// The on-disk file watch is grounded on the teacher's fsnotify-based
// ConfigWatcher (internal/config/hot_reload.go), generalized from
// reloading a single config file to watching a rolling playlist file
// per active camera. The blocking wait is implemented as a
// broadcast-channel condition per §9's design note ("blocking playlist
// waits use a condition variable or a broadcast channel").
package live
