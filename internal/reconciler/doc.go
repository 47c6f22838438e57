// Package reconciler implements the Orphan Reconciler (§4.6): a forward
// sweep that marks Recording rows deleted when their file is gone, a
// reverse sweep that imports on-disk segments the index doesn't know
// about, and bottom-up empty-directory cleanup.
//
// Grounded on the teacher's directory-walking style in
// internal/mediamtx/path_manager.go / path_utils.go, generalized from
// MediaMTX path-name bookkeeping to a filepath.WalkDir-based recordings
// tree scan.
package reconciler
