// Package finalizer implements the Segment Finalizer (§4.5): it turns a
// just-closed on-disk segment file into a durable, indexed Recording.
// Finalization is idempotent by unique filePath and tolerates the child
// process still renaming the file when the stat first runs.
//
// Grounded on the teacher's file-info probing in
// internal/mediamtx/recording_manager.go (os.Stat / os.IsNotExist around
// a just-rotated segment), generalized into a bounded stat-retry and
// wired to the store gateway instead of an in-memory session map.
package finalizer
