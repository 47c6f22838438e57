package domain

import "time"

// RecordingStatus is the one-way lifecycle of a Recording: completed
// records may transition to deleted; neither transitions back.
type RecordingStatus string

const (
	RecordingStatusOpen      RecordingStatus = "recording"
	RecordingStatusCompleted RecordingStatus = "completed"
	RecordingStatusDeleted   RecordingStatus = "deleted"
)

// RecordingMetadata carries codec/container details plus the
// recovered-from-disk flag the orphan reconciler sets on imported
// segments (§4.6).
type RecordingMetadata struct {
	Codec             string
	ResolutionWidth   int
	ResolutionHeight  int
	BitrateKbps       int
	FPS               int
	RecoveredFromDisk bool
}

// RecordingID is a surrogate key minted by the store on insert.
type RecordingID string

// Recording is the index record for one closed segment file on disk. It
// is the unit of retention (§3, §8 P1-P3).
type Recording struct {
	ID               RecordingID
	CameraID         CameraID
	FilePath         string
	StartTime        time.Time
	EndTime          time.Time
	DurationSec      int
	SizeBytes        int64
	Status           RecordingStatus
	Protected        bool
	RetentionInstant time.Time
	Metadata         RecordingMetadata
}

// Overlaps reports whether the half-open interval [r.StartTime,
// r.EndTime) intersects [from, to) — used to enforce the no-overlap
// invariant (P2) and to find segments covering an export or playback
// request.
func (r *Recording) Overlaps(from, to time.Time) bool {
	return r.StartTime.Before(to) && from.Before(r.EndTime)
}

// Contains reports whether instant t falls within [r.StartTime,
// r.EndTime], matching streamByTime's "startTime ≤ t ≤ endTime" rule.
func (r *Recording) Contains(t time.Time) bool {
	return !t.Before(r.StartTime) && !t.After(r.EndTime)
}
