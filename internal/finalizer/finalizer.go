package finalizer

import (
	"context"
	"os"
	"time"

	"github.com/camerarecorder/vms-core/internal/clock"
	"github.com/camerarecorder/vms-core/internal/domain"
	"github.com/camerarecorder/vms-core/internal/logging"
	"github.com/camerarecorder/vms-core/internal/store"
)

const (
	// segmentDurationSec is the nominal segment length (§3, §4.5 step 4).
	segmentDurationSec = 60
	// minSegmentBytes is the §4.5 step 3 incomplete-segment threshold.
	minSegmentBytes = 1024
	// statRetries and statRetryDelay are §4.5 step 2's bounded stat
	// retry, tolerating the child still renaming the file.
	statRetries    = 3
	statRetryDelay = 2 * time.Second
)

// Sleeper abstracts the stat-retry delay so tests run the ladder without
// real waits, mirroring package store's retry Sleeper.
type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// Stater abstracts os.Stat so tests can simulate a slow rename without
// touching the real filesystem.
type Stater interface {
	Stat(path string) (os.FileInfo, error)
}

type osStater struct{}

func (osStater) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }

// Finalizer implements the §4.5 contract. It is safe for concurrent use:
// multiple finalizations run in parallel and are idempotent by unique
// filePath.
type Finalizer struct {
	store   store.Gateway
	logger  *logging.Logger
	clk     clock.Clock
	stater  Stater
	sleeper Sleeper
}

// New constructs a Finalizer backed by the real filesystem and clock.
func New(gw store.Gateway, logger *logging.Logger, clk clock.Clock) *Finalizer {
	return &Finalizer{store: gw, logger: logger, clk: clk, stater: osStater{}, sleeper: realSleeper{}}
}

// Finalize implements §4.5 steps 1-7 for one (camera, path, startInstant)
// triple handed off by the ingest watcher on a segment transition or
// child exit.
func (f *Finalizer) Finalize(ctx context.Context, camera domain.Camera, path string, startInstant time.Time) error {
	if _, found, err := f.store.RecordingByPath(ctx, path); err != nil {
		return err
	} else if found {
		return nil
	}

	info, err := f.statWithRetry(path)
	if err != nil {
		if os.IsNotExist(err) {
			f.logger.WithFields(logging.Fields{"path": path}).Warn("segment vanished before finalization, skipping")
			return nil
		}
		return err
	}

	if info.Size() < minSegmentBytes {
		f.logger.WithFields(logging.Fields{"path": path, "size": info.Size()}).Info("discarding incomplete segment below minimum size")
		return nil
	}

	endTime := startInstant.Add(segmentDurationSec * time.Second)
	retentionDays, err := f.effectiveRetentionDays(ctx, camera)
	if err != nil {
		return err
	}
	retentionInstant := startInstant.AddDate(0, 0, retentionDays)

	rec := domain.Recording{
		CameraID:         camera.ID,
		FilePath:         path,
		StartTime:        startInstant,
		EndTime:          endTime,
		DurationSec:      segmentDurationSec,
		SizeBytes:        info.Size(),
		Status:           domain.RecordingStatusCompleted,
		RetentionInstant: retentionInstant,
		Metadata: domain.RecordingMetadata{
			Codec:            camera.StreamProfile.Codec,
			ResolutionWidth:  camera.StreamProfile.ResolutionWidth,
			ResolutionHeight: camera.StreamProfile.ResolutionHeight,
			BitrateKbps:      camera.StreamProfile.BitrateKbps,
			FPS:              camera.StreamProfile.FPS,
		},
	}

	if _, err := f.store.RecordingInsert(ctx, rec); err != nil {
		if domain.KindOf(err) != domain.DuplicateFilePath {
			return err
		}
	}

	now := f.clk.Now()
	if err := f.store.CameraPatchState(ctx, camera.ID, domain.CameraState{Connection: domain.ConnectionOnline, LastSeen: now}); err != nil {
		f.logger.WithFields(logging.Fields{"camera": camera.ID, "error": err.Error()}).Warn("failed to patch camera state after finalization")
	}
	return nil
}

func (f *Finalizer) statWithRetry(path string) (os.FileInfo, error) {
	var lastErr error
	for attempt := 0; attempt < statRetries; attempt++ {
		info, err := f.stater.Stat(path)
		if err == nil {
			return info, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
		lastErr = err
		if attempt < statRetries-1 {
			f.sleeper.Sleep(statRetryDelay)
		}
	}
	return nil, lastErr
}

// effectiveRetentionDays resolves camera.recordingPolicy.retentionDays,
// falling back to the SystemConfig default (§3).
func (f *Finalizer) effectiveRetentionDays(ctx context.Context, camera domain.Camera) (int, error) {
	if camera.RecordingPolicy.RetentionDays > 0 {
		return camera.RecordingPolicy.RetentionDays, nil
	}
	v, err := f.store.ConfigGet(ctx, domain.KeyRetentionDays, 30)
	if err != nil {
		return 0, err
	}
	days, ok := v.(int)
	if !ok || days <= 0 {
		return 30, nil
	}
	return days, nil
}
