package reconciler

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/camerarecorder/vms-core/internal/clock"
	"github.com/camerarecorder/vms-core/internal/domain"
	"github.com/camerarecorder/vms-core/internal/logging"
	"github.com/camerarecorder/vms-core/internal/store"
)

// RetentionOrphanAge and IntegrityOrphanAge are the two orphan-age
// thresholds §4.6 names: the longer one guards scheduled retention
// sweeps against racing a live writer, the shorter one is exposed to
// operators via the integrity API.
const (
	RetentionOrphanAge = 24 * time.Hour
	IntegrityOrphanAge = 2 * time.Minute
)

// Reconciler implements §4.6's forward sweep, reverse sweep, and
// empty-directory cleanup.
type Reconciler struct {
	store  store.Gateway
	logger *logging.Logger
	clk    clock.Clock
	root   string
}

func New(gw store.Gateway, logger *logging.Logger, clk clock.Clock, root string) *Reconciler {
	return &Reconciler{store: gw, logger: logger, clk: clk, root: root}
}

// ForwardSweep marks every non-deleted Recording whose file is absent on
// disk as deleted (§4.6 default behavior: "an absent file implies the
// recording is gone").
func (r *Reconciler) ForwardSweep(ctx context.Context) (markedDeleted int, err error) {
	recs, err := r.store.RecordingListNonDeleted(ctx)
	if err != nil {
		return 0, err
	}
	for _, rec := range recs {
		if _, statErr := os.Stat(rec.FilePath); os.IsNotExist(statErr) {
			if err := r.store.RecordingMarkDeleted(ctx, rec.ID); err != nil {
				r.logger.WithFields(logging.Fields{"recording": rec.ID, "error": err.Error()}).Warn("forward sweep: failed to mark recording deleted")
				continue
			}
			markedDeleted++
		}
	}
	return markedDeleted, nil
}

// ReverseSweep walks <root>/recordings and imports every segment file
// not present in the index whose modification time is older than
// orphanAge, skipping files young enough to belong to a live writer
// (§4.6, §8 P5).
func (r *Reconciler) ReverseSweep(ctx context.Context, orphanAge time.Duration) (imported int, err error) {
	now := r.clk.Now()
	recordingsRoot := clock.RecordingsRoot(r.root)

	err = filepath.WalkDir(recordingsRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		parsed, parseErr := clock.ParseSegmentName(filepath.Base(path))
		if parseErr != nil {
			return nil // not a segment file; ignore
		}

		if _, found, findErr := r.store.RecordingByPath(ctx, path); findErr != nil {
			return findErr
		} else if found {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		if now.Sub(info.ModTime()) < orphanAge {
			return nil // young enough to belong to a live writer
		}

		camera := parsed.Camera
		if camera == "" {
			camera = domain.CameraID(cameraIDFromPath(recordingsRoot, path))
		}

		rec := domain.Recording{
			CameraID:         camera,
			FilePath:         path,
			StartTime:        parsed.Start,
			EndTime:          parsed.Start.Add(60 * time.Second),
			DurationSec:      60,
			SizeBytes:        info.Size(),
			Status:           domain.RecordingStatusCompleted,
			RetentionInstant: parsed.Start.AddDate(0, 0, 30),
			Metadata:         domain.RecordingMetadata{RecoveredFromDisk: true},
		}
		if _, insertErr := r.store.RecordingInsert(ctx, rec); insertErr != nil && domain.KindOf(insertErr) != domain.DuplicateFilePath {
			return insertErr
		}
		imported++
		return nil
	})
	if err != nil {
		return imported, err
	}
	return imported, nil
}

// cameraIDFromPath recovers the CameraId path segment for the legacy
// filename variant, which carries no camera prefix in the name itself:
// <root>/recordings/<CameraId>/<YYYY>/<MM>/<DD>/<HH>/<file>.
func cameraIDFromPath(recordingsRoot, path string) string {
	rel, err := filepath.Rel(recordingsRoot, path)
	if err != nil {
		return ""
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")
	if len(segments) == 0 {
		return ""
	}
	return segments[0]
}

// RemoveEmptyDirectories removes every empty directory under
// <root>/recordings, bottom-up (§4.6).
func (r *Reconciler) RemoveEmptyDirectories(ctx context.Context) error {
	root := clock.RecordingsRoot(r.root)
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i := len(dirs) - 1; i >= 0; i-- {
		entries, readErr := os.ReadDir(dirs[i])
		if readErr != nil {
			continue
		}
		if len(entries) == 0 {
			if rmErr := os.Remove(dirs[i]); rmErr != nil {
				r.logger.WithFields(logging.Fields{"dir": dirs[i], "error": rmErr.Error()}).Warn("failed to remove empty directory")
			}
		}
	}
	return nil
}

// Run executes the full §4.6 cycle with orphanAge for the reverse
// sweep: forward sweep, reverse sweep, empty-directory cleanup. Used at
// boot and on the hourly schedule.
func (r *Reconciler) Run(ctx context.Context, orphanAge time.Duration) error {
	if _, err := r.ForwardSweep(ctx); err != nil {
		return err
	}
	if _, err := r.ReverseSweep(ctx, orphanAge); err != nil {
		return err
	}
	return r.RemoveEmptyDirectories(ctx)
}
