package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/camerarecorder/vms-core/internal/clock"
	"github.com/camerarecorder/vms-core/internal/domain"
	"github.com/camerarecorder/vms-core/internal/logging"
	"github.com/camerarecorder/vms-core/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time                  { return c.now }
func (c fakeClock) Since(t time.Time) time.Duration { return c.now.Sub(t) }
func (c fakeClock) Sleep(d time.Duration)           {}

func TestForwardSweepMarksMissingFilesDeleted(t *testing.T) {
	gw := store.NewMemoryGateway()
	root := t.TempDir()
	r := New(gw, logging.NewLogger("test"), clock.NewReal(), root)

	present := filepath.Join(root, "present.mp4")
	require.NoError(t, os.WriteFile(present, []byte("x"), 0o644))

	presentID, err := gw.RecordingInsert(context.Background(), domain.Recording{CameraID: "A", FilePath: present, Status: domain.RecordingStatusCompleted})
	require.NoError(t, err)
	missingID, err := gw.RecordingInsert(context.Background(), domain.Recording{CameraID: "A", FilePath: filepath.Join(root, "gone.mp4"), Status: domain.RecordingStatusCompleted})
	require.NoError(t, err)

	n, err := r.ForwardSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	gone, err := gw.RecordingGet(context.Background(), missingID)
	require.NoError(t, err)
	assert.Equal(t, domain.RecordingStatusDeleted, gone.Status)

	stillThere, err := gw.RecordingGet(context.Background(), presentID)
	require.NoError(t, err)
	assert.Equal(t, domain.RecordingStatusCompleted, stillThere.Status)
}

func TestReverseSweepImportsOldOrphansOnly(t *testing.T) {
	gw := store.NewMemoryGateway()
	root := t.TempDir()
	now := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	clk := fakeClock{now: now}
	r := New(gw, logging.NewLogger("test"), clk, root)

	dir := clock.SegmentDir(root, "ABCD1234", now.Add(-48*time.Hour))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	oldPath := filepath.Join(dir, clock.SegmentName("ABCD1234", now.Add(-48*time.Hour), "mp4"))
	require.NoError(t, os.WriteFile(oldPath, []byte("old-segment-data"), 0o644))
	require.NoError(t, os.Chtimes(oldPath, now.Add(-48*time.Hour), now.Add(-48*time.Hour)))

	youngDir := clock.SegmentDir(root, "ABCD1234", now)
	require.NoError(t, os.MkdirAll(youngDir, 0o755))
	youngPath := filepath.Join(youngDir, clock.SegmentName("ABCD1234", now, "mp4"))
	require.NoError(t, os.WriteFile(youngPath, []byte("young-segment-data"), 0o644))

	n, err := r.ReverseSweep(context.Background(), RetentionOrphanAge)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, found, err := gw.RecordingByPath(context.Background(), oldPath)
	require.NoError(t, err)
	assert.True(t, found)

	_, found, err = gw.RecordingByPath(context.Background(), youngPath)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRemoveEmptyDirectoriesCleansBottomUp(t *testing.T) {
	gw := store.NewMemoryGateway()
	root := t.TempDir()
	r := New(gw, logging.NewLogger("test"), clock.NewReal(), root)

	empty := filepath.Join(clock.RecordingsRoot(root), "ABCD1234", "2026", "03", "05", "14")
	require.NoError(t, os.MkdirAll(empty, 0o755))

	nonEmpty := filepath.Join(clock.RecordingsRoot(root), "WXYZ5678", "2026", "03", "05", "15")
	require.NoError(t, os.MkdirAll(nonEmpty, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nonEmpty, "keep.mp4"), []byte("x"), 0o644))

	require.NoError(t, r.RemoveEmptyDirectories(context.Background()))

	_, err := os.Stat(empty)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(nonEmpty, "keep.mp4"))
	assert.NoError(t, err)
}
