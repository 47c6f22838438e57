package retention

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

func (c fakeClock) Now() time.Time                 { return c.now }
func (c fakeClock) Since(t time.Time) time.Duration { return c.now.Sub(t) }
func (c fakeClock) Sleep(d time.Duration)           {}

type fakeDiskUsager struct{ percent float64 }

func (f fakeDiskUsager) UsagePercent(path string) (float64, error) { return f.percent, nil }

func writeSegment(t *testing.T, root string, id string, size int) string {
	t.Helper()
	path := filepath.Join(root, id+".mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func TestPhaseTimeExpiredDeletesAllExpired(t *testing.T) {
	gw := store.NewMemoryGateway()
	root := t.TempDir()
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	clk := fakeClock{now: now}
	e := New(gw, logging.NewLogger("test"), clk, root)

	older := writeSegment(t, root, "older", 10)
	newer := writeSegment(t, root, "newer", 10)

	_, err := gw.RecordingInsert(context.Background(), domain.Recording{
		CameraID: "CAM1", FilePath: older, StartTime: now.Add(-2 * time.Hour),
		RetentionInstant: now.Add(-time.Hour), Status: domain.RecordingStatusCompleted,
	})
	require.NoError(t, err)
	_, err = gw.RecordingInsert(context.Background(), domain.Recording{
		CameraID: "CAM1", FilePath: newer, StartTime: now.Add(-1 * time.Hour),
		RetentionInstant: now.Add(-30 * time.Minute), Status: domain.RecordingStatusCompleted,
	})
	require.NoError(t, err)

	res, err := e.Run(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TimeExpired)

	recs, err := gw.RecordingListNonDeleted(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestPhaseTimeExpiredSkipsProtected(t *testing.T) {
	gw := store.NewMemoryGateway()
	root := t.TempDir()
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	clk := fakeClock{now: now}
	e := New(gw, logging.NewLogger("test"), clk, root)

	path := writeSegment(t, root, "protected", 10)
	id, err := gw.RecordingInsert(context.Background(), domain.Recording{
		CameraID: "CAM1", FilePath: path, StartTime: now.Add(-2 * time.Hour),
		RetentionInstant: now.Add(-time.Hour), Status: domain.RecordingStatusCompleted, Protected: true,
	})
	require.NoError(t, err)

	res, err := e.Run(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TimeExpired)

	got, err := gw.RecordingGet(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.RecordingStatusCompleted, got.Status)
}

func TestPhaseStorageQuotaDeletesOldestUntilWithinBudget(t *testing.T) {
	gw := store.NewMemoryGateway()
	root := t.TempDir()
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	clk := fakeClock{now: now}
	e := New(gw, logging.NewLogger("test"), clk, root)

	var ids []domain.RecordingID
	for i, size := range []int64{300, 300, 300} {
		path := writeSegment(t, root, "seg"+string(rune('A'+i)), 10)
		id, err := gw.RecordingInsert(context.Background(), domain.Recording{
			CameraID: "CAM1", FilePath: path, StartTime: now.Add(time.Duration(-3+i) * time.Hour),
			RetentionInstant: now.Add(24 * time.Hour), Status: domain.RecordingStatusCompleted, SizeBytes: size,
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	// 900 bytes total active against a 500-byte quota must evict the two
	// oldest recordings, bringing the total to 300 (<= 500), leaving the
	// newest untouched.
	res, err := e.Run(context.Background(), 500, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, res.StorageQuota)

	first, err := gw.RecordingGet(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.RecordingStatusDeleted, first.Status)

	last, err := gw.RecordingGet(context.Background(), ids[2])
	require.NoError(t, err)
	assert.Equal(t, domain.RecordingStatusCompleted, last.Status)
}

func TestPhaseDiskSafetyDeletesOldestWhileOverThreshold(t *testing.T) {
	gw := store.NewMemoryGateway()
	root := t.TempDir()
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	clk := fakeClock{now: now}
	e := New(gw, logging.NewLogger("test"), clk, root)

	disk := &flakyDiskUsager{sequence: []float64{96, 96, 80}}
	e.SetDiskUsagerForTest(disk)

	for i := 0; i < 2; i++ {
		path := writeSegment(t, root, "seg"+string(rune('A'+i)), 10)
		_, err := gw.RecordingInsert(context.Background(), domain.Recording{
			CameraID: "CAM1", FilePath: path, StartTime: now.Add(time.Duration(-2+i) * time.Hour),
			RetentionInstant: now.Add(24 * time.Hour), Status: domain.RecordingStatusCompleted,
		})
		require.NoError(t, err)
	}

	res, err := e.Run(context.Background(), 0, 90)
	require.NoError(t, err)
	assert.Equal(t, 2, res.DiskSafety)
}

type flakyDiskUsager struct {
	sequence []float64
	call     int
}

func (f *flakyDiskUsager) UsagePercent(path string) (float64, error) {
	if f.call >= len(f.sequence) {
		return f.sequence[len(f.sequence)-1], nil
	}
	v := f.sequence[f.call]
	f.call++
	return v, nil
}

func TestRunRejectsConcurrentInvocation(t *testing.T) {
	gw := store.NewMemoryGateway()
	root := t.TempDir()
	e := New(gw, logging.NewLogger("test"), clock.NewReal(), root)
	e.running.Store(true)

	_, err := e.Run(context.Background(), 0, 0)
	require.Error(t, err)
	assert.Equal(t, domain.Conflict, domain.KindOf(err))
}
