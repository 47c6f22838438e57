package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/camerarecorder/vms-core/internal/clock"
	"github.com/camerarecorder/vms-core/internal/domain"
	"github.com/camerarecorder/vms-core/internal/health"
	"github.com/camerarecorder/vms-core/internal/ingest"
	"github.com/camerarecorder/vms-core/internal/live"
	"github.com/camerarecorder/vms-core/internal/logging"
	"github.com/camerarecorder/vms-core/internal/reconciler"
	"github.com/camerarecorder/vms-core/internal/retention"
	"github.com/camerarecorder/vms-core/internal/store"
	"github.com/camerarecorder/vms-core/internal/vod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T) (*Gateway, store.Gateway, string) {
	t.Helper()
	logger := logging.NewLogger("test")
	clk := clock.NewReal()
	root := t.TempDir()
	encKey := make([]byte, 32)

	gw := store.NewMemoryGateway()
	sup := ingest.NewSupervisor(gw, logger, clk, nil, nil, root, encKey)
	pub := live.NewPublisher(logger, clk, nil, root, encKey)
	vodEngine := vod.New(gw, logger, nil, root)
	recon := reconciler.New(gw, logger, clk, root)
	monitor := health.NewHealthMonitor("test")
	sched := health.NewScheduler(gw, sup, pub, retention.New(gw, logger, clk, root), monitor, logger, 0, 0)
	hub := NewHub(logger)

	return New(gw, sup, pub, vodEngine, recon, sched, hub, logger), gw, root
}

func addRecording(t *testing.T, gw store.Gateway, id, cameraID string, start time.Time, size int64, protected bool) domain.Recording {
	t.Helper()
	rec := domain.Recording{
		ID:               domain.RecordingID(id),
		CameraID:         domain.CameraID(cameraID),
		FilePath:         "/does/not/matter/" + id + ".mp4",
		StartTime:        start,
		EndTime:          start.Add(time.Minute),
		SizeBytes:        size,
		Protected:        protected,
		Status:           domain.RecordingStatusCompleted,
		RetentionInstant: start.Add(24 * time.Hour),
	}
	_, err := gw.RecordingInsert(context.Background(), rec)
	require.NoError(t, err)
	return rec
}

func TestListRecordingsFiltersByCameraAndPage(t *testing.T) {
	g, gw, _ := newTestGateway(t)
	base := time.Now()
	addRecording(t, gw, "r1", "cam1", base, 10, false)
	addRecording(t, gw, "r2", "cam1", base.Add(time.Minute), 10, false)
	addRecording(t, gw, "r3", "cam2", base.Add(2*time.Minute), 10, false)

	cam1 := domain.CameraID("cam1")
	out, err := g.ListRecordings(context.Background(), RecordingFilter{CameraID: &cam1}, Page{Offset: 0, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestProtectThenDeleteRefused(t *testing.T) {
	g, gw, _ := newTestGateway(t)
	rec := addRecording(t, gw, "r1", "cam1", time.Now(), 10, false)

	require.NoError(t, g.Protect(context.Background(), rec.ID, true))

	err := g.Delete(context.Background(), rec.ID)
	require.Error(t, err)
	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ProtectedRecording, derr.Kind)
}

func TestDeleteUnprotectedMarksDeleted(t *testing.T) {
	g, gw, _ := newTestGateway(t)
	rec := addRecording(t, gw, "r1", "cam1", time.Now(), 10, false)

	require.NoError(t, g.Delete(context.Background(), rec.ID))

	got, err := gw.RecordingGet(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RecordingStatusDeleted, got.Status)
}

func TestStorageStatsSumsActiveSize(t *testing.T) {
	g, gw, _ := newTestGateway(t)
	addRecording(t, gw, "r1", "cam1", time.Now(), 100, false)
	addRecording(t, gw, "r2", "cam1", time.Now(), 200, false)

	stats, err := g.StorageStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(300), stats.TotalActiveBytes)
}

func TestCleanupPreviewCountsExpiredOnly(t *testing.T) {
	g, gw, _ := newTestGateway(t)
	addRecording(t, gw, "r1", "cam1", time.Now().Add(-48*time.Hour), 10, false)

	n, err := g.CleanupPreview(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIntegrityCheckWithoutFixOnlyRunsForwardSweep(t *testing.T) {
	g, _, _ := newTestGateway(t)

	marked, imported, err := g.IntegrityCheck(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, marked)
	assert.Equal(t, 0, imported)
}

func TestRunCleanupSucceedsOnEmptyStore(t *testing.T) {
	g, _, _ := newTestGateway(t)

	res, err := g.RunCleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.TimeExpired)
}

func TestRemoveOrphansSucceedsOnEmptyRoot(t *testing.T) {
	g, _, _ := newTestGateway(t)
	assert.NoError(t, g.RemoveOrphans(context.Background()))
}
