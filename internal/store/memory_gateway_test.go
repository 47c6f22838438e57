package store

import (
	"context"
	"testing"
	"time"

	"github.com/camerarecorder/vms-core/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingInsertDuplicatePathIsIdempotent(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	rec := domain.Recording{
		CameraID: "ABCD1234",
		FilePath: "/data/recordings/ABCD1234/2026/03/05/14/ABCD1234_segment_20260305_143000.mp4",
		Status:   domain.RecordingStatusCompleted,
	}
	_, err := g.RecordingInsert(ctx, rec)
	require.NoError(t, err)

	_, err = g.RecordingInsert(ctx, rec)
	require.Error(t, err)
	assert.Equal(t, domain.DuplicateFilePath, domain.KindOf(err))
}

func TestRecordingFindExpiredExcludesProtectedAndDeleted(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	now := time.Date(2026, 3, 5, 15, 0, 0, 0, time.UTC)

	expiredID, _ := g.RecordingInsert(ctx, domain.Recording{
		CameraID: "A", FilePath: "/a1", Status: domain.RecordingStatusCompleted,
		RetentionInstant: now.Add(-time.Second), StartTime: now.Add(-time.Hour),
	})
	_, _ = g.RecordingInsert(ctx, domain.Recording{
		CameraID: "A", FilePath: "/a2", Status: domain.RecordingStatusCompleted, Protected: true,
		RetentionInstant: now.Add(-time.Second), StartTime: now.Add(-2 * time.Hour),
	})
	_, _ = g.RecordingInsert(ctx, domain.Recording{
		CameraID: "A", FilePath: "/a3", Status: domain.RecordingStatusCompleted,
		RetentionInstant: now.Add(time.Hour), StartTime: now,
	})

	expired, err := g.RecordingFindExpired(ctx, now, 100)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, expiredID, expired[0].ID)
}

func TestRecordingFindOldestEligibleOrdersByStartTime(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	base := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	idNew, _ := g.RecordingInsert(ctx, domain.Recording{CameraID: "A", FilePath: "/new", StartTime: base.Add(time.Hour)})
	idOld, _ := g.RecordingInsert(ctx, domain.Recording{CameraID: "A", FilePath: "/old", StartTime: base})

	eligible, err := g.RecordingFindOldestEligible(ctx, 10)
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	assert.Equal(t, idOld, eligible[0].ID)
	assert.Equal(t, idNew, eligible[1].ID)
}

func TestConfigSetRejectsUnknownKey(t *testing.T) {
	g := NewMemoryGateway()
	err := g.ConfigSet(context.Background(), domain.SystemConfigKey("bogus"), 1, "admin")
	require.Error(t, err)
	assert.Equal(t, domain.Validation, domain.KindOf(err))
}

func TestConfigGetReturnsDefaultWhenUnset(t *testing.T) {
	g := NewMemoryGateway()
	v, err := g.ConfigGet(context.Background(), domain.KeyMaxStoragePercent, 90)
	require.NoError(t, err)
	assert.Equal(t, 90, v)
}
