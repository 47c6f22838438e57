package store

import (
	"context"
	"time"

	"github.com/camerarecorder/vms-core/internal/domain"
)

// CameraFilter narrows camera.list results (§4.2).
type CameraFilter struct {
	Active *bool
}

// Gateway is the Metadata Store Gateway interface the core consumes. A
// production implementation talks to the operator's chosen metadata
// store (SQL, document store, …) over the network; RetryingGateway wraps
// any Gateway with the bounded-retry/circuit-breaker policy §4.2
// requires so callers never need to reimplement it.
type Gateway interface {
	// Ping verifies the store is reachable, used by the §4.10 health
	// scheduler's 30s store-ping loop to flip healthy/degraded status.
	Ping(ctx context.Context) error

	CameraList(ctx context.Context, filter CameraFilter) ([]domain.Camera, error)
	CameraGet(ctx context.Context, id domain.CameraID) (domain.Camera, error)
	CameraUpsert(ctx context.Context, camera domain.Camera) error
	CameraPatchState(ctx context.Context, id domain.CameraID, delta domain.CameraState) error

	RecordingInsert(ctx context.Context, rec domain.Recording) (domain.RecordingID, error)
	RecordingListNonDeleted(ctx context.Context) ([]domain.Recording, error)
	RecordingFindOverlapping(ctx context.Context, camera domain.CameraID, from, to time.Time) ([]domain.Recording, error)
	RecordingFindContaining(ctx context.Context, camera domain.CameraID, instant time.Time) (domain.Recording, bool, error)
	RecordingFindExpired(ctx context.Context, now time.Time, limit int) ([]domain.Recording, error)
	RecordingFindOldestEligible(ctx context.Context, limit int) ([]domain.Recording, error)
	RecordingMarkDeleted(ctx context.Context, id domain.RecordingID) error
	RecordingGet(ctx context.Context, id domain.RecordingID) (domain.Recording, error)
	RecordingByPath(ctx context.Context, path string) (domain.Recording, bool, error)
	RecordingTotalActiveSize(ctx context.Context) (int64, error)
	RecordingSetProtected(ctx context.Context, id domain.RecordingID, protected bool) error

	ConfigGet(ctx context.Context, key domain.SystemConfigKey, def any) (any, error)
	ConfigSet(ctx context.Context, key domain.SystemConfigKey, value any, principal string) error
}
