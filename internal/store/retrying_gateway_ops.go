package store

import (
	"context"
	"time"

	"github.com/camerarecorder/vms-core/internal/domain"
)

func (g *RetryingGateway) Ping(ctx context.Context) error {
	return g.withRetry(ctx, "Ping", func() error {
		return g.inner.Ping(ctx)
	})
}

func (g *RetryingGateway) CameraList(ctx context.Context, filter CameraFilter) ([]domain.Camera, error) {
	var out []domain.Camera
	err := g.withRetry(ctx, "CameraList", func() error {
		var innerErr error
		out, innerErr = g.inner.CameraList(ctx, filter)
		return innerErr
	})
	return out, err
}

func (g *RetryingGateway) CameraGet(ctx context.Context, id domain.CameraID) (domain.Camera, error) {
	var out domain.Camera
	err := g.withRetry(ctx, "CameraGet", func() error {
		var innerErr error
		out, innerErr = g.inner.CameraGet(ctx, id)
		return innerErr
	})
	return out, err
}

func (g *RetryingGateway) CameraUpsert(ctx context.Context, camera domain.Camera) error {
	return g.withRetry(ctx, "CameraUpsert", func() error {
		return g.inner.CameraUpsert(ctx, camera)
	})
}

func (g *RetryingGateway) CameraPatchState(ctx context.Context, id domain.CameraID, delta domain.CameraState) error {
	return g.withRetry(ctx, "CameraPatchState", func() error {
		return g.inner.CameraPatchState(ctx, id, delta)
	})
}

func (g *RetryingGateway) RecordingInsert(ctx context.Context, rec domain.Recording) (domain.RecordingID, error) {
	var id domain.RecordingID
	err := g.withRetry(ctx, "RecordingInsert", func() error {
		var innerErr error
		id, innerErr = g.inner.RecordingInsert(ctx, rec)
		return innerErr
	})
	return id, err
}

func (g *RetryingGateway) RecordingListNonDeleted(ctx context.Context) ([]domain.Recording, error) {
	var out []domain.Recording
	err := g.withRetry(ctx, "RecordingListNonDeleted", func() error {
		var innerErr error
		out, innerErr = g.inner.RecordingListNonDeleted(ctx)
		return innerErr
	})
	return out, err
}

func (g *RetryingGateway) RecordingFindOverlapping(ctx context.Context, camera domain.CameraID, from, to time.Time) ([]domain.Recording, error) {
	var out []domain.Recording
	err := g.withRetry(ctx, "RecordingFindOverlapping", func() error {
		var innerErr error
		out, innerErr = g.inner.RecordingFindOverlapping(ctx, camera, from, to)
		return innerErr
	})
	return out, err
}

func (g *RetryingGateway) RecordingFindContaining(ctx context.Context, camera domain.CameraID, instant time.Time) (domain.Recording, bool, error) {
	var out domain.Recording
	var found bool
	err := g.withRetry(ctx, "RecordingFindContaining", func() error {
		var innerErr error
		out, found, innerErr = g.inner.RecordingFindContaining(ctx, camera, instant)
		return innerErr
	})
	return out, found, err
}

func (g *RetryingGateway) RecordingFindExpired(ctx context.Context, now time.Time, limit int) ([]domain.Recording, error) {
	var out []domain.Recording
	err := g.withRetry(ctx, "RecordingFindExpired", func() error {
		var innerErr error
		out, innerErr = g.inner.RecordingFindExpired(ctx, now, limit)
		return innerErr
	})
	return out, err
}

func (g *RetryingGateway) RecordingFindOldestEligible(ctx context.Context, limit int) ([]domain.Recording, error) {
	var out []domain.Recording
	err := g.withRetry(ctx, "RecordingFindOldestEligible", func() error {
		var innerErr error
		out, innerErr = g.inner.RecordingFindOldestEligible(ctx, limit)
		return innerErr
	})
	return out, err
}

func (g *RetryingGateway) RecordingMarkDeleted(ctx context.Context, id domain.RecordingID) error {
	return g.withRetry(ctx, "RecordingMarkDeleted", func() error {
		return g.inner.RecordingMarkDeleted(ctx, id)
	})
}

func (g *RetryingGateway) RecordingGet(ctx context.Context, id domain.RecordingID) (domain.Recording, error) {
	var out domain.Recording
	err := g.withRetry(ctx, "RecordingGet", func() error {
		var innerErr error
		out, innerErr = g.inner.RecordingGet(ctx, id)
		return innerErr
	})
	return out, err
}

func (g *RetryingGateway) RecordingByPath(ctx context.Context, path string) (domain.Recording, bool, error) {
	var out domain.Recording
	var found bool
	err := g.withRetry(ctx, "RecordingByPath", func() error {
		var innerErr error
		out, found, innerErr = g.inner.RecordingByPath(ctx, path)
		return innerErr
	})
	return out, found, err
}

func (g *RetryingGateway) RecordingTotalActiveSize(ctx context.Context) (int64, error) {
	var out int64
	err := g.withRetry(ctx, "RecordingTotalActiveSize", func() error {
		var innerErr error
		out, innerErr = g.inner.RecordingTotalActiveSize(ctx)
		return innerErr
	})
	return out, err
}

func (g *RetryingGateway) RecordingSetProtected(ctx context.Context, id domain.RecordingID, protected bool) error {
	return g.withRetry(ctx, "RecordingSetProtected", func() error {
		return g.inner.RecordingSetProtected(ctx, id, protected)
	})
}

func (g *RetryingGateway) ConfigGet(ctx context.Context, key domain.SystemConfigKey, def any) (any, error) {
	var out any
	err := g.withRetry(ctx, "ConfigGet", func() error {
		var innerErr error
		out, innerErr = g.inner.ConfigGet(ctx, key, def)
		return innerErr
	})
	return out, err
}

func (g *RetryingGateway) ConfigSet(ctx context.Context, key domain.SystemConfigKey, value any, principal string) error {
	return g.withRetry(ctx, "ConfigSet", func() error {
		return g.inner.ConfigSet(ctx, key, value, principal)
	})
}

var _ Gateway = (*RetryingGateway)(nil)
