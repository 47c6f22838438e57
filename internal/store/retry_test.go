package store

import (
	"context"
	"testing"
	"time"

	"github.com/camerarecorder/vms-core/internal/domain"
	"github.com/camerarecorder/vms-core/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSleeper struct{ slept []time.Duration }

func (f *fakeSleeper) Sleep(d time.Duration) { f.slept = append(f.slept, d) }

type flakyGateway struct {
	MemoryGateway
	failuresLeft int
}

func (g *flakyGateway) CameraGet(ctx context.Context, id domain.CameraID) (domain.Camera, error) {
	if g.failuresLeft > 0 {
		g.failuresLeft--
		return domain.Camera{}, domain.NewError(domain.StoreUnavailable, "CameraGet", "transient", nil)
	}
	return g.MemoryGateway.CameraGet(ctx, id)
}

func TestRetryingGatewaySucceedsAfterTransientFailures(t *testing.T) {
	inner := &flakyGateway{MemoryGateway: *NewMemoryGateway(), failuresLeft: 2}
	_ = inner.CameraUpsert(context.Background(), domain.Camera{ID: "ABCD1234"})

	g := NewRetryingGateway(inner, logging.NewLogger("test"))
	sleeper := &fakeSleeper{}
	g.sleeper = sleeper

	cam, err := g.CameraGet(context.Background(), "ABCD1234")
	require.NoError(t, err)
	assert.Equal(t, domain.CameraID("ABCD1234"), cam.ID)
	assert.Len(t, sleeper.slept, 2)
}

func TestRetryingGatewayFailsAfterExhaustingRetries(t *testing.T) {
	inner := &flakyGateway{MemoryGateway: *NewMemoryGateway(), failuresLeft: 100}
	g := NewRetryingGateway(inner, logging.NewLogger("test"))
	g.sleeper = &fakeSleeper{}

	_, err := g.CameraGet(context.Background(), "ABCD1234")
	require.Error(t, err)
	assert.Equal(t, domain.StoreUnavailable, domain.KindOf(err))
}

func TestRetryingGatewayDoesNotRetryNotFound(t *testing.T) {
	inner := NewMemoryGateway()
	g := NewRetryingGateway(inner, logging.NewLogger("test"))
	sleeper := &fakeSleeper{}
	g.sleeper = sleeper

	_, err := g.CameraGet(context.Background(), "MISSING")
	require.Error(t, err)
	assert.Equal(t, domain.NotFound, domain.KindOf(err))
	assert.Empty(t, sleeper.slept)
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	inner := &flakyGateway{MemoryGateway: *NewMemoryGateway(), failuresLeft: 1000}
	g := NewRetryingGateway(inner, logging.NewLogger("test"))
	g.sleeper = &fakeSleeper{}
	g.breaker = newCircuitBreaker(logging.NewLogger("test"), 1, time.Hour)

	_, err := g.CameraGet(context.Background(), "ABCD1234")
	require.Error(t, err)

	_, err = g.CameraGet(context.Background(), "ABCD1234")
	require.Error(t, err)
	assert.Equal(t, domain.StoreUnavailable, domain.KindOf(err))
	assert.False(t, g.breaker.allow())
}
