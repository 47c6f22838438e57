package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/camerarecorder/vms-core/internal/clock"
	"github.com/camerarecorder/vms-core/internal/ingest"
	"github.com/camerarecorder/vms-core/internal/live"
	"github.com/camerarecorder/vms-core/internal/logging"
	"github.com/camerarecorder/vms-core/internal/retention"
	"github.com/camerarecorder/vms-core/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFailGateway struct {
	store.Gateway
	failPing bool
}

func (g *pingFailGateway) Ping(ctx context.Context) error {
	if g.failPing {
		return errors.New("store unreachable")
	}
	return nil
}

func newTestScheduler(t *testing.T, gw store.Gateway) *Scheduler {
	t.Helper()
	logger := logging.NewLogger("test")
	clk := clock.NewReal()
	root := t.TempDir()
	encKey := make([]byte, 32)

	sup := ingest.NewSupervisor(gw, logger, clk, nil, nil, root, encKey)
	pub := live.NewPublisher(logger, clk, nil, root, encKey)
	ret := retention.New(gw, logger, clk, root)
	monitor := NewHealthMonitor("test")

	return NewScheduler(gw, sup, pub, ret, monitor, logger, 0, 0)
}

func TestPingStoreMarksDegradedOnFailure(t *testing.T) {
	gw := &pingFailGateway{Gateway: store.NewMemoryGateway(), failPing: true}
	s := newTestScheduler(t, gw)

	s.pingStore(context.Background())

	health, err := s.monitor.GetDetailedHealth(context.Background())
	require.NoError(t, err)
	require.Len(t, health.Components, 1)
	assert.Equal(t, HealthStatusDegraded, health.Components[0].Status)
}

func TestPingStoreMarksHealthyOnSuccess(t *testing.T) {
	gw := store.NewMemoryGateway()
	s := newTestScheduler(t, gw)

	s.pingStore(context.Background())

	health, err := s.monitor.GetDetailedHealth(context.Background())
	require.NoError(t, err)
	require.Len(t, health.Components, 1)
	assert.Equal(t, HealthStatusHealthy, health.Components[0].Status)
}

func TestSweepSupervisorStartsNoHandlesWhenNoCameras(t *testing.T) {
	gw := store.NewMemoryGateway()
	s := newTestScheduler(t, gw)

	assert.NotPanics(t, func() { s.sweepSupervisor(context.Background()) })
}

func TestDrainCompletesWithinTimeout(t *testing.T) {
	gw := store.NewMemoryGateway()
	s := newTestScheduler(t, gw)
	s.Run(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.Drain(ctx)
	assert.NoError(t, err)
}

func TestRunRetentionNowDelegatesToEngine(t *testing.T) {
	gw := store.NewMemoryGateway()
	s := newTestScheduler(t, gw)

	res, err := s.RunRetentionNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.TimeExpired)
}
