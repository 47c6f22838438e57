package health

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/camerarecorder/vms-core/internal/ingest"
	"github.com/camerarecorder/vms-core/internal/live"
	"github.com/camerarecorder/vms-core/internal/logging"
	"github.com/camerarecorder/vms-core/internal/retention"
	"github.com/camerarecorder/vms-core/internal/store"
)

const (
	pingInterval      = 30 * time.Second
	supervisorSweep   = 30 * time.Second
	retentionInterval = time.Hour
	drainTimeout      = 30 * time.Second
)

// Scheduler owns the three periodic tasks §4.10/§5 describe (store
// ping, supervisor sweep, retention run) and the ordered shutdown drain.
// Grounded on the teacher's cmd/server/main.go reverse-shutdown-order
// sequence, generalized from its fixed component list to this repo's
// component set.
type Scheduler struct {
	store      store.Gateway
	supervisor *ingest.Supervisor
	publisher  *live.Publisher
	retention  *retention.Engine
	monitor    *HealthMonitor
	logger     *logging.Logger

	maxStorageBytes   int64
	maxStoragePercent float64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(
	gw store.Gateway,
	supervisor *ingest.Supervisor,
	publisher *live.Publisher,
	retentionEngine *retention.Engine,
	monitor *HealthMonitor,
	logger *logging.Logger,
	maxStorageBytes int64,
	maxStoragePercent float64,
) *Scheduler {
	return &Scheduler{
		store:             gw,
		supervisor:        supervisor,
		publisher:         publisher,
		retention:         retentionEngine,
		monitor:           monitor,
		logger:            logger,
		maxStorageBytes:   maxStorageBytes,
		maxStoragePercent: maxStoragePercent,
	}
}

// Run starts the three periodic loops. It returns immediately; the
// loops stop when the context passed to Run is canceled, or when Drain
// calls StopLoops.
func (s *Scheduler) Run(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(3)
	go s.pingLoop(loopCtx)
	go s.sweepLoop(loopCtx)
	go s.retentionLoop(loopCtx)
}

// StopLoops cancels the three periodic loops and waits for them to
// return (§4.10 drain step 4: "stop the retention scheduler").
func (s *Scheduler) StopLoops() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) pingLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pingStore(ctx)
		}
	}
}

func (s *Scheduler) pingStore(ctx context.Context) {
	if err := s.store.Ping(ctx); err != nil {
		s.monitor.UpdateComponentStatus("store", HealthStatusDegraded, err.Error(), nil)
		return
	}
	s.monitor.UpdateComponentStatus("store", HealthStatusHealthy, "", nil)
}

func (s *Scheduler) sweepLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(supervisorSweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepSupervisor(ctx)
			s.publisher.IdleSweep(ctx)
		}
	}
}

// sweepSupervisor implements §4.10's supervisor sweep: apply hung
// detection to every handle, and start continuous-mode cameras missing
// one.
func (s *Scheduler) sweepSupervisor(ctx context.Context) {
	s.supervisor.HungSweep(ctx)

	cameras, err := s.store.CameraList(ctx, store.CameraFilter{})
	if err != nil {
		s.logger.WithFields(logging.Fields{"error": err.Error()}).Warn("supervisor sweep: failed to list cameras")
		s.monitor.UpdateComponentStatus("ingestSupervisor", HealthStatusDegraded, err.Error(), nil)
		return
	}
	s.supervisor.SweepContinuous(ctx, cameras)
	s.monitor.UpdateComponentStatus("ingestSupervisor", HealthStatusHealthy, "", nil)
}

func (s *Scheduler) retentionLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runRetention(ctx)
		}
	}
}

func (s *Scheduler) runRetention(ctx context.Context) {
	res, err := s.retention.Run(ctx, s.maxStorageBytes, s.maxStoragePercent)
	if err != nil {
		if err == retention.ErrAlreadyRunning {
			s.logger.Debug("retention run already in progress, skipping")
			return
		}
		s.logger.WithFields(logging.Fields{"error": err.Error()}).Error("retention run failed")
		s.monitor.UpdateComponentStatus("retention", HealthStatusDegraded, err.Error(), nil)
		return
	}
	s.monitor.UpdateComponentStatus("retention", HealthStatusHealthy, "", map[string]interface{}{
		"timeExpired":     res.TimeExpired,
		"storageQuota":    res.StorageQuota,
		"diskSafety":      res.DiskSafety,
		"orphansImported": res.OrphansImported,
	})
}

// RunRetentionNow runs one on-demand retention pass (the runCleanup
// gateway operation, §6), bypassing the hourly ticker.
func (s *Scheduler) RunRetentionNow(ctx context.Context) (retention.Result, error) {
	return s.retention.Run(ctx, s.maxStorageBytes, s.maxStoragePercent)
}

// DiskUsagePercent exposes the retention engine's disk-usage reading
// for the storageStats gateway operation (§6).
func (s *Scheduler) DiskUsagePercent() (float64, error) {
	return s.retention.DiskUsagePercent()
}

// Drain performs the §4.10 ordered shutdown: (1) the caller has already
// stopped accepting new gateway requests before invoking Drain; (2) stop
// all live publishers; (3) stop all ingest supervisors (graceful, 5s
// each, already bounded inside Supervisor.StopAll); (4) stop the
// periodic schedulers; (5) close the store connection. One drainTimeout
// bounds the whole sequence: once it elapses Drain returns the context
// error, and any step still running continues in the background.
func (s *Scheduler) Drain(ctx context.Context) error {
	drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)

		s.publisher.StopAll(drainCtx)
		s.logger.Info("drain: live publishers stopped")

		s.supervisor.StopAll(drainCtx)
		s.logger.Info("drain: ingest supervisors stopped")

		s.StopLoops()
		s.logger.Info("drain: periodic schedulers stopped")

		if closer, ok := s.store.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				s.logger.WithFields(logging.Fields{"error": err.Error()}).Warn("drain: error closing store")
			}
		}
		s.logger.Info("drain: store closed")
	}()

	select {
	case <-done:
		return nil
	case <-drainCtx.Done():
		s.logger.Warn("drain: exceeded timeout, forcing exit")
		return drainCtx.Err()
	}
}
