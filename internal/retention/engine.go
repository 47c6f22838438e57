package retention

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/camerarecorder/vms-core/internal/clock"
	"github.com/camerarecorder/vms-core/internal/domain"
	"github.com/camerarecorder/vms-core/internal/logging"
	"github.com/camerarecorder/vms-core/internal/reconciler"
	"github.com/camerarecorder/vms-core/internal/store"
	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sync/singleflight"
)

// batchSize bounds each phase per run (§4.9).
const batchSize = 1000

// DiskUsager reports the used-space percentage of the volume backing
// path, abstracted so tests don't depend on the real filesystem's
// occupancy.
type DiskUsager interface {
	UsagePercent(path string) (float64, error)
}

type gopsutilDiskUsager struct{}

// UsagePercent is grounded on the teacher's
// SystemMetricsManager.calculateDiskUsage
// (internal/mediamtx/system_metrics_manager.go), which also falls back
// from the statted path's parent-less root to "." when Usage fails.
func (gopsutilDiskUsager) UsagePercent(path string) (float64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		usage, err = disk.Usage(".")
		if err != nil {
			return 0, err
		}
	}
	if usage.Total == 0 {
		return 0, nil
	}
	return float64(usage.Used) / float64(usage.Total) * 100.0, nil
}

// Result reports per-phase deletion counts for one run.
type Result struct {
	TimeExpired     int
	StorageQuota    int
	DiskSafety      int
	OrphansImported int
}

// Engine runs the hourly (or on-demand) retention sweep.
type Engine struct {
	store   store.Gateway
	logger  *logging.Logger
	clk     clock.Clock
	disk    DiskUsager
	recon   *reconciler.Reconciler
	root    string
	running atomic.Bool
	sf      singleflight.Group
}

// ErrAlreadyRunning is returned by Run when another run is already in
// flight (§5: "at most one retention run is in flight; a second
// invocation ... returns 'already running' without scheduling a
// duplicate").
var ErrAlreadyRunning = domain.NewError(domain.Conflict, "Run", "retention run already in progress", nil)

func New(gw store.Gateway, logger *logging.Logger, clk clock.Clock, root string) *Engine {
	return &Engine{
		store:  gw,
		logger: logger,
		clk:    clk,
		disk:   gopsutilDiskUsager{},
		recon:  reconciler.New(gw, logger, clk, root),
		root:   root,
	}
}

// SetDiskUsagerForTest overrides the disk-usage source for deterministic
// Phase C tests.
func (e *Engine) SetDiskUsagerForTest(d DiskUsager) { e.disk = d }

// DiskUsagePercent reports the storage volume's current used-space
// percentage, exposed for the storageStats gateway operation (§6).
func (e *Engine) DiskUsagePercent() (float64, error) {
	return e.disk.UsagePercent(e.root)
}

// BytesPerGB converts a maxStorageGB config value to bytes for Run.
const BytesPerGB = 1 << 30

// Run executes the three eviction phases followed by the trailing
// reconciler pass (§4.9). maxStorageBytes <= 0 disables Phase B;
// maxStoragePercent <= 0 disables Phase C.
func (e *Engine) Run(ctx context.Context, maxStorageBytes int64, maxStoragePercent float64) (Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRunning
	}
	defer e.running.Store(false)

	v, err, _ := e.sf.Do("retention-run", func() (any, error) {
		return e.run(ctx, maxStorageBytes, maxStoragePercent)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (e *Engine) run(ctx context.Context, maxStorageBytes int64, maxStoragePercent float64) (Result, error) {
	var res Result

	n, err := e.phaseTimeExpired(ctx)
	if err != nil {
		return res, err
	}
	res.TimeExpired = n

	if maxStorageBytes > 0 {
		n, err = e.phaseStorageQuota(ctx, maxStorageBytes)
		if err != nil {
			return res, err
		}
		res.StorageQuota = n
	}

	if maxStoragePercent > 0 {
		n, err = e.phaseDiskSafety(ctx, maxStoragePercent)
		if err != nil {
			return res, err
		}
		res.DiskSafety = n
	}

	imported, err := e.recon.ReverseSweep(ctx, reconciler.RetentionOrphanAge)
	if err != nil {
		return res, err
	}
	res.OrphansImported = imported

	if err := e.recon.RemoveEmptyDirectories(ctx); err != nil {
		return res, err
	}

	e.logger.WithFields(logging.Fields{
		"timeExpired":     res.TimeExpired,
		"storageQuota":    res.StorageQuota,
		"diskSafety":      res.DiskSafety,
		"orphansImported": res.OrphansImported,
	}).Info("retention run complete")

	return res, nil
}

// phaseTimeExpired implements Phase A: delete everything whose
// retentionInstant has passed, oldest-first (P6), protected recordings
// already excluded by the gateway query (P7).
func (e *Engine) phaseTimeExpired(ctx context.Context) (int, error) {
	expired, err := e.store.RecordingFindExpired(ctx, e.clk.Now(), batchSize)
	if err != nil {
		return 0, err
	}
	return e.deleteAll(ctx, expired)
}

// phaseStorageQuota implements Phase B: repeatedly delete the oldest
// eligible recording while total active size exceeds the configured
// quota, bounded by batchSize.
func (e *Engine) phaseStorageQuota(ctx context.Context, quotaBytes int64) (int, error) {
	deleted := 0
	for deleted < batchSize {
		total, err := e.store.RecordingTotalActiveSize(ctx)
		if err != nil {
			return deleted, err
		}
		if total <= quotaBytes {
			break
		}
		oldest, err := e.store.RecordingFindOldestEligible(ctx, 1)
		if err != nil {
			return deleted, err
		}
		if len(oldest) == 0 {
			break
		}
		if err := e.deleteOne(ctx, oldest[0]); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// phaseDiskSafety implements Phase C: repeatedly delete the oldest
// eligible recording while the storage volume's used-space percentage
// exceeds the configured ceiling. This phase ignores per-camera
// retention and will collapse retention under duress; protected
// recordings remain untouched via RecordingFindOldestEligible's
// exclusion.
func (e *Engine) phaseDiskSafety(ctx context.Context, maxPercent float64) (int, error) {
	deleted := 0
	for deleted < batchSize {
		used, err := e.disk.UsagePercent(e.root)
		if err != nil {
			return deleted, err
		}
		if used <= maxPercent {
			break
		}
		oldest, err := e.store.RecordingFindOldestEligible(ctx, 1)
		if err != nil {
			return deleted, err
		}
		if len(oldest) == 0 {
			break
		}
		if err := e.deleteOne(ctx, oldest[0]); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (e *Engine) deleteAll(ctx context.Context, recs []domain.Recording) (int, error) {
	count := 0
	for _, r := range recs {
		if err := e.deleteOne(ctx, r); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (e *Engine) deleteOne(ctx context.Context, r domain.Recording) error {
	if err := os.Remove(r.FilePath); err != nil && !os.IsNotExist(err) {
		e.logger.WithFields(logging.Fields{"path": r.FilePath, "error": err.Error()}).Warn("failed to remove recording file during retention")
	}
	return e.store.RecordingMarkDeleted(ctx, r.ID)
}
