package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/camerarecorder/vms-core/internal/domain"
	"github.com/camerarecorder/vms-core/internal/health"
	"github.com/camerarecorder/vms-core/internal/ingest"
	"github.com/camerarecorder/vms-core/internal/live"
	"github.com/camerarecorder/vms-core/internal/logging"
	"github.com/camerarecorder/vms-core/internal/reconciler"
	"github.com/camerarecorder/vms-core/internal/retention"
	"github.com/camerarecorder/vms-core/internal/store"
	"github.com/camerarecorder/vms-core/internal/vod"
)

// Page bounds a listRecordings result (§6).
type Page struct {
	Offset int
	Limit  int
}

// RecordingFilter narrows listRecordings (§6); a nil field is
// unconstrained.
type RecordingFilter struct {
	CameraID  *domain.CameraID
	Protected *bool
}

// Gateway is the single seam between the external HTTP layer (out of
// scope per §1) and the core. Every method here is one abstract
// operation from §6's list, with no HTTP framing/auth of its own.
type Gateway struct {
	store      store.Gateway
	supervisor *ingest.Supervisor
	publisher  *live.Publisher
	vodEngine  *vod.Engine
	recon      *reconciler.Reconciler
	scheduler  *health.Scheduler
	hub        *Hub
	logger     *logging.Logger
}

func New(
	gw store.Gateway,
	supervisor *ingest.Supervisor,
	publisher *live.Publisher,
	vodEngine *vod.Engine,
	recon *reconciler.Reconciler,
	scheduler *health.Scheduler,
	hub *Hub,
	logger *logging.Logger,
) *Gateway {
	return &Gateway{
		store:      gw,
		supervisor: supervisor,
		publisher:  publisher,
		vodEngine:  vodEngine,
		recon:      recon,
		scheduler:  scheduler,
		hub:        hub,
		logger:     logger,
	}
}

// ListRecordings implements listRecordings(filter, page).
func (g *Gateway) ListRecordings(ctx context.Context, filter RecordingFilter, page Page) ([]domain.Recording, error) {
	all, err := g.store.RecordingListNonDeleted(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]domain.Recording, 0, len(all))
	for _, r := range all {
		if filter.CameraID != nil && r.CameraID != *filter.CameraID {
			continue
		}
		if filter.Protected != nil && r.Protected != *filter.Protected {
			continue
		}
		matched = append(matched, r)
	}

	if page.Offset >= len(matched) {
		return []domain.Recording{}, nil
	}
	end := len(matched)
	if page.Limit > 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}
	return matched[page.Offset:end], nil
}

// GetRecording implements getRecording(id).
func (g *Gateway) GetRecording(ctx context.Context, id domain.RecordingID) (domain.Recording, error) {
	return g.store.RecordingGet(ctx, id)
}

// StreamRecording implements streamRecording(id, range?); byte-range
// handling is entirely net/http's (see internal/vod).
func (g *Gateway) StreamRecording(w http.ResponseWriter, r *http.Request, id domain.RecordingID) error {
	return g.vodEngine.ServeRecording(w, r, id)
}

// StreamByTime implements streamByTime(cameraId, instant, range?).
func (g *Gateway) StreamByTime(w http.ResponseWriter, r *http.Request, camera domain.CameraID, instant time.Time) error {
	return g.vodEngine.ServeByTime(w, r, camera, instant)
}

// ExportClip implements exportClip(cameraId, startInstant, durationSec).
func (g *Gateway) ExportClip(w http.ResponseWriter, r *http.Request, camera domain.CameraID, start time.Time, durationSec int) error {
	return g.vodEngine.ServeExportClip(w, r, camera, start, durationSec)
}

// StartRecording implements startRecording(cameraId).
func (g *Gateway) StartRecording(ctx context.Context, camera domain.Camera) error {
	err := g.supervisor.StartRecording(ctx, camera)
	if err == nil {
		g.hub.Publish(TopicCameraStateChanged, map[string]interface{}{"cameraId": camera.ID, "recording": true})
	}
	return err
}

// StopRecording implements stopRecording(cameraId).
func (g *Gateway) StopRecording(ctx context.Context, id domain.CameraID) error {
	err := g.supervisor.StopRecording(ctx, id)
	if err == nil {
		g.hub.Publish(TopicCameraStateChanged, map[string]interface{}{"cameraId": id, "recording": false})
	}
	return err
}

// RecordingStatus implements recordingStatus(cameraId).
func (g *Gateway) RecordingStatus(id domain.CameraID) bool {
	return g.supervisor.Status(id)
}

// StartLive implements startLive(cameraId).
func (g *Gateway) StartLive(ctx context.Context, camera domain.Camera) error {
	return g.publisher.StartLive(ctx, camera)
}

// StopLive implements stopLive(cameraId).
func (g *Gateway) StopLive(ctx context.Context, id domain.CameraID) error {
	return g.publisher.StopLive(ctx, id)
}

// LiveStatus implements liveStatus(cameraId).
func (g *Gateway) LiveStatus(id domain.CameraID) bool {
	return g.publisher.Status(id)
}

// Playlist implements playlist(cameraId, msn?, part?), blocking per P9
// until the cache catches up or the wait times out.
func (g *Gateway) Playlist(ctx context.Context, id domain.CameraID, msn, part int) ([]byte, error) {
	return g.publisher.Playlist(ctx, id, msn, part)
}

// Protect implements protect(id, bool).
func (g *Gateway) Protect(ctx context.Context, id domain.RecordingID, protected bool) error {
	return g.store.RecordingSetProtected(ctx, id, protected)
}

// Delete implements delete(id): an explicit operator-requested delete,
// refused for protected recordings (ProtectedRecording, §7).
func (g *Gateway) Delete(ctx context.Context, id domain.RecordingID) error {
	rec, err := g.store.RecordingGet(ctx, id)
	if err != nil {
		return err
	}
	if rec.Protected {
		return domain.NewError(domain.ProtectedRecording, "Delete", string(id), nil)
	}
	return g.store.RecordingMarkDeleted(ctx, id)
}

// StorageStatsResult is storageStats()'s abstract response (§6).
type StorageStatsResult struct {
	TotalActiveBytes int64
	DiskUsagePercent float64
}

// StorageStats implements storageStats().
func (g *Gateway) StorageStats(ctx context.Context) (StorageStatsResult, error) {
	total, err := g.store.RecordingTotalActiveSize(ctx)
	if err != nil {
		return StorageStatsResult{}, err
	}
	percent, err := g.retentionDiskUsage()
	if err != nil {
		return StorageStatsResult{}, err
	}
	return StorageStatsResult{TotalActiveBytes: total, DiskUsagePercent: percent}, nil
}

func (g *Gateway) retentionDiskUsage() (float64, error) {
	return g.scheduler.DiskUsagePercent()
}

// CleanupPreview implements cleanupPreview(): a read-only count of what
// Phase A (time-based expiry) would remove on the next run. Phases B/C
// are load-dependent (current totals and live disk occupancy) and are
// therefore reported, not previewed, by StorageStats.
func (g *Gateway) CleanupPreview(ctx context.Context, now time.Time) (int, error) {
	expired, err := g.store.RecordingFindExpired(ctx, now, 1000)
	if err != nil {
		return 0, err
	}
	return len(expired), nil
}

// RunCleanup implements runCleanup(): an on-demand retention pass
// outside the hourly schedule.
func (g *Gateway) RunCleanup(ctx context.Context) (retention.Result, error) {
	res, err := g.scheduler.RunRetentionNow(ctx)
	if err == nil {
		g.hub.Publish(TopicRetentionRun, map[string]interface{}{
			"timeExpired":     res.TimeExpired,
			"storageQuota":    res.StorageQuota,
			"diskSafety":      res.DiskSafety,
			"orphansImported": res.OrphansImported,
		})
	}
	return res, err
}

// IntegrityCheck implements integrityCheck({fix}). With fix=false it
// runs only the forward sweep (index-vs-disk detection, which
// necessarily marks missing-file records deleted per §7's FileMissing
// policy). With fix=true it additionally imports reverse-sweep orphans
// and removes emptied directories.
func (g *Gateway) IntegrityCheck(ctx context.Context, fix bool) (markedDeleted, imported int, err error) {
	markedDeleted, err = g.recon.ForwardSweep(ctx)
	if err != nil || !fix {
		return markedDeleted, 0, err
	}
	imported, err = g.recon.ReverseSweep(ctx, reconciler.IntegrityOrphanAge)
	if err != nil {
		return markedDeleted, imported, err
	}
	return markedDeleted, imported, g.recon.RemoveEmptyDirectories(ctx)
}

// ImportOrphans implements importOrphans(): the reverse sweep alone,
// using the shorter integrity-check orphan-age threshold.
func (g *Gateway) ImportOrphans(ctx context.Context) (int, error) {
	return g.recon.ReverseSweep(ctx, reconciler.IntegrityOrphanAge)
}

// RemoveOrphans implements removeOrphans(): bottom-up empty-directory
// cleanup left behind once their segments have all been evicted or
// imported elsewhere.
func (g *Gateway) RemoveOrphans(ctx context.Context) error {
	return g.recon.RemoveEmptyDirectories(ctx)
}

// FlushAll implements flushAll(): the full reconciliation cycle
// (forward sweep, reverse sweep at the longer retention-orphan
// threshold, empty-directory cleanup).
func (g *Gateway) FlushAll(ctx context.Context) error {
	return g.recon.Run(ctx, reconciler.RetentionOrphanAge)
}
