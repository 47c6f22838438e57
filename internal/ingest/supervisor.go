package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/camerarecorder/vms-core/internal/clock"
	"github.com/camerarecorder/vms-core/internal/crypto"
	"github.com/camerarecorder/vms-core/internal/domain"
	"github.com/camerarecorder/vms-core/internal/logging"
	"github.com/camerarecorder/vms-core/internal/store"
)

// segmentExt is the container extension the transcoder writes (§6: "ext
// is whatever the muxer writes; caller treats as opaque"). The core
// fixes it at the faststart-MP4 the transcoder contract mandates.
const segmentExt = "mp4"

const (
	// restartCoolOff is the fixed delay before restarting a crashed
	// child (§4.3 child exit).
	restartCoolOff = 10 * time.Second
	// stopGraceTimeout is how long StopRecording waits for a graceful
	// exit before force-killing (§4.3 Stop step 2).
	stopGraceTimeout = 5 * time.Second
	// hungActivityThreshold and hungSegmentThreshold are the §4.3/§4.10
	// hung-detection bounds.
	hungActivityThreshold = 90 * time.Second
	hungSegmentThreshold  = 120 * time.Second
)

// Finalizer is the Segment Finalizer collaborator (§4.5), invoked
// asynchronously by the watcher on every segment transition and on
// child exit. Declared here (rather than imported from package
// finalizer) to keep the ingest<->finalizer dependency one-directional:
// finalizer depends on nothing in ingest, ingest depends only on this
// narrow interface.
type Finalizer interface {
	Finalize(ctx context.Context, camera domain.Camera, path string, start time.Time) error
}

// Supervisor owns the CameraId -> IngestHandle map (§4.3). Per-camera
// transitions are serialized by each handle's goroutine; different
// cameras run fully in parallel (§4.3 concurrency contract, §5).
//
// Grounded on the teacher's ffmpegManager process-map
// (internal/mediamtx/ffmpeg_manager.go) generalized from a flat
// PID->process map to the spec's CameraId->IngestHandle map, and on
// hybrid_monitor.go's per-device goroutine lifecycle.
type Supervisor struct {
	store         store.Gateway
	logger        *logging.Logger
	clk           clock.Clock
	spawner       Spawner
	finalizer     Finalizer
	encryptionKey []byte
	root          string

	mu      sync.Mutex
	handles map[domain.CameraID]*IngestHandle
}

// NewSupervisor constructs a Supervisor. root is the storage root
// (SystemConfig storagePath / STORAGE_PATH); encryptionKey is the
// process-wide ENCRYPTION_KEY used to decrypt each camera's credentials
// at spawn time (§4.4).
func NewSupervisor(gw store.Gateway, logger *logging.Logger, clk clock.Clock, spawner Spawner, finalizer Finalizer, root string, encryptionKey []byte) *Supervisor {
	return &Supervisor{
		store:         gw,
		logger:        logger,
		clk:           clk,
		spawner:       spawner,
		finalizer:     finalizer,
		encryptionKey: encryptionKey,
		root:          root,
		handles:       make(map[domain.CameraID]*IngestHandle),
	}
}

// StartRecording implements §4.3's Spawn contract. It is idempotent: a
// second call while a handle is already running returns success without
// spawning a duplicate child.
func (s *Supervisor) StartRecording(ctx context.Context, camera domain.Camera) error {
	s.mu.Lock()
	if _, exists := s.handles[camera.ID]; exists {
		s.mu.Unlock()
		return nil
	}
	now := s.clk.Now()
	// lastSegmentOpenedAt starts at spawn time, not zero: the first real
	// segment doesn't open until the first wall-clock boundary (up to
	// segmentDuration away), and HungSweep must not treat that startup
	// gap as a hang.
	handle := &IngestHandle{camera: camera, startedAt: now, lastActivity: now, lastSegmentOpenedAt: now, done: make(chan struct{})}
	s.handles[camera.ID] = handle
	s.mu.Unlock()

	return s.spawn(ctx, handle)
}

// spawn performs steps 2-7 of §4.3's Spawn contract for an
// already-registered handle, then launches the watcher goroutine.
func (s *Supervisor) spawn(ctx context.Context, handle *IngestHandle) error {
	camera := handle.camera

	password, err := crypto.Decrypt(s.encryptionKey, camera.Credentials.EncryptedPassword)
	if err != nil {
		s.failSpawn(ctx, camera, err)
		return domain.NewError(domain.SpawnFailed, "StartRecording", "decrypt credentials", err)
	}

	now := s.clk.Now()
	dir := clock.SegmentDir(s.root, camera.ID, now)
	if err := clock.EnsureDir(dir); err != nil {
		s.failSpawn(ctx, camera, err)
		return domain.NewError(domain.SpawnFailed, "StartRecording", "materialize output directory", err)
	}

	rtspURL := BuildRTSPURL(camera, password)
	argv := BuildIngestArgv(camera, rtspURL, dir, segmentExt)
	password = "" // never retained beyond argv construction

	proc, err := s.spawner.Spawn(ctx, argv)
	if err != nil {
		s.failSpawn(ctx, camera, err)
		return domain.NewError(domain.SpawnFailed, "StartRecording", "spawn transcoder", err)
	}

	handle.mu.Lock()
	handle.process = proc
	handle.mu.Unlock()

	if err := s.store.CameraPatchState(ctx, camera.ID, domain.CameraState{Recording: domain.RecordingActive}); err != nil {
		s.logger.WithFields(logging.Fields{"camera": camera.ID, "error": err.Error()}).Warn("failed to patch camera state to recording")
	}

	go s.watch(handle)
	return nil
}

func (s *Supervisor) failSpawn(ctx context.Context, camera domain.Camera, cause error) {
	s.mu.Lock()
	delete(s.handles, camera.ID)
	s.mu.Unlock()
	if err := s.store.CameraPatchState(ctx, camera.ID, domain.CameraState{Connection: domain.ConnectionError, LastError: cause.Error()}); err != nil {
		s.logger.WithFields(logging.Fields{"camera": camera.ID, "error": err.Error()}).Warn("failed to patch camera state to error")
	}
}

// watch runs the per-handle watcher (§4.3) until the child exits, then
// decides whether to restart.
func (s *Supervisor) watch(handle *IngestHandle) {
	ctx := context.Background()
	camera := handle.camera

	watchStderr(handle.process.Stderr(), s.logger,
		func(line string) {
			handle.touchActivity(s.clk.Now())
		},
		func(path string) {
			now := s.clk.Now()
			prevPath, prevStart := handle.openSegment(path, now, now)
			if prevPath != "" {
				go s.finalizeAsync(camera, prevPath, prevStart)
			}
		},
	)

	_ = handle.process.Wait()

	path, start := handle.currentSegment()
	if path != "" {
		s.finalizeAsync(camera, path, start)
	}

	s.mu.Lock()
	delete(s.handles, camera.ID)
	s.mu.Unlock()
	close(handle.done)

	if err := s.store.CameraPatchState(ctx, camera.ID, domain.CameraState{Recording: domain.RecordingStopped}); err != nil {
		s.logger.WithFields(logging.Fields{"camera": camera.ID, "error": err.Error()}).Warn("failed to patch camera state to stopped")
	}

	if handle.wasStopRequested() {
		return
	}

	s.logger.WithFields(logging.Fields{"camera": camera.ID}).Warn("ingest child exited unexpectedly, scheduling restart")
	go s.restartAfterCoolOff(camera.ID)
}

func (s *Supervisor) finalizeAsync(camera domain.Camera, path string, start time.Time) {
	if err := s.finalizer.Finalize(context.Background(), camera, path, start); err != nil {
		s.logger.WithFields(logging.Fields{"camera": camera.ID, "path": path, "error": err.Error()}).Error("segment finalization failed")
	}
}

// restartAfterCoolOff waits the fixed cool-off (§4.3) then restarts the
// camera's handle if it is still active and nothing else has started it
// in the meantime (restart is idempotent against manual starts).
func (s *Supervisor) restartAfterCoolOff(id domain.CameraID) {
	s.clk.Sleep(restartCoolOff)

	ctx := context.Background()
	camera, err := s.store.CameraGet(ctx, id)
	if err != nil {
		s.logger.WithFields(logging.Fields{"camera": id, "error": err.Error()}).Warn("restart: camera lookup failed, skipping")
		return
	}
	if !camera.Active {
		return
	}
	if err := s.StartRecording(ctx, camera); err != nil {
		s.logger.WithFields(logging.Fields{"camera": id, "error": err.Error()}).Error("restart after crash failed")
	}
}

// StopRecording implements §4.3's Stop contract.
func (s *Supervisor) StopRecording(ctx context.Context, id domain.CameraID) error {
	s.mu.Lock()
	handle, exists := s.handles[id]
	s.mu.Unlock()
	if !exists {
		return nil
	}

	handle.markStopRequested()
	if err := handle.process.Terminate(); err != nil {
		s.logger.WithFields(logging.Fields{"camera": id, "error": err.Error()}).Warn("graceful terminate signal failed")
	}

	select {
	case <-handle.done:
	case <-time.After(stopGraceTimeout):
		_ = handle.process.Kill()
		<-handle.done
	}
	return nil
}

// HungSweep applies the §4.3/§4.10 hung-detection rules to every active
// handle: if activity is stale past hungActivityThreshold or no new
// segment has opened past hungSegmentThreshold, force-kill and let the
// ordinary exit path restart it, finalizing whatever is on disk.
func (s *Supervisor) HungSweep(ctx context.Context) {
	s.mu.Lock()
	hung := make([]*IngestHandle, 0)
	for _, h := range s.handles {
		lastActivity, lastSegmentOpenedAt := h.snapshot()
		if s.clk.Since(lastActivity) > hungActivityThreshold || s.clk.Since(lastSegmentOpenedAt) > hungSegmentThreshold {
			hung = append(hung, h)
		}
	}
	s.mu.Unlock()

	for _, h := range hung {
		s.logger.WithFields(logging.Fields{"camera": h.camera.ID}).Warn("ingest handle hung, force-killing")
		_ = h.process.Kill()
	}
}

// SweepContinuous starts a handle for every active, continuous-mode
// camera that currently has none (§4.10 supervisor sweep).
func (s *Supervisor) SweepContinuous(ctx context.Context, cameras []domain.Camera) {
	for _, camera := range cameras {
		if !camera.Active || camera.RecordingPolicy.Mode != domain.ModeContinuous {
			continue
		}
		s.mu.Lock()
		_, exists := s.handles[camera.ID]
		s.mu.Unlock()
		if exists {
			continue
		}
		if err := s.StartRecording(ctx, camera); err != nil {
			s.logger.WithFields(logging.Fields{"camera": camera.ID, "error": err.Error()}).Error("supervisor sweep: failed to start continuous camera")
		}
	}
}

// Status reports whether camera has an active handle (recordingStatus
// op, §6).
func (s *Supervisor) Status(id domain.CameraID) (active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.handles[id]
	return exists
}

// StopAll gracefully stops every active handle, each bounded by
// stopGraceTimeout, used during the §4.10 ordered drain.
func (s *Supervisor) StopAll(ctx context.Context) {
	s.mu.Lock()
	ids := make([]domain.CameraID, 0, len(s.handles))
	for id := range s.handles {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id domain.CameraID) {
			defer wg.Done()
			_ = s.StopRecording(ctx, id)
		}(id)
	}
	wg.Wait()
}
