package live

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/camerarecorder/vms-core/internal/clock"
	"github.com/camerarecorder/vms-core/internal/crypto"
	"github.com/camerarecorder/vms-core/internal/domain"
	"github.com/camerarecorder/vms-core/internal/ingest"
	"github.com/camerarecorder/vms-core/internal/logging"
	"github.com/fsnotify/fsnotify"
)

const (
	// waitTimeout is §4.7's hard blocking-playlist timeout (P9).
	waitTimeout = 10 * time.Second
	// defaultIdleGrace is how long a publisher survives with zero
	// subscribers before automatic teardown (§4.7 Teardown).
	defaultIdleGrace = 30 * time.Second
)

// cameraPublisher is the per-camera on-demand child plus its parsed
// playlist cache and fsnotify watch.
type cameraPublisher struct {
	camera  domain.Camera
	process ingest.Process
	dir     string
	cache   *playlistCache

	subscribers int32
	lastAccess  atomic.Value // time.Time

	watcher    *fsnotify.Watcher
	cancelWatch context.CancelFunc
}

// Publisher manages every active camera's live playlist publication
// (§4.7). Grounded on ingest.Supervisor's CameraId->handle map pattern,
// reusing ingest.Process/ingest.Spawner for the on-demand child since
// both components drive the same external transcoder contract.
type Publisher struct {
	logger      *logging.Logger
	clk         clock.Clock
	spawner     ingest.Spawner
	root        string
	encKey      []byte
	idleGrace   time.Duration
	waitTimeout time.Duration

	mu   sync.Mutex
	pubs map[domain.CameraID]*cameraPublisher
}

func NewPublisher(logger *logging.Logger, clk clock.Clock, spawner ingest.Spawner, root string, encKey []byte) *Publisher {
	return &Publisher{
		logger:      logger,
		clk:         clk,
		spawner:     spawner,
		root:        root,
		encKey:      encKey,
		idleGrace:   defaultIdleGrace,
		waitTimeout: waitTimeout,
		pubs:        make(map[domain.CameraID]*cameraPublisher),
	}
}

// SetWaitTimeoutForTest overrides the blocking-playlist hard timeout;
// production callers always get the §4.7-mandated 10 s via NewPublisher.
func (p *Publisher) SetWaitTimeoutForTest(d time.Duration) { p.waitTimeout = d }

// StartLive spawns the on-demand child for camera on first request
// (§4.7), idempotently.
func (p *Publisher) StartLive(ctx context.Context, camera domain.Camera) error {
	p.mu.Lock()
	if _, exists := p.pubs[camera.ID]; exists {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	password, err := crypto.Decrypt(p.encKey, camera.Credentials.EncryptedPassword)
	if err != nil {
		return domain.NewError(domain.SpawnFailed, "StartLive", "decrypt credentials", err)
	}
	dir := clock.LiveDir(p.root, camera.ID)
	if err := clock.EnsureDir(dir); err != nil {
		return domain.NewError(domain.SpawnFailed, "StartLive", "materialize live directory", err)
	}

	rtspURL := ingest.BuildRTSPURL(camera, password)
	argv := BuildLiveArgv(camera, rtspURL, dir)
	password = ""

	proc, err := p.spawner.Spawn(ctx, argv)
	if err != nil {
		return domain.NewError(domain.SpawnFailed, "StartLive", "spawn transcoder", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = proc.Kill()
		return domain.NewError(domain.SpawnFailed, "StartLive", "create playlist watcher", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = proc.Kill()
		_ = watcher.Close()
		return domain.NewError(domain.SpawnFailed, "StartLive", "watch live directory", err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	pub := &cameraPublisher{
		camera:      camera,
		process:     proc,
		dir:         dir,
		cache:       newPlaylistCache(),
		watcher:     watcher,
		cancelWatch: cancel,
	}
	pub.lastAccess.Store(p.clk.Now())

	p.mu.Lock()
	p.pubs[camera.ID] = pub
	p.mu.Unlock()

	go p.watchPlaylist(watchCtx, pub)
	go p.drainStderr(pub)
	return nil
}

func (p *Publisher) drainStderr(pub *cameraPublisher) {
	watchStderrLines(pub.process.Stderr())
}

// watchPlaylist is the fsnotify-driven loop that re-reads the playlist
// file on every write event and refreshes the cache. Grounded on the
// teacher's ConfigWatcher.watchLoop (internal/config/hot_reload.go).
func (p *Publisher) watchPlaylist(ctx context.Context, pub *cameraPublisher) {
	playlistPath := pub.dir + "/playlist"
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-pub.watcher.Events:
			if !ok {
				return
			}
			if event.Name != playlistPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			content, err := os.ReadFile(playlistPath)
			if err != nil {
				continue
			}
			msn, part := parsePlaylist(content)
			pub.cache.update(msn, part, content)
		case err, ok := <-pub.watcher.Errors:
			if !ok {
				return
			}
			p.logger.WithFields(logging.Fields{"camera": pub.camera.ID, "error": err.Error()}).Warn("playlist watcher error")
		}
	}
}

// Playlist implements §4.7's blocking request semantics (P9): it
// returns as soon as the cache reaches (msn, part) or fails with
// PlaylistTimeout after exactly waitTimeout.
func (p *Publisher) Playlist(ctx context.Context, id domain.CameraID, msn, part int) ([]byte, error) {
	p.mu.Lock()
	pub, exists := p.pubs[id]
	p.mu.Unlock()
	if !exists {
		return nil, domain.NewError(domain.NotFound, "Playlist", string(id), nil)
	}

	atomic.AddInt32(&pub.subscribers, 1)
	pub.lastAccess.Store(p.clk.Now())
	defer atomic.AddInt32(&pub.subscribers, -1)

	curMsn, curPart, content, waitCh := pub.cache.snapshot()
	if satisfies(curMsn, curPart, msn, part) {
		return content, nil
	}

	deadline := time.NewTimer(p.waitTimeout)
	defer deadline.Stop()
	for {
		select {
		case <-waitCh:
			curMsn, curPart, content, waitCh = pub.cache.snapshot()
			if satisfies(curMsn, curPart, msn, part) {
				return content, nil
			}
		case <-deadline.C:
			return nil, domain.NewError(domain.PlaylistTimeout, "Playlist", string(id), nil)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// StopLive tears down camera's publisher: terminate the child, stop the
// watcher, and remove <root>/live/<c>/ (§4.7 Teardown).
func (p *Publisher) StopLive(ctx context.Context, id domain.CameraID) error {
	p.mu.Lock()
	pub, exists := p.pubs[id]
	if exists {
		delete(p.pubs, id)
	}
	p.mu.Unlock()
	if !exists {
		return nil
	}

	pub.cancelWatch()
	_ = pub.watcher.Close()
	_ = pub.process.Terminate()
	go func() {
		_ = pub.process.Wait()
	}()
	return os.RemoveAll(pub.dir)
}

// IdleSweep stops every publisher that has had zero subscribers for at
// least the idle grace period (§4.7 Teardown: "idle grace period with
// no active subscribers").
func (p *Publisher) IdleSweep(ctx context.Context) {
	p.mu.Lock()
	idle := make([]domain.CameraID, 0)
	now := p.clk.Now()
	for id, pub := range p.pubs {
		if atomic.LoadInt32(&pub.subscribers) > 0 {
			continue
		}
		last, _ := pub.lastAccess.Load().(time.Time)
		if now.Sub(last) >= p.idleGrace {
			idle = append(idle, id)
		}
	}
	p.mu.Unlock()

	for _, id := range idle {
		if err := p.StopLive(ctx, id); err != nil {
			p.logger.WithFields(logging.Fields{"camera": id, "error": err.Error()}).Warn("idle sweep: failed to stop live publisher")
		}
	}
}

// Status reports whether camera currently has an active publisher
// (liveStatus op, §6).
func (p *Publisher) Status(id domain.CameraID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, exists := p.pubs[id]
	return exists
}

// StopAll tears down every active publisher, used during the §4.10
// ordered drain.
func (p *Publisher) StopAll(ctx context.Context) {
	p.mu.Lock()
	ids := make([]domain.CameraID, 0, len(p.pubs))
	for id := range p.pubs {
		ids = append(ids, id)
	}
	p.mu.Unlock()
	for _, id := range ids {
		_ = p.StopLive(ctx, id)
	}
}

// watchStderrLines drains a child's stderr so the pipe never fills and
// blocks the transcoder; live publication does not act on individual
// lines the way ingest's watcher does; it only reacts to playlist file
// writes.
func watchStderrLines(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		if _, err := r.Read(buf); err != nil {
			return
		}
	}
}
