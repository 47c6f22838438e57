package ingest

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/camerarecorder/vms-core/internal/crypto"
	"github.com/camerarecorder/vms-core/internal/domain"
	"github.com/camerarecorder/vms-core/internal/logging"
	"github.com/camerarecorder/vms-core/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu       sync.Mutex
	now      time.Time
	sleepers int
	changed  chan struct{}
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC), changed: make(chan struct{})}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}
func (c *fakeClock) Since(t time.Time) time.Duration { return c.Now().Sub(t) }
// Sleep blocks until advance has moved the clock forward by at least d.
func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.sleepers++
	for c.now.Before(target) {
		ch := c.changed
		c.mu.Unlock()
		<-ch
		c.mu.Lock()
	}
	c.sleepers--
	c.mu.Unlock()
}

// advance moves the clock forward by d and wakes every blocked Sleep.
func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()
}

func (c *fakeClock) sleeping() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sleepers
}

type fakeProcess struct {
	stderrR *io.PipeReader
	stderrW *io.PipeWriter
	exitCh  chan struct{}

	mu           sync.Mutex
	terminated   bool
	killed       bool
}

func newFakeProcess() *fakeProcess {
	r, w := io.Pipe()
	return &fakeProcess{stderrR: r, stderrW: w, exitCh: make(chan struct{})}
}

func (p *fakeProcess) Stderr() io.Reader { return p.stderrR }
func (p *fakeProcess) Wait() error       { <-p.exitCh; return nil }
func (p *fakeProcess) Pid() int          { return 1234 }
func (p *fakeProcess) Terminate() error {
	p.mu.Lock()
	p.terminated = true
	p.mu.Unlock()
	p.exit()
	return nil
}
func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.exit()
	return nil
}
func (p *fakeProcess) writeLine(s string) { _, _ = p.stderrW.Write([]byte(s + "\n")) }
func (p *fakeProcess) exit() {
	_ = p.stderrW.Close()
	select {
	case <-p.exitCh:
	default:
		close(p.exitCh)
	}
}

type fakeSpawner struct {
	mu        sync.Mutex
	spawned   []*fakeProcess
	spawnFunc func(argv []string) (*fakeProcess, error)
}

func (s *fakeSpawner) Spawn(ctx context.Context, argv []string) (Process, error) {
	var p *fakeProcess
	var err error
	if s.spawnFunc != nil {
		p, err = s.spawnFunc(argv)
	} else {
		p = newFakeProcess()
	}
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.spawned = append(s.spawned, p)
	s.mu.Unlock()
	return p, nil
}

func (s *fakeSpawner) last() *fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawned[len(s.spawned)-1]
}

func (s *fakeSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spawned)
}

type fakeFinalizer struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeFinalizer) Finalize(ctx context.Context, camera domain.Camera, path string, start time.Time) error {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()
	return nil
}

func testCamera() domain.Camera {
	return domain.Camera{
		ID:              "ABCD1234",
		Active:          true,
		RecordingPolicy: domain.RecordingPolicy{Mode: domain.ModeContinuous, RetentionDays: 30},
		Credentials:     domain.Credentials{Username: "admin"},
		Endpoint:        domain.Endpoint{Host: "10.0.0.5"},
		StreamProfile:   domain.StreamProfile{Codec: "h264", ResolutionWidth: 1920, ResolutionHeight: 1080, FPS: 30, ProfileName: "high"},
	}
}

func newTestSupervisor(t *testing.T) (*Supervisor, *fakeSpawner, *fakeFinalizer, *fakeClock, store.Gateway) {
	t.Helper()
	key := strings.Repeat("k", 32)
	enc, err := crypto.Encrypt([]byte(key), []byte("secret"))
	require.NoError(t, err)

	gw := store.NewMemoryGateway()
	cam := testCamera()
	cam.Credentials.EncryptedPassword = enc
	require.NoError(t, gw.CameraUpsert(context.Background(), cam))

	spawner := &fakeSpawner{}
	finalizer := &fakeFinalizer{}
	clk := newFakeClock()
	root := t.TempDir()
	sup := NewSupervisor(gw, logging.NewLogger("test"), clk, spawner, finalizer, root, []byte(key))
	return sup, spawner, finalizer, clk, gw
}

func TestStartRecordingIsIdempotent(t *testing.T) {
	sup, spawner, _, _, gw := newTestSupervisor(t)
	cam, err := gw.CameraGet(context.Background(), "ABCD1234")
	require.NoError(t, err)

	require.NoError(t, sup.StartRecording(context.Background(), cam))
	require.NoError(t, sup.StartRecording(context.Background(), cam))

	assert.Equal(t, 1, spawner.count())
	assert.True(t, sup.Status("ABCD1234"))
}

func TestSegmentTransitionHandsOffToFinalizer(t *testing.T) {
	sup, spawner, finalizer, _, gw := newTestSupervisor(t)
	cam, _ := gw.CameraGet(context.Background(), "ABCD1234")
	require.NoError(t, sup.StartRecording(context.Background(), cam))

	proc := spawner.last()
	proc.writeLine("Opening 'seg1.mp4'")
	proc.writeLine("Opening 'seg2.mp4'")

	require.Eventually(t, func() bool {
		finalizer.mu.Lock()
		defer finalizer.mu.Unlock()
		return len(finalizer.calls) == 1 && finalizer.calls[0] == "seg1.mp4"
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, sup.StopRecording(context.Background(), "ABCD1234"))
	require.Eventually(t, func() bool {
		finalizer.mu.Lock()
		defer finalizer.mu.Unlock()
		return len(finalizer.calls) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestRestartAfterCrash(t *testing.T) {
	sup, spawner, _, clk, gw := newTestSupervisor(t)
	cam, _ := gw.CameraGet(context.Background(), "ABCD1234")
	require.NoError(t, sup.StartRecording(context.Background(), cam))

	proc := spawner.last()
	proc.exit() // simulate crash: non-graceful exit, no stop requested

	require.Eventually(t, func() bool { return !sup.Status("ABCD1234") }, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool { return clk.sleeping() == 1 }, time.Second, 10*time.Millisecond)
	clk.advance(restartCoolOff)
	require.Eventually(t, func() bool { return spawner.count() == 2 }, time.Second, 10*time.Millisecond)
}

func TestStopRecordingOnUnknownCameraIsNoop(t *testing.T) {
	sup, _, _, _, _ := newTestSupervisor(t)
	require.NoError(t, sup.StopRecording(context.Background(), "NOPE"))
}

func TestHungSweepDoesNotKillFreshlyStartedHandle(t *testing.T) {
	sup, spawner, _, clk, gw := newTestSupervisor(t)
	cam, _ := gw.CameraGet(context.Background(), "ABCD1234")
	require.NoError(t, sup.StartRecording(context.Background(), cam))

	// No segment has opened yet, but we're nowhere near either threshold:
	// the first sweep must not treat startup as a hang.
	clk.advance(30 * time.Second)
	sup.HungSweep(context.Background())

	proc := spawner.last()
	proc.mu.Lock()
	killed := proc.killed
	proc.mu.Unlock()
	assert.False(t, killed)
	assert.True(t, sup.Status("ABCD1234"))
}

func TestHungSweepKillsWhenSegmentNeverOpens(t *testing.T) {
	sup, spawner, _, clk, gw := newTestSupervisor(t)
	cam, _ := gw.CameraGet(context.Background(), "ABCD1234")
	require.NoError(t, sup.StartRecording(context.Background(), cam))

	clk.advance(hungSegmentThreshold + time.Second)
	sup.HungSweep(context.Background())

	require.Eventually(t, func() bool {
		proc := spawner.last()
		proc.mu.Lock()
		defer proc.mu.Unlock()
		return proc.killed
	}, time.Second, 10*time.Millisecond)
}
