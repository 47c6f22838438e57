package ingest

import (
	"sync"
	"time"

	"github.com/camerarecorder/vms-core/internal/domain"
)

// IngestHandle is the per-camera supervisor state (§4.3). It refers to
// the camera snapshot taken at spawn time; subsequent camera edits do
// not mutate a running handle (§9 design notes, cyclic structures).
type IngestHandle struct {
	mu sync.Mutex

	camera  domain.Camera
	process Process

	startedAt           time.Time
	lastActivity         time.Time
	lastSegmentOpenedAt time.Time
	currentOpenPath     string
	currentOpenStart    time.Time

	stopRequested bool
	done          chan struct{}
}

func (h *IngestHandle) snapshot() (lastActivity, lastSegmentOpenedAt time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastActivity, h.lastSegmentOpenedAt
}

func (h *IngestHandle) touchActivity(now time.Time) {
	h.mu.Lock()
	h.lastActivity = now
	h.mu.Unlock()
}

func (h *IngestHandle) openSegment(path string, start, now time.Time) (prevPath string, prevStart time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	prevPath, prevStart = h.currentOpenPath, h.currentOpenStart
	h.currentOpenPath = path
	h.currentOpenStart = start
	h.lastSegmentOpenedAt = now
	h.lastActivity = now
	return prevPath, prevStart
}

func (h *IngestHandle) currentSegment() (path string, start time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentOpenPath, h.currentOpenStart
}

func (h *IngestHandle) markStopRequested() {
	h.mu.Lock()
	h.stopRequested = true
	h.mu.Unlock()
}

func (h *IngestHandle) wasStopRequested() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopRequested
}
