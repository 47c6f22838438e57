package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/camerarecorder/vms-core/internal/domain"
	"github.com/google/uuid"
)

// MemoryGateway is an in-process Gateway implementation, used in tests
// and as the reference implementation a real SQL/document-store-backed
// Gateway can be swapped in for. Grounded on the teacher's
// RecordingManager session map + sync.RWMutex pattern
// (internal/mediamtx/recording_manager.go).
type MemoryGateway struct {
	mu         sync.RWMutex
	cameras    map[domain.CameraID]domain.Camera
	recordings map[domain.RecordingID]*domain.Recording
	byPath     map[string]domain.RecordingID
	config     map[domain.SystemConfigKey]domain.SystemConfigEntry
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		cameras:    make(map[domain.CameraID]domain.Camera),
		recordings: make(map[domain.RecordingID]*domain.Recording),
		byPath:     make(map[string]domain.RecordingID),
		config:     make(map[domain.SystemConfigKey]domain.SystemConfigEntry),
	}
}

func (m *MemoryGateway) Ping(ctx context.Context) error { return nil }

func (m *MemoryGateway) CameraList(ctx context.Context, filter CameraFilter) ([]domain.Camera, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Camera, 0, len(m.cameras))
	for _, c := range m.cameras {
		if filter.Active != nil && c.Active != *filter.Active {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryGateway) CameraGet(ctx context.Context, id domain.CameraID) (domain.Camera, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cameras[id]
	if !ok {
		return domain.Camera{}, domain.NewError(domain.NotFound, "CameraGet", string(id), nil)
	}
	return c, nil
}

func (m *MemoryGateway) CameraUpsert(ctx context.Context, camera domain.Camera) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cameras[camera.ID] = camera
	return nil
}

func (m *MemoryGateway) CameraPatchState(ctx context.Context, id domain.CameraID, delta domain.CameraState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cameras[id]
	if !ok {
		return domain.NewError(domain.NotFound, "CameraPatchState", string(id), nil)
	}
	if delta.Connection != "" {
		c.State.Connection = delta.Connection
	}
	if delta.Recording != "" {
		c.State.Recording = delta.Recording
	}
	if !delta.LastSeen.IsZero() {
		c.State.LastSeen = delta.LastSeen
	}
	if delta.LastError != "" {
		c.State.LastError = delta.LastError
	}
	m.cameras[id] = c
	return nil
}

func (m *MemoryGateway) RecordingInsert(ctx context.Context, rec domain.Recording) (domain.RecordingID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byPath[rec.FilePath]; exists {
		return "", domain.NewError(domain.DuplicateFilePath, "RecordingInsert", rec.FilePath, nil)
	}
	if rec.ID == "" {
		rec.ID = domain.RecordingID(uuid.New().String())
	}
	cp := rec
	m.recordings[cp.ID] = &cp
	m.byPath[cp.FilePath] = cp.ID
	return cp.ID, nil
}

func (m *MemoryGateway) RecordingListNonDeleted(ctx context.Context) ([]domain.Recording, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Recording, 0, len(m.recordings))
	for _, r := range m.recordings {
		if r.Status == domain.RecordingStatusDeleted {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *MemoryGateway) RecordingFindOverlapping(ctx context.Context, camera domain.CameraID, from, to time.Time) ([]domain.Recording, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Recording
	for _, r := range m.recordings {
		if r.CameraID != camera || r.Status == domain.RecordingStatusDeleted {
			continue
		}
		if r.Overlaps(from, to) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *MemoryGateway) RecordingFindContaining(ctx context.Context, camera domain.CameraID, instant time.Time) (domain.Recording, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.recordings {
		if r.CameraID != camera || r.Status != domain.RecordingStatusCompleted {
			continue
		}
		if r.Contains(instant) {
			return *r, true, nil
		}
	}
	return domain.Recording{}, false, nil
}

func (m *MemoryGateway) RecordingFindExpired(ctx context.Context, now time.Time, limit int) ([]domain.Recording, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Recording
	for _, r := range m.recordings {
		if r.Status == domain.RecordingStatusDeleted || r.Protected {
			continue
		}
		if !r.RetentionInstant.After(now) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryGateway) RecordingFindOldestEligible(ctx context.Context, limit int) ([]domain.Recording, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Recording
	for _, r := range m.recordings {
		if r.Status == domain.RecordingStatusDeleted || r.Protected {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryGateway) RecordingMarkDeleted(ctx context.Context, id domain.RecordingID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recordings[id]
	if !ok {
		return domain.NewError(domain.NotFound, "RecordingMarkDeleted", string(id), nil)
	}
	r.Status = domain.RecordingStatusDeleted
	return nil
}

func (m *MemoryGateway) RecordingGet(ctx context.Context, id domain.RecordingID) (domain.Recording, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.recordings[id]
	if !ok {
		return domain.Recording{}, domain.NewError(domain.NotFound, "RecordingGet", string(id), nil)
	}
	return *r, nil
}

func (m *MemoryGateway) RecordingByPath(ctx context.Context, path string) (domain.Recording, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPath[path]
	if !ok {
		return domain.Recording{}, false, nil
	}
	return *m.recordings[id], true, nil
}

func (m *MemoryGateway) RecordingTotalActiveSize(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	for _, r := range m.recordings {
		if r.Status != domain.RecordingStatusDeleted {
			total += r.SizeBytes
		}
	}
	return total, nil
}

func (m *MemoryGateway) RecordingSetProtected(ctx context.Context, id domain.RecordingID, protected bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recordings[id]
	if !ok {
		return domain.NewError(domain.NotFound, "RecordingSetProtected", string(id), nil)
	}
	r.Protected = protected
	return nil
}

func (m *MemoryGateway) ConfigGet(ctx context.Context, key domain.SystemConfigKey, def any) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.config[key]
	if !ok {
		return def, nil
	}
	return e.Value, nil
}

func (m *MemoryGateway) ConfigSet(ctx context.Context, key domain.SystemConfigKey, value any, principal string) error {
	if !domain.KnownSystemConfigKeys[key] {
		return domain.NewError(domain.Validation, "ConfigSet", "unknown config key: "+string(key), nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config[key] = domain.SystemConfigEntry{Key: key, Value: value, UpdatedBy: principal, UpdatedAt: time.Now().UTC()}
	return nil
}

var _ Gateway = (*MemoryGateway)(nil)
