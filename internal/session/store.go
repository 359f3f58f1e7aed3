package session

import (
	"context"
	"sync"
	"time"

	"github.com/rpattn/sheetpattern/internal/domain"
	"github.com/rpattn/sheetpattern/internal/recorder"
)

// Snapshot is the recording progress of one session: the steps so far and the
// coalescing state needed to continue them.
type Snapshot struct {
	Steps     []domain.PatternStep `json:"steps"`
	State     recorder.State       `json:"state"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// Store keeps session snapshots between events.
type Store interface {
	Load(ctx context.Context, sessionID string) (Snapshot, bool, error)
	Save(ctx context.Context, sessionID string, snapshot Snapshot) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore is an in-process Store. Snapshots are copied on the way in and out.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]Snapshot)}
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[sessionID]
	if !ok {
		return Snapshot{}, false, nil
	}
	snapshot.Steps = domain.CloneSteps(snapshot.Steps)
	return snapshot, true, nil
}

func (s *MemoryStore) Save(ctx context.Context, sessionID string, snapshot Snapshot) error {
	snapshot.Steps = domain.CloneSteps(snapshot.Steps)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[sessionID] = snapshot
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, sessionID)
	return nil
}
