package snapshot

import (
	"context"
	"sync"

	"github.com/example/med-dispatch/internal/models"
)

// Store persists the interruption snapshot. One snapshot per device
// session; Save replaces, Load reads the latest, Clear drops it once the
// engagement is over.
type Store interface {
	Save(ctx context.Context, snap models.PersistedSnapshot) error
	Load(ctx context.Context) (models.PersistedSnapshot, bool, error)
	Clear(ctx context.Context) error
}

type MemoryStore struct {
	mu   sync.RWMutex
	snap *models.PersistedSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(ctx context.Context, snap models.PersistedSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := snap
	m.snap = &copied
	return nil
}

func (m *MemoryStore) Load(ctx context.Context) (models.PersistedSnapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snap == nil {
		return models.PersistedSnapshot{}, false, nil
	}
	return *m.snap, true, nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = nil
	return nil
}
