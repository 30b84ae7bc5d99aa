package journal

import (
	"sync"

	"github.com/example/med-dispatch/internal/models"
)

// TransportLog defines the advisory persistence operations for finished
// engagements. Writes are best-effort; the engine never blocks on them.
type TransportLog interface {
	Record(r *models.TransportRecord) error
}

type MemoryLog struct {
	mu      sync.RWMutex
	records []*models.TransportRecord
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (m *MemoryLog) Record(r *models.TransportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *MemoryLog) Records() []*models.TransportRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.TransportRecord, len(m.records))
	copy(out, m.records)
	return out
}
