// Package storage provides announcement history implementations.
package storage

import (
	"context"
	"sync"

	"github.com/hammamikhairi/mysteryhost/internal/domain"
	"github.com/hammamikhairi/mysteryhost/internal/logger"
)

// Compile-time interface check.
var _ domain.HistoryStore = (*MemoryHistory)(nil)

// DefaultHistorySize is how many announcements are kept when no capacity
// is given.
const DefaultHistorySize = 100

// MemoryHistory is a bounded in-memory announcement log. Oldest records
// are evicted first. Safe for concurrent access.
type MemoryHistory struct {
	mu       sync.RWMutex
	order    []string // ids, oldest first
	records  map[string]*domain.Announcement
	capacity int
	log      *logger.Logger
}

// NewMemoryHistory creates an empty history holding at most capacity
// records. capacity <= 0 means DefaultHistorySize.
func NewMemoryHistory(capacity int, log *logger.Logger) *MemoryHistory {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &MemoryHistory{
		records:  make(map[string]*domain.Announcement),
		capacity: capacity,
		log:      log,
	}
}

// Save stores a copy of a. Saving an existing ID overwrites it in place.
func (h *MemoryHistory) Save(ctx context.Context, a *domain.Announcement) error {
	cp := *a

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.records[a.ID]; !ok {
		h.order = append(h.order, a.ID)
	}
	h.records[a.ID] = &cp

	for len(h.order) > h.capacity {
		oldest := h.order[0]
		h.order = h.order[1:]
		delete(h.records, oldest)
		h.log.Debug("history: evicted %s", oldest)
	}

	h.log.Debug("history: saved %s (source=%s, outcome=%s)", a.ID, a.Source, outcome(a))
	return nil
}

// Get retrieves an announcement by ID.
func (h *MemoryHistory) Get(ctx context.Context, id string) (*domain.Announcement, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rec, ok := h.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// List returns up to limit records, newest first. limit <= 0 returns all.
func (h *MemoryHistory) List(ctx context.Context, limit int) ([]*domain.Announcement, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := len(h.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*domain.Announcement, 0, n)
	for i := len(h.order) - 1; i >= 0 && len(out) < n; i-- {
		cp := *h.records[h.order[i]]
		out = append(out, &cp)
	}
	return out, nil
}

// Len returns the number of stored records.
func (h *MemoryHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.order)
}

func outcome(a *domain.Announcement) string {
	if a.Err != "" {
		return "failed"
	}
	return "ok"
}
