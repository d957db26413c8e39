package storage

import (
	"context"
	"sync"

	"github.com/mwhitford/zone-weather-service/internal/models"
)

// ZoneStore mirrors zone records into persistent storage.
type ZoneStore interface {
	UpsertZones(ctx context.Context, zones []models.Zone) error
	ListZones(ctx context.Context) ([]models.Zone, error)
	Ping(ctx context.Context) error
}

// MemoryStore implements ZoneStore in memory. Used in tests and when no
// database is configured but a store is still wanted.
type MemoryStore struct {
	mu    sync.RWMutex
	zones map[string]models.Zone
	order []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{zones: make(map[string]models.Zone)}
}

// UpsertZones inserts or replaces the given zones, keeping first-insert order.
func (s *MemoryStore) UpsertZones(ctx context.Context, zones []models.Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, z := range zones {
		if _, ok := s.zones[z.Key]; !ok {
			s.order = append(s.order, z.Key)
		}
		s.zones[z.Key] = z
	}
	return nil
}

// ListZones returns all stored zones in first-insert order.
func (s *MemoryStore) ListZones(ctx context.Context) ([]models.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Zone, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.zones[key])
	}
	return out, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
