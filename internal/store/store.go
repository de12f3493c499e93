package store

import (
	"context"
	"sort"
	"sync"

	"github.com/millionvolts/adgather/internal/model"
)

// Store holds baseline entries keyed by (account, campaign).
type Store interface {
	// Load hydrates the store from its backing medium. A no-op for the
	// in-memory store.
	Load(ctx context.Context) error

	// Get returns the baseline for an (account, campaign) pair. The account
	// identifier may be canonical or bare.
	Get(accountID, campaignID string) (model.BaselineEntry, bool)

	// PutAll replaces or inserts the given entries.
	PutAll(ctx context.Context, entries []model.BaselineEntry) error

	// Entries returns all baselines in key order.
	Entries() []model.BaselineEntry

	// Initialized reports whether an induction round has completed.
	Initialized() bool

	// MarkInitialized records that induction completed and was acknowledged.
	MarkInitialized(ctx context.Context) error
}

// MemoryStore keeps baselines in a map guarded by a RWMutex.
type MemoryStore struct {
	mu          sync.RWMutex
	entries     map[string]model.BaselineEntry
	initialized bool
}

// NewMemoryStore returns an empty, uninitialized store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]model.BaselineEntry)}
}

func (s *MemoryStore) Load(ctx context.Context) error { return nil }

func (s *MemoryStore) Get(accountID, campaignID string) (model.BaselineEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[model.BaselineKey(accountID, campaignID)]
	return e, ok
}

func (s *MemoryStore) PutAll(ctx context.Context, entries []model.BaselineEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[e.Key()] = e
	}
	return nil
}

func (s *MemoryStore) Entries() []model.BaselineEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]model.BaselineEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.entries[k])
	}
	return out
}

func (s *MemoryStore) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

func (s *MemoryStore) MarkInitialized(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	return nil
}
