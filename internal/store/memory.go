package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-lookup/internal/history"
)

var _ history.Repository = (*MemoryStore)(nil)

// MemoryPath selects the in-memory store in place of a database file.
const MemoryPath = ":memory:"

// MemoryStore is a concurrency-safe in-memory history.Repository. Entries
// are lost on restart.
type MemoryStore struct {
	mu sync.RWMutex

	// entries in insertion order
	entries []history.Entry
	nextID  int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make([]history.Entry, 0, 32),
		nextID:  1,
	}
}

// LatestByCity returns the most recently saved entry for city.
func (s *MemoryStore) LatestByCity(_ context.Context, city string) (history.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest history.Entry
		found  bool
	)
	for _, e := range s.entries {
		if e.CityName != city {
			continue
		}
		if !found || e.SavedAt.After(latest.SavedAt) {
			latest = e
			found = true
		}
	}
	return latest, found, nil
}

// Insert appends e and assigns its ID.
func (s *MemoryStore) Insert(_ context.Context, e *history.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.nextID
	e.SavedAt = e.SavedAt.UTC()
	s.nextID++
	s.entries = append(s.entries, *e)
	return nil
}

// DeleteSavedBefore removes entries saved strictly before cutoff.
func (s *MemoryStore) DeleteSavedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	var removed int64
	for _, e := range s.entries {
		if e.SavedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed, nil
}

// List returns a copy of all entries, newest first.
func (s *MemoryStore) List(_ context.Context) ([]history.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]history.Entry, len(s.entries))
	copy(out, s.entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out, nil
}

// Delete removes the entry with the given id.
func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return history.ErrEntryNotFound
}

// HealthCheck always succeeds.
func (s *MemoryStore) HealthCheck(context.Context) error {
	return nil
}
