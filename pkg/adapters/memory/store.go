// Package memory implements ports.SnapshotStore in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/statch/statch/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.Snapshot
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{data: make(map[string]domain.Snapshot)}
}

// Save persists the snapshot in memory.
func (s *Store) Save(ctx context.Context, sessionID string, snap domain.Snapshot) error {
	// Copy to ensure isolation, same effect serialization would have.
	snap.Context = domain.CopyContext(snap.Context)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = snap
	return nil
}

// Load retrieves the snapshot from memory.
func (s *Store) Load(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[sessionID]
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}

	// Copy on read so callers can't mutate stored state through the map.
	snap.Context = domain.CopyContext(snap.Context)
	return snap, nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the known session IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	return sessions, nil
}
