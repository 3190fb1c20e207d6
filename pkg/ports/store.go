package ports

import (
	"context"
	"errors"
	"testing"

	"github.com/statch/statch/pkg/domain"
)

// SnapshotStore persists service snapshots keyed by session ID. This enables
// durable sessions: stop a process, load the snapshot later, resume the
// service where it left off.
type SnapshotStore interface {
	// Save persists the snapshot for a session ID.
	Save(ctx context.Context, sessionID string, snap domain.Snapshot) error

	// Load retrieves the snapshot for a session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (domain.Snapshot, error)

	// Delete removes the snapshot for a session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the known session IDs.
	List(ctx context.Context) ([]string, error)
}

// RunSnapshotStoreContract verifies a SnapshotStore implementation against
// the behavior the interpreter relies on. Adapter tests call it with a fresh
// store.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	t.Helper()
	ctx := context.Background()
	const sessionID = "contract-session"

	if _, err := store.Load(ctx, sessionID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("Load of missing session: want ErrSessionNotFound, got %v", err)
	}

	snap := domain.Snapshot{
		Value:   "green",
		Context: map[string]any{"cycles": 3},
		Status:  "Running",
	}
	if err := store.Save(ctx, sessionID, snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Value != "green" || loaded.Status != "Running" {
		t.Errorf("Loaded snapshot mismatch: %+v", loaded)
	}

	// Mutating the loaded snapshot must not leak back into the store.
	loaded.Context["cycles"] = 99
	again, err := store.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if got := again.Context["cycles"]; got == 99 {
		t.Error("store leaked caller mutations back into persisted snapshot")
	}

	ids, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	found := false
	for _, id := range ids {
		if id == sessionID {
			found = true
		}
	}
	if !found {
		t.Errorf("List did not include %q: %v", sessionID, ids)
	}

	if err := store.Delete(ctx, sessionID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(ctx, sessionID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("Load after delete: want ErrSessionNotFound, got %v", err)
	}
}
