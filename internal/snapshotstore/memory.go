// Package snapshotstore persists relationship snapshots for the session manager.
package snapshotstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/f-sync/followcheck/internal/relationships"
	"github.com/f-sync/followcheck/internal/session"
)

var (
	_ session.Store = (*MemoryStore)(nil)
	_ session.Store = (*BadgerStore)(nil)
)

// MemoryStore keeps the encoded snapshot in memory. It encodes on Save so that callers observe
// the same round trip as with a durable store.
type MemoryStore struct {
	mutex   sync.Mutex
	encoded []byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (store *MemoryStore) Load(context.Context) (relationships.Snapshot, bool, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if store.encoded == nil {
		return relationships.Snapshot{}, false, nil
	}
	var snapshot relationships.Snapshot
	if err := json.Unmarshal(store.encoded, &snapshot); err != nil {
		return relationships.Snapshot{}, false, err
	}
	return snapshot, true, nil
}

func (store *MemoryStore) Save(_ context.Context, snapshot relationships.Snapshot) error {
	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.encoded = encoded
	return nil
}

func (store *MemoryStore) Clear(context.Context) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.encoded = nil
	return nil
}
