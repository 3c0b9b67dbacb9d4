package repository

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryEntry struct {
	state     []byte
	updatedAt int64
}

// MemoryWorkspaceRepository keeps workspaces in process memory. It is used
// when no database is configured; state does not survive a restart.
type MemoryWorkspaceRepository struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryWorkspaceRepository returns an empty in-memory repository.
func NewMemoryWorkspaceRepository() *MemoryWorkspaceRepository {
	return &MemoryWorkspaceRepository{entries: make(map[string]memoryEntry)}
}

func (r *MemoryWorkspaceRepository) LoadWorkspace(_ context.Context, id string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, ErrWorkspaceNotFound
	}
	return append([]byte(nil), e.state...), nil
}

func (r *MemoryWorkspaceRepository) SaveWorkspace(_ context.Context, id string, state []byte, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = memoryEntry{state: append([]byte(nil), state...), updatedAt: at.Unix()}
	return nil
}

func (r *MemoryWorkspaceRepository) StaleWorkspaces(_ context.Context, before time.Time) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cutoff := before.Unix()
	var ids []string
	for id, e := range r.entries {
		if e.updatedAt < cutoff {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *MemoryWorkspaceRepository) DeleteWorkspaces(_ context.Context, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.entries[id]; ok {
			delete(r.entries, id)
			n++
		}
	}
	return n, nil
}
