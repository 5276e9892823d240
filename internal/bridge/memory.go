package bridge

import (
	"context"
	"sync"
)

// MemoryBridge keeps snapshots in process memory. It backs tests and
// deployments without Redis; snapshots do not survive a restart.
type MemoryBridge struct {
	mu      sync.Mutex
	pending map[string]Snapshot
}

// NewMemoryBridge builds an empty in-memory bridge.
func NewMemoryBridge() *MemoryBridge {
	return &MemoryBridge{pending: make(map[string]Snapshot)}
}

func (b *MemoryBridge) Write(_ context.Context, sessionID string, snap Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[sessionID] = snap
	return nil
}

func (b *MemoryBridge) ReadOnce(_ context.Context, sessionID string) (Snapshot, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap, ok := b.pending[sessionID]
	if ok {
		delete(b.pending, sessionID)
	}
	return snap, ok, nil
}

func (b *MemoryBridge) IsPresent(_ context.Context, sessionID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.pending[sessionID]
	return ok, nil
}
