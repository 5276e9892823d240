package cart

import (
	"context"
	"sync"

	"github.com/audiophile-commerce/storefront-backend/pkg/logger"
)

// Manager hands out one Store per session, creating it on first use. Stores
// live for the life of the process; durable state lives in Storage.
type Manager struct {
	mu      sync.Mutex
	stores  map[string]*Store
	storage Storage
	logg    *logger.Logger
}

// NewManager builds a session-scoped store registry.
func NewManager(storage Storage, logg *logger.Logger) *Manager {
	return &Manager{
		stores:  make(map[string]*Store),
		storage: storage,
		logg:    logg,
	}
}

// Get returns the store for the session, constructing and hydrating it on
// first access.
func (m *Manager) Get(sessionID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[sessionID]; ok {
		return s
	}
	s := NewStore(sessionID, m.storage, m.logg)
	m.stores[sessionID] = s
	return s
}

// ClearCart empties the session's cart.
func (m *Manager) ClearCart(ctx context.Context, sessionID string) {
	m.Get(sessionID).Clear(ctx)
}

// Evict drops a session's store from the registry. Durable state is not
// touched; the next Get rebuilds from storage.
func (m *Manager) Evict(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, sessionID)
}
