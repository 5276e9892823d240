package checkout

import (
	"sync"
	"time"

	"github.com/audiophile-commerce/storefront-backend/internal/bridge"
	"github.com/audiophile-commerce/storefront-backend/internal/cart"
	"github.com/audiophile-commerce/storefront-backend/internal/notifications"
	"github.com/audiophile-commerce/storefront-backend/internal/overlay"
	"github.com/audiophile-commerce/storefront-backend/internal/pricing"
	"github.com/audiophile-commerce/storefront-backend/pkg/logger"
	"github.com/audiophile-commerce/storefront-backend/pkg/metrics"
)

// Manager hands out one orchestrator per session. It also answers the
// overlay coordinator's dismissal-lock question, so it satisfies
// overlay.DismissGuard.
type Manager struct {
	mu            sync.Mutex
	orchestrators map[string]*Orchestrator

	carts        *cart.Manager
	store        OrderStore
	snapshots    bridge.Bridge
	notifier     notifications.Service
	overlays     Overlays
	pricing      pricing.Config
	remoteBudget time.Duration
	metrics      *metrics.CheckoutMetrics
	logg         *logger.Logger
}

// ManagerDeps carries the shared collaborators for all sessions.
type ManagerDeps struct {
	Carts        *cart.Manager
	OrderStore   OrderStore
	Snapshots    bridge.Bridge
	Notifier     notifications.Service
	Overlays     Overlays
	Pricing      pricing.Config
	RemoteBudget time.Duration
	Metrics      *metrics.CheckoutMetrics
	Logger       *logger.Logger
}

// NewManager builds the per-session orchestrator registry.
func NewManager(deps ManagerDeps) *Manager {
	return &Manager{
		orchestrators: make(map[string]*Orchestrator),
		carts:         deps.Carts,
		store:         deps.OrderStore,
		snapshots:     deps.Snapshots,
		notifier:      deps.Notifier,
		overlays:      deps.Overlays,
		pricing:       deps.Pricing,
		remoteBudget:  deps.RemoteBudget,
		metrics:       deps.Metrics,
		logg:          deps.Logger,
	}
}

// Get returns the session's orchestrator, constructing it on first access.
func (m *Manager) Get(sessionID string) *Orchestrator {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orchestrators[sessionID]; ok {
		return o
	}
	o := NewOrchestrator(sessionID, Deps{
		Cart:         m.carts.Get(sessionID),
		OrderStore:   m.store,
		Snapshots:    m.snapshots,
		Notifier:     m.notifier,
		Overlays:     m.overlays,
		Pricing:      m.pricing,
		RemoteBudget: m.remoteBudget,
		Metrics:      m.metrics,
		Logger:       m.logg,
	})
	m.orchestrators[sessionID] = o
	return o
}

// SetOverlays wires the overlay coordinator after construction. The overlay
// coordinator and the checkout manager reference each other, so one side is
// attached late.
func (m *Manager) SetOverlays(overlays Overlays) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overlays = overlays
	for _, o := range m.orchestrators {
		o.mu.Lock()
		o.overlays = overlays
		o.mu.Unlock()
	}
}

// DismissalLocked reports whether the session's checkout is settling.
func (m *Manager) DismissalLocked(sessionID string) bool {
	m.mu.Lock()
	o, ok := m.orchestrators[sessionID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return o.DismissalLocked()
}

var _ overlay.DismissGuard = (*Manager)(nil)
