// Package overlay tracks which storefront overlay is open for each session.
// At most one overlay shows at a time and page scrolling locks whenever any
// overlay is open.
package overlay

import (
	"context"
	"sync"

	pkgerrors "github.com/audiophile-commerce/storefront-backend/pkg/errors"
	"github.com/audiophile-commerce/storefront-backend/pkg/logger"
)

// View names the overlay currently shown.
type View string

const (
	ViewNone         View = "none"
	ViewCart         View = "cart"
	ViewConfirmation View = "confirmation"
)

// State is the observable overlay state for one session.
type State struct {
	View         View `json:"view"`
	ScrollLocked bool `json:"scroll_locked"`
}

// DismissGuard reports whether the session's checkout is at a point where the
// confirmation overlay must stay up.
type DismissGuard interface {
	DismissalLocked(sessionID string) bool
}

// CartClearer empties a session's cart.
type CartClearer interface {
	ClearCart(ctx context.Context, sessionID string)
}

// Coordinator serializes overlay transitions per session.
type Coordinator struct {
	mu    sync.Mutex
	views map[string]View
	guard DismissGuard
	carts CartClearer
	logg  *logger.Logger
}

// NewCoordinator builds a coordinator. guard may be nil when no checkout
// orchestrator participates (dismissal is then never blocked).
func NewCoordinator(guard DismissGuard, carts CartClearer, logg *logger.Logger) *Coordinator {
	return &Coordinator{
		views: make(map[string]View),
		guard: guard,
		carts: carts,
		logg:  logg,
	}
}

// State returns the session's current overlay state.
func (c *Coordinator) State(sessionID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked(sessionID)
}

func (c *Coordinator) stateLocked(sessionID string) State {
	view, ok := c.views[sessionID]
	if !ok {
		view = ViewNone
	}
	return State{View: view, ScrollLocked: view != ViewNone}
}

// OpenCart shows the cart overlay, replacing whatever was open.
func (c *Coordinator) OpenCart(sessionID string) State {
	return c.open(sessionID, ViewCart)
}

// OpenConfirmation shows the confirmation overlay, replacing whatever was
// open.
func (c *Coordinator) OpenConfirmation(sessionID string) State {
	return c.open(sessionID, ViewConfirmation)
}

func (c *Coordinator) open(sessionID string, view View) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[sessionID] = view
	return c.stateLocked(sessionID)
}

// Dismiss closes the open overlay. Closing the confirmation overlay clears
// the cart as a safety net in case checkout's own clear did not land, and is
// refused while the session's checkout is still settling.
func (c *Coordinator) Dismiss(ctx context.Context, sessionID string) (State, error) {
	c.mu.Lock()
	view := c.views[sessionID]
	if view == ViewConfirmation && c.guard != nil && c.guard.DismissalLocked(sessionID) {
		state := c.stateLocked(sessionID)
		c.mu.Unlock()
		return state, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is still in progress")
	}
	delete(c.views, sessionID)
	state := c.stateLocked(sessionID)
	c.mu.Unlock()

	if view == ViewConfirmation && c.carts != nil {
		c.carts.ClearCart(ctx, sessionID)
	}
	return state, nil
}
