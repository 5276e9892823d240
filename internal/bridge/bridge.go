// Package bridge hands the final order snapshot from checkout to the
// confirmation view. The handoff is write-once/read-once: the first read
// returns and erases the snapshot, the second read reports absent and the
// caller falls back to the live cart.
package bridge

import (
	"context"

	"github.com/audiophile-commerce/storefront-backend/pkg/types"
)

// Snapshot is the frozen order state captured at checkout completion.
type Snapshot struct {
	OrderID string            `json:"order_id"`
	Items   []types.CartItem  `json:"items"`
	Totals  types.OrderTotals `json:"totals"`
}

// Bridge stores one pending snapshot per session.
type Bridge interface {
	// Write replaces any pending snapshot for the session.
	Write(ctx context.Context, sessionID string, snap Snapshot) error
	// ReadOnce returns the pending snapshot and erases it. The second
	// return is false when nothing is pending.
	ReadOnce(ctx context.Context, sessionID string) (Snapshot, bool, error)
	// IsPresent reports whether a snapshot is pending without consuming it.
	IsPresent(ctx context.Context, sessionID string) (bool, error)
}
