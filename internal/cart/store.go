package cart

import (
	"context"
	"sync"

	pkgerrors "github.com/audiophile-commerce/storefront-backend/pkg/errors"
	"github.com/audiophile-commerce/storefront-backend/pkg/logger"
	"github.com/audiophile-commerce/storefront-backend/pkg/types"
)

// Store owns the cart item collection for one session. It is the single
// source of truth for cart state: totals are derived on read, never cached.
//
// Contents persist to durable storage on every mutation and hydrate once at
// construction. Hydration is first-write-wins relative to in-memory state: a
// user mutation that lands before hydration completes is never discarded.
type Store struct {
	mu        sync.Mutex
	sessionID string
	items     []types.CartItem
	mutated   bool
	hydrated  bool

	storage Storage
	logg    *logger.Logger

	hydrationDone chan struct{}
}

// NewStore builds a cart store and starts its one-time hydration.
func NewStore(sessionID string, storage Storage, logg *logger.Logger) *Store {
	s := &Store{
		sessionID:     sessionID,
		storage:       storage,
		logg:          logg,
		hydrationDone: make(chan struct{}),
	}
	go s.hydrate(context.Background())
	return s
}

func (s *Store) hydrate(ctx context.Context) {
	defer close(s.hydrationDone)

	if s.storage == nil {
		s.mu.Lock()
		s.hydrated = true
		s.mu.Unlock()
		return
	}

	items, err := s.storage.Load(ctx, s.sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrated = true

	if err != nil {
		// Non-fatal: the cart degrades to in-memory only.
		if s.logg != nil {
			s.logg.Error(ctx, "cart.hydration.failed",
				pkgerrors.Wrap(pkgerrors.CodeHydration, err, "load cart"))
		}
		return
	}
	if s.mutated {
		// The user acted before hydration finished; the stored payload
		// loses and will be overwritten by the next persist.
		if s.logg != nil {
			s.logg.Warn(ctx, "cart.hydration.discarded")
		}
		return
	}
	s.items = sanitize(items)
}

// WaitHydrated blocks until the one-time hydration has settled.
func (s *Store) WaitHydrated(ctx context.Context) error {
	select {
	case <-s.hydrationDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddItem merges the item into an existing entry or appends a new one.
func (s *Store) AddItem(ctx context.Context, item types.CartItem, quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}
	if item.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if item.Price < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "item price must be non-negative")
	}
	s.dispatch(ctx, command{op: opAdd, item: item, quantity: quantity})
	return nil
}

// RemoveItem drops the entry if present; absent ids are a no-op.
func (s *Store) RemoveItem(ctx context.Context, itemID string) {
	s.dispatch(ctx, command{op: opRemove, itemID: itemID})
}

// SetQuantity overwrites the quantity for an existing entry. Anything below
// one removes the entry instead.
func (s *Store) SetQuantity(ctx context.Context, itemID string, quantity int) {
	s.dispatch(ctx, command{op: opSetQuantity, itemID: itemID, quantity: quantity})
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.dispatch(ctx, command{op: opClear})
}

// Items returns the cart contents in insertion order.
func (s *Store) Items() []types.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

// TotalItemCount sums the quantities of all entries.
func (s *Store) TotalItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

// IsEmpty reports whether the cart holds no entries.
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) == 0
}

func (s *Store) dispatch(ctx context.Context, cmd command) {
	s.mu.Lock()
	s.apply(cmd)
	s.mutated = true
	snapshot := make([]types.CartItem, len(s.items))
	copy(snapshot, s.items)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
}

// apply is the only mutation path. The switch is exhaustive over cartOp.
func (s *Store) apply(cmd command) {
	switch cmd.op {
	case opAdd:
		for i := range s.items {
			if s.items[i].ID == cmd.item.ID {
				s.items[i].Quantity += cmd.quantity
				return
			}
		}
		item := cmd.item
		item.Quantity = cmd.quantity
		s.items = append(s.items, item)

	case opRemove:
		s.removeLocked(cmd.itemID)

	case opSetQuantity:
		if cmd.quantity < 1 {
			s.removeLocked(cmd.itemID)
			return
		}
		for i := range s.items {
			if s.items[i].ID == cmd.itemID {
				s.items[i].Quantity = cmd.quantity
				return
			}
		}

	case opClear:
		s.items = nil
	}
}

func (s *Store) removeLocked(itemID string) {
	for i := range s.items {
		if s.items[i].ID == itemID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

func (s *Store) persist(ctx context.Context, items []types.CartItem) {
	if s.storage == nil {
		return
	}
	if err := s.storage.Save(ctx, s.sessionID, items); err != nil {
		// Persistence failures never surface; the session keeps its
		// in-memory cart.
		if s.logg != nil {
			s.logg.Error(ctx, "cart.persist.failed",
				pkgerrors.Wrap(pkgerrors.CodeHydration, err, "save cart"))
		}
	}
}

func sanitize(items []types.CartItem) []types.CartItem {
	out := make([]types.CartItem, 0, len(items))
	seen := map[string]int{}
	for _, item := range items {
		if item.ID == "" || item.Quantity < 1 || item.Price < 0 {
			continue
		}
		if i, ok := seen[item.ID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		seen[item.ID] = len(out)
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
