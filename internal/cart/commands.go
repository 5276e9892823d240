package cart

import "github.com/audiophile-commerce/storefront-backend/pkg/types"

// cartOp tags the mutation variants accepted by the store. Every mutation
// flows through the same exhaustive switch so the invariants live in one
// place.
type cartOp int

const (
	opAdd cartOp = iota
	opRemove
	opSetQuantity
	opClear
)

type command struct {
	op       cartOp
	item     types.CartItem
	itemID   string
	quantity int
}
