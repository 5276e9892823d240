package bridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiophile-commerce/storefront-backend/pkg/types"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		OrderID: "ord-123",
		Items: []types.CartItem{
			{ID: "xx99-mk2", Name: "XX99 Mark II", Price: 299900, Quantity: 1},
		},
		Totals: types.OrderTotals{
			Subtotal:   299900,
			Shipping:   5000,
			Tax:        59980,
			GrandTotal: 364880,
		},
	}
}

func TestMemoryBridgeReadOnceConsumesSnapshot(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBridge()

	require.NoError(t, b.Write(ctx, "sess-1", sampleSnapshot()))

	present, err := b.IsPresent(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, present)

	snap, ok, err := b.ReadOnce(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ord-123", snap.OrderID)
	assert.Equal(t, types.Cents(364880), snap.Totals.GrandTotal)

	// The second read must report absent.
	_, ok, err = b.ReadOnce(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)

	present, err = b.IsPresent(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, present)
}

func TestMemoryBridgeSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBridge()
	require.NoError(t, b.Write(ctx, "sess-1", sampleSnapshot()))

	_, ok, err := b.ReadOnce(ctx, "sess-2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = b.ReadOnce(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryBridgeWriteReplacesPending(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBridge()
	require.NoError(t, b.Write(ctx, "sess-1", sampleSnapshot()))

	replacement := sampleSnapshot()
	replacement.OrderID = "ord-456"
	require.NoError(t, b.Write(ctx, "sess-1", replacement))

	snap, ok, err := b.ReadOnce(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ord-456", snap.OrderID)
}
