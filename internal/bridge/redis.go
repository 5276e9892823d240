package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/audiophile-commerce/storefront-backend/pkg/redis"
	"github.com/audiophile-commerce/storefront-backend/pkg/types"
)

// RedisBridge persists snapshots as two single-use session keys, one for the
// line items and one for the totals envelope. Both are deleted atomically on
// read via GETDEL.
type RedisBridge struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBridge wires the bridge to Redis with the configured snapshot TTL.
func NewRedisBridge(client *redis.Client, ttl time.Duration) *RedisBridge {
	return &RedisBridge{client: client, ttl: ttl}
}

// totalsEnvelope pairs the totals with the order id so both survive the
// two-key layout.
type totalsEnvelope struct {
	OrderID string            `json:"order_id"`
	Totals  types.OrderTotals `json:"totals"`
}

func (b *RedisBridge) Write(ctx context.Context, sessionID string, snap Snapshot) error {
	items, err := json.Marshal(snap.Items)
	if err != nil {
		return err
	}
	totals, err := json.Marshal(totalsEnvelope{OrderID: snap.OrderID, Totals: snap.Totals})
	if err != nil {
		return err
	}
	return multierr.Combine(
		b.client.Set(ctx, b.client.BridgeItemsKey(sessionID), items, b.ttl),
		b.client.Set(ctx, b.client.BridgeTotalsKey(sessionID), totals, b.ttl),
	)
}

func (b *RedisBridge) ReadOnce(ctx context.Context, sessionID string) (Snapshot, bool, error) {
	rawItems, itemsErr := b.client.GetDel(ctx, b.client.BridgeItemsKey(sessionID))
	rawTotals, totalsErr := b.client.GetDel(ctx, b.client.BridgeTotalsKey(sessionID))
	if errors.Is(itemsErr, goredis.Nil) || errors.Is(totalsErr, goredis.Nil) {
		return Snapshot{}, false, nil
	}
	if err := multierr.Combine(itemsErr, totalsErr); err != nil {
		return Snapshot{}, false, err
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(rawItems), &snap.Items); err != nil {
		return Snapshot{}, false, err
	}
	var envelope totalsEnvelope
	if err := json.Unmarshal([]byte(rawTotals), &envelope); err != nil {
		return Snapshot{}, false, err
	}
	snap.OrderID = envelope.OrderID
	snap.Totals = envelope.Totals
	return snap, true, nil
}

func (b *RedisBridge) IsPresent(ctx context.Context, sessionID string) (bool, error) {
	return b.client.Exists(ctx,
		b.client.BridgeItemsKey(sessionID),
		b.client.BridgeTotalsKey(sessionID),
	)
}
