package checkout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiophile-commerce/storefront-backend/internal/bridge"
	"github.com/audiophile-commerce/storefront-backend/internal/cart"
	"github.com/audiophile-commerce/storefront-backend/internal/notifications"
	"github.com/audiophile-commerce/storefront-backend/internal/orders"
	"github.com/audiophile-commerce/storefront-backend/internal/overlay"
	"github.com/audiophile-commerce/storefront-backend/internal/pricing"
	pkgerrors "github.com/audiophile-commerce/storefront-backend/pkg/errors"
	"github.com/audiophile-commerce/storefront-backend/pkg/types"
)

type fakeOrderStore struct {
	mu      sync.Mutex
	calls   atomic.Int32
	delay   time.Duration
	err     error
	release chan struct{}
	inputs  []orders.CreateOrderInput
	orderID uuid.UUID
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orderID: uuid.New()}
}

func (f *fakeOrderStore) CreateOrder(ctx context.Context, input orders.CreateOrderInput) (orders.Result, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.inputs = append(f.inputs, input)
	f.mu.Unlock()

	if f.release != nil {
		<-f.release
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return orders.Result{}, f.err
	}
	return orders.Result{OrderID: f.orderID, CreatedAt: time.Now()}, nil
}

type fakeNotifier struct {
	calls atomic.Int32
	err   error
	last  notifications.OrderConfirmation
	mu    sync.Mutex
}

func (f *fakeNotifier) SendOrderConfirmation(_ context.Context, confirmation notifications.OrderConfirmation) error {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = confirmation
	f.mu.Unlock()
	return f.err
}

type fakeOverlays struct {
	mu     sync.Mutex
	opened []string
}

func (f *fakeOverlays) OpenConfirmation(sessionID string) overlay.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, sessionID)
	return overlay.State{View: overlay.ViewConfirmation, ScrollLocked: true}
}

type orchestratorFixture struct {
	orchestrator *Orchestrator
	cart         *cart.Store
	store        *fakeOrderStore
	snapshots    *bridge.MemoryBridge
	notifier     *fakeNotifier
	overlays     *fakeOverlays
}

func newFixture(t *testing.T, store *fakeOrderStore, budget time.Duration) *orchestratorFixture {
	t.Helper()

	cartStore := cart.NewStore("sess-1", nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, cartStore.WaitHydrated(ctx))

	snapshots := bridge.NewMemoryBridge()
	notifier := &fakeNotifier{}
	overlays := &fakeOverlays{}

	return &orchestratorFixture{
		orchestrator: NewOrchestrator("sess-1", Deps{
			Cart:         cartStore,
			OrderStore:   store,
			Snapshots:    snapshots,
			Notifier:     notifier,
			Overlays:     overlays,
			Pricing:      pricing.DefaultConfig(),
			RemoteBudget: budget,
		}),
		cart:      cartStore,
		store:     store,
		snapshots: snapshots,
		notifier:  notifier,
		overlays:  overlays,
	}
}

func fillCart(t *testing.T, c *cart.Store) {
	t.Helper()
	require.NoError(t, c.AddItem(context.Background(),
		types.CartItem{ID: "xx99-mk2", Name: "XX99 Mark II", Price: 299900}, 1))
}

func TestOrchestratorHappyPath(t *testing.T) {
	ctx := context.Background()
	store := newFakeOrderStore()
	f := newFixture(t, store, time.Second)
	fillCart(t, f.cart)

	result, err := f.orchestrator.Submit(ctx, validForm())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, f.orchestrator.State())
	assert.Equal(t, store.orderID.String(), result.OrderID)
	assert.Equal(t, types.Cents(299900), result.Totals.Subtotal)
	assert.Equal(t, types.Cents(5000), result.Totals.Shipping)
	assert.Equal(t, types.Cents(59980), result.Totals.Tax)
	assert.Equal(t, types.Cents(364880), result.Totals.GrandTotal)

	// The cart is cleared only after the snapshot was written.
	assert.True(t, f.cart.IsEmpty())

	snap, ok, err := f.snapshots.ReadOnce(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result.OrderID, snap.OrderID)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "xx99-mk2", snap.Items[0].ID)

	// Exactly one read consumes the snapshot.
	_, ok, err = f.snapshots.ReadOnce(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{"sess-1"}, f.overlays.opened)
	assert.Equal(t, int32(1), f.notifier.calls.Load())
	assert.Equal(t, "alexei@mail.com", f.notifier.last.CustomerEmail)
}

func TestOrchestratorRejectsEmptyCart(t *testing.T) {
	f := newFixture(t, newFakeOrderStore(), time.Second)

	_, err := f.orchestrator.Submit(context.Background(), validForm())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Equal(t, StateIdle, f.orchestrator.State())
	assert.Zero(t, f.store.calls.Load())
}

func TestOrchestratorValidationFailureNeverReachesStore(t *testing.T) {
	f := newFixture(t, newFakeOrderStore(), time.Second)
	fillCart(t, f.cart)

	form := validForm()
	form.Email = "nope"
	_, err := f.orchestrator.Submit(context.Background(), form)
	require.Error(t, err)
	assert.Equal(t, StateIdle, f.orchestrator.State())
	assert.Zero(t, f.store.calls.Load())
	assert.False(t, f.cart.IsEmpty())
}

func TestOrchestratorDoubleSubmitIssuesOneCreateOrder(t *testing.T) {
	store := newFakeOrderStore()
	store.release = make(chan struct{})
	f := newFixture(t, store, time.Second)
	fillCart(t, f.cart)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.orchestrator.Submit(context.Background(), validForm())
		assert.NoError(t, err)
	}()

	// Wait for the first attempt to reach the order store.
	require.Eventually(t, func() bool {
		return store.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	_, err := f.orchestrator.Submit(context.Background(), validForm())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	close(store.release)
	wg.Wait()
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestOrchestratorTimeoutPreservesCart(t *testing.T) {
	store := newFakeOrderStore()
	store.delay = 300 * time.Millisecond
	f := newFixture(t, store, 30*time.Millisecond)
	fillCart(t, f.cart)

	_, err := f.orchestrator.Submit(context.Background(), validForm())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeRemoteTimeout, pkgerrors.As(err).Code())
	assert.Equal(t, StateFailed, f.orchestrator.State())

	// Cart survives so the user can retry; no snapshot was written.
	assert.False(t, f.cart.IsEmpty())
	present, err := f.snapshots.IsPresent(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.False(t, present)
	assert.Empty(t, f.overlays.opened)
	assert.Zero(t, f.notifier.calls.Load())
}

func TestOrchestratorRemoteFailurePreservesCart(t *testing.T) {
	store := newFakeOrderStore()
	store.err = errors.New("connection refused")
	f := newFixture(t, store, time.Second)
	fillCart(t, f.cart)

	_, err := f.orchestrator.Submit(context.Background(), validForm())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
	assert.Equal(t, StateFailed, f.orchestrator.State())
	assert.False(t, f.cart.IsEmpty())

	// A fresh submit after a failure is allowed.
	store.err = nil
	_, err = f.orchestrator.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, f.orchestrator.State())
}

func TestOrchestratorNotificationFailureStillCompletes(t *testing.T) {
	store := newFakeOrderStore()
	f := newFixture(t, store, time.Second)
	f.notifier.err = errors.New("smtp unreachable")
	fillCart(t, f.cart)

	result, err := f.orchestrator.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, f.orchestrator.State())
	assert.Equal(t, store.orderID.String(), result.OrderID)

	present, err := f.snapshots.IsPresent(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, []string{"sess-1"}, f.overlays.opened)
}

func TestOrchestratorRequestIsPointInTime(t *testing.T) {
	store := newFakeOrderStore()
	store.release = make(chan struct{})
	f := newFixture(t, store, time.Second)
	fillCart(t, f.cart)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.orchestrator.Submit(context.Background(), validForm())
	}()

	require.Eventually(t, func() bool {
		return store.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// A cart mutation while the call is in flight must not leak into the
	// already-built request.
	require.NoError(t, f.cart.AddItem(context.Background(),
		types.CartItem{ID: "zx9", Name: "ZX9 Speaker", Price: 450000}, 1))

	close(store.release)
	<-done

	require.Len(t, store.inputs, 1)
	require.Len(t, store.inputs[0].Items, 1)
	assert.Equal(t, "xx99-mk2", store.inputs[0].Items[0].ID)
}

func TestOrchestratorDismissReturnsToIdle(t *testing.T) {
	store := newFakeOrderStore()
	f := newFixture(t, store, time.Second)
	fillCart(t, f.cart)

	_, err := f.orchestrator.Submit(context.Background(), validForm())
	require.NoError(t, err)
	require.Equal(t, StateCompleted, f.orchestrator.State())

	f.orchestrator.Dismiss()
	assert.Equal(t, StateIdle, f.orchestrator.State())

	// Dismiss is a no-op outside terminal states.
	f.orchestrator.Dismiss()
	assert.Equal(t, StateIdle, f.orchestrator.State())
}

func TestManagerDismissalLock(t *testing.T) {
	store := newFakeOrderStore()
	store.release = make(chan struct{})

	carts := cart.NewManager(nil, nil)
	m := NewManager(ManagerDeps{
		Carts:        carts,
		OrderStore:   store,
		Snapshots:    bridge.NewMemoryBridge(),
		Notifier:     &fakeNotifier{},
		Pricing:      pricing.DefaultConfig(),
		RemoteBudget: time.Second,
	})
	m.SetOverlays(&fakeOverlays{})

	assert.False(t, m.DismissalLocked("sess-9"))

	o := m.Get("sess-9")
	assert.Same(t, o, m.Get("sess-9"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	session := carts.Get("sess-9")
	require.NoError(t, session.WaitHydrated(ctx))
	fillCart(t, session)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = o.Submit(context.Background(), validForm())
	}()

	require.Eventually(t, func() bool {
		return m.DismissalLocked("sess-9")
	}, time.Second, 5*time.Millisecond)

	close(store.release)
	<-done
	assert.False(t, m.DismissalLocked("sess-9"))
}

type slowCartStorage struct {
	delay time.Duration
	items []types.CartItem
}

func (s *slowCartStorage) Load(_ context.Context, _ string) ([]types.CartItem, error) {
	time.Sleep(s.delay)
	return s.items, nil
}

func (s *slowCartStorage) Save(_ context.Context, _ string, _ []types.CartItem) error {
	return nil
}

func (s *slowCartStorage) Delete(_ context.Context, _ string) error {
	return nil
}

func TestSubmitWaitsForCartHydration(t *testing.T) {
	storage := &slowCartStorage{
		delay: 100 * time.Millisecond,
		items: []types.CartItem{{ID: "xx99-mk2", Name: "XX99 Mark II", Price: 299900, Quantity: 1}},
	}
	cartStore := cart.NewStore("sess-1", storage, nil)

	store := newFakeOrderStore()
	orchestrator := NewOrchestrator("sess-1", Deps{
		Cart:         cartStore,
		OrderStore:   store,
		Snapshots:    bridge.NewMemoryBridge(),
		Pricing:      pricing.DefaultConfig(),
		RemoteBudget: time.Second,
	})

	// Submit lands before the storage load resolves; the persisted cart
	// must still be honored rather than rejected as empty.
	result, err := orchestrator.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, store.orderID.String(), result.OrderID)

	require.Len(t, store.inputs, 1)
	require.Len(t, store.inputs[0].Items, 1)
	assert.Equal(t, "xx99-mk2", store.inputs[0].Items[0].ID)
}
