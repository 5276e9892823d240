// Package checkout drives a submission attempt through its state machine:
// Idle, Validating, Submitting, AwaitingRemote, Finalizing, then Completed
// or Failed. One orchestrator exists per session and at most one attempt is
// in flight at a time.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/audiophile-commerce/storefront-backend/internal/bridge"
	"github.com/audiophile-commerce/storefront-backend/internal/cart"
	"github.com/audiophile-commerce/storefront-backend/internal/notifications"
	"github.com/audiophile-commerce/storefront-backend/internal/orders"
	"github.com/audiophile-commerce/storefront-backend/internal/overlay"
	"github.com/audiophile-commerce/storefront-backend/internal/pricing"
	pkgerrors "github.com/audiophile-commerce/storefront-backend/pkg/errors"
	"github.com/audiophile-commerce/storefront-backend/pkg/logger"
	"github.com/audiophile-commerce/storefront-backend/pkg/metrics"
	"github.com/audiophile-commerce/storefront-backend/pkg/types"
)

// State names a phase of a checkout attempt.
type State string

const (
	StateIdle           State = "idle"
	StateValidating     State = "validating"
	StateSubmitting     State = "submitting"
	StateAwaitingRemote State = "awaiting_remote"
	StateFinalizing     State = "finalizing"
	StateCompleted      State = "completed"
	StateFailed         State = "failed"
)

// OrderStore persists a confirmed order. The call may outlive the remote
// budget; the orchestrator stops waiting but never cancels it.
type OrderStore interface {
	CreateOrder(ctx context.Context, input orders.CreateOrderInput) (orders.Result, error)
}

// Overlays is the slice of the overlay coordinator the orchestrator drives.
type Overlays interface {
	OpenConfirmation(sessionID string) overlay.State
}

// Result is returned to the caller after a completed attempt.
type Result struct {
	OrderID string            `json:"order_id"`
	Totals  types.OrderTotals `json:"totals"`
}

type orderOutcome struct {
	result orders.Result
	err    error
}

// Orchestrator runs checkout attempts for one session.
type Orchestrator struct {
	mu        sync.Mutex
	state     State
	sessionID string

	cart         *cart.Store
	store        OrderStore
	snapshots    bridge.Bridge
	notifier     notifications.Service
	overlays     Overlays
	pricing      pricing.Config
	remoteBudget time.Duration
	metrics      *metrics.CheckoutMetrics
	logg         *logger.Logger

	// now is swappable for tests.
	now func() time.Time
}

// Deps carries the collaborators an orchestrator needs.
type Deps struct {
	Cart         *cart.Store
	OrderStore   OrderStore
	Snapshots    bridge.Bridge
	Notifier     notifications.Service
	Overlays     Overlays
	Pricing      pricing.Config
	RemoteBudget time.Duration
	Metrics      *metrics.CheckoutMetrics
	Logger       *logger.Logger
}

// NewOrchestrator builds an idle orchestrator for the session.
func NewOrchestrator(sessionID string, deps Deps) *Orchestrator {
	budget := deps.RemoteBudget
	if budget <= 0 {
		budget = 15 * time.Second
	}
	return &Orchestrator{
		state:        StateIdle,
		sessionID:    sessionID,
		cart:         deps.Cart,
		store:        deps.OrderStore,
		snapshots:    deps.Snapshots,
		notifier:     deps.Notifier,
		overlays:     deps.Overlays,
		pricing:      deps.Pricing,
		remoteBudget: budget,
		metrics:      deps.Metrics,
		logg:         deps.Logger,
		now:          time.Now,
	}
}

// State returns the current phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// DismissalLocked reports whether the confirmation overlay must stay up.
func (o *Orchestrator) DismissalLocked() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == StateAwaitingRemote || o.state == StateFinalizing
}

// Dismiss returns a settled attempt to Idle so the user can start another.
func (o *Orchestrator) Dismiss() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateCompleted || o.state == StateFailed {
		o.state = StateIdle
	}
}

// Submit runs one checkout attempt to a terminal state. A submit while an
// attempt is already in flight is rejected without side effects, as is a
// submit against an empty cart.
func (o *Orchestrator) Submit(ctx context.Context, form Form) (Result, error) {
	if err := o.begin(); err != nil {
		return Result{}, err
	}

	if err := form.Validate(); err != nil {
		o.setState(StateIdle)
		return Result{}, err
	}

	// A durably persisted cart may still be loading after a restart; the
	// empty-cart check must not race it.
	if err := o.cart.WaitHydrated(ctx); err != nil {
		o.setState(StateIdle)
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeHydration, err, "cart hydration interrupted")
	}

	items := o.cart.Items()
	if len(items) == 0 {
		o.setState(StateIdle)
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	o.setState(StateSubmitting)
	request := buildRequest(form, items, o.pricing)

	o.setState(StateAwaitingRemote)
	outcome, err := o.awaitOrder(ctx, request)
	if err != nil {
		// Cart is preserved so the user can retry.
		o.fail(err)
		return Result{}, err
	}

	o.setState(StateFinalizing)
	o.finalize(ctx, request, outcome)

	o.setState(StateCompleted)
	o.countOutcome("completed")
	return Result{
		OrderID: outcome.OrderID.String(),
		Totals:  request.Totals(),
	}, nil
}

func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case StateIdle, StateCompleted, StateFailed:
		o.state = StateValidating
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "a checkout attempt is already in flight")
	}
}

// awaitOrder races the order store call against the remote budget. The timer
// firing only stops the wait; the underlying call keeps running and a late
// success is logged as arrived-after-timeout.
func (o *Orchestrator) awaitOrder(ctx context.Context, request Request) (orders.Result, error) {
	results := make(chan orderOutcome, 1)
	started := o.now()

	go func() {
		result, err := o.store.CreateOrder(context.WithoutCancel(ctx), request.orderInput())
		results <- orderOutcome{result: result, err: err}
	}()

	timer := time.NewTimer(o.remoteBudget)
	defer timer.Stop()

	select {
	case outcome := <-results:
		duration := o.now().Sub(started)
		if outcome.err != nil {
			o.observeOrderStore("error", duration)
			return orders.Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, outcome.err, "create order")
		}
		o.observeOrderStore("success", duration)
		return outcome.result, nil

	case <-timer.C:
		o.observeOrderStore("timeout", o.remoteBudget)
		go o.reportLateResult(results)
		return orders.Result{}, pkgerrors.New(pkgerrors.CodeRemoteTimeout, "order store exceeded the remote budget")
	}
}

// reportLateResult drains the abandoned call. An order may exist remotely
// with no confirmation ever shown; that is logged rather than reconciled.
func (o *Orchestrator) reportLateResult(results <-chan orderOutcome) {
	outcome := <-results
	ctx := context.Background()
	if o.logg == nil {
		return
	}
	ctx = o.logg.WithSessionID(ctx, o.sessionID)
	if outcome.err != nil {
		o.logg.Warn(o.logg.WithField(ctx, "late_error", outcome.err.Error()),
			"checkout.order_store.failed_after_timeout")
		return
	}
	o.logg.Warn(o.logg.WithOrderID(ctx, outcome.result.OrderID.String()),
		"checkout.order_store.result_arrived_after_timeout")
}

// finalize performs the strictly ordered success effects: snapshot write,
// then cart clear, then best-effort notification, then the overlay switch.
func (o *Orchestrator) finalize(ctx context.Context, request Request, outcome orders.Result) {
	snap := bridge.Snapshot{
		OrderID: outcome.OrderID.String(),
		Items:   request.Items(),
		Totals:  request.Totals(),
	}
	if err := o.snapshots.Write(ctx, o.sessionID, snap); err != nil && o.logg != nil {
		o.logg.Error(o.logg.WithSessionID(ctx, o.sessionID),
			"checkout.snapshot.write_failed", err)
	}

	o.cart.Clear(ctx)

	if o.notifier != nil {
		customer := request.Customer()
		err := o.notifier.SendOrderConfirmation(ctx, notifications.OrderConfirmation{
			CustomerName:    customer.Name,
			CustomerEmail:   customer.Email,
			OrderID:         snap.OrderID,
			Items:           snap.Items,
			Totals:          snap.Totals,
			ShippingAddress: request.shipping,
		})
		if err != nil && o.logg != nil {
			o.logg.Error(o.logg.WithOrderID(ctx, snap.OrderID),
				"checkout.notification.failed", err)
		}
	}

	if o.overlays != nil {
		o.overlays.OpenConfirmation(o.sessionID)
	}
}

func (o *Orchestrator) fail(err error) {
	o.setState(StateFailed)
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeRemoteTimeout {
		o.countOutcome("timeout")
		return
	}
	o.countOutcome("failed")
}

func (o *Orchestrator) setState(next State) {
	o.mu.Lock()
	o.state = next
	o.mu.Unlock()
}

func (o *Orchestrator) observeOrderStore(outcome string, duration time.Duration) {
	if o.metrics != nil {
		o.metrics.ObserveOrderStore(outcome, duration)
	}
}

func (o *Orchestrator) countOutcome(outcome string) {
	if o.metrics != nil {
		o.metrics.IncOutcome(outcome)
	}
}

