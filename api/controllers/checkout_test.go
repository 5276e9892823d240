package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiophile-commerce/storefront-backend/internal/bridge"
	cartsvc "github.com/audiophile-commerce/storefront-backend/internal/cart"
	checkoutsvc "github.com/audiophile-commerce/storefront-backend/internal/checkout"
	"github.com/audiophile-commerce/storefront-backend/internal/orders"
	"github.com/audiophile-commerce/storefront-backend/internal/pricing"
	"github.com/audiophile-commerce/storefront-backend/pkg/types"
)

type stubOrderStore struct {
	orderID uuid.UUID
	err     error
	inputs  []orders.CreateOrderInput
}

func (s *stubOrderStore) CreateOrder(_ context.Context, input orders.CreateOrderInput) (orders.Result, error) {
	s.inputs = append(s.inputs, input)
	if s.err != nil {
		return orders.Result{}, s.err
	}
	return orders.Result{OrderID: s.orderID}, nil
}

func validFormBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"name":           "Alexei Ward",
		"email":          "alexei@mail.com",
		"phone":          "+12025550136",
		"address":        "1137 Williams Avenue",
		"city":           "New York",
		"zip":            "10001",
		"country":        "United States",
		"payment_method": "cash_on_delivery",
	})
	require.NoError(t, err)
	return body
}

func checkoutFixture(t *testing.T, store *stubOrderStore) (*checkoutsvc.Manager, *cartsvc.Manager, bridge.Bridge) {
	t.Helper()
	carts := cartsvc.NewManager(newMemStorage(), nil)
	snapshots := bridge.NewMemoryBridge()
	manager := checkoutsvc.NewManager(checkoutsvc.ManagerDeps{
		Carts:      carts,
		OrderStore: store,
		Snapshots:  snapshots,
		Pricing:    pricing.DefaultConfig(),
	})
	return manager, carts, snapshots
}

func seedCart(t *testing.T, carts *cartsvc.Manager, sessionID string) {
	t.Helper()
	store := carts.Get(sessionID)
	require.NoError(t, store.WaitHydrated(context.Background()))
	require.NoError(t, store.AddItem(context.Background(), types.CartItem{ID: "xx99-mark-two", Name: "XX99 Mark II", Price: 299900}, 1))
}

func TestCheckoutSubmitCreatesOrder(t *testing.T) {
	store := &stubOrderStore{orderID: uuid.New()}
	manager, carts, snapshots := checkoutFixture(t, store)
	sessionID := uuid.NewString()
	seedCart(t, carts, sessionID)

	resp := httptest.NewRecorder()
	CheckoutSubmit(manager, nil)(resp, sessionRequest(http.MethodPost, "/api/v1/checkout", validFormBody(t), sessionID))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var result checkoutsvc.Result
	decodeData(t, resp, &result)
	assert.Equal(t, store.orderID.String(), result.OrderID)
	assert.Equal(t, types.Cents(364880), result.Totals.GrandTotal)

	require.Len(t, store.inputs, 1)
	assert.True(t, carts.Get(sessionID).IsEmpty())

	present, err := snapshots.IsPresent(context.Background(), sessionID)
	require.NoError(t, err)
	assert.True(t, present)
}

func TestCheckoutSubmitRejectsInvalidForm(t *testing.T) {
	store := &stubOrderStore{orderID: uuid.New()}
	manager, carts, _ := checkoutFixture(t, store)
	sessionID := uuid.NewString()
	seedCart(t, carts, sessionID)

	body, _ := json.Marshal(map[string]string{
		"name":           "Alexei Ward",
		"email":          "not-an-email",
		"phone":          "+12025550136",
		"address":        "1137 Williams Avenue",
		"city":           "New York",
		"zip":            "10001",
		"country":        "United States",
		"payment_method": "e_money",
	})
	resp := httptest.NewRecorder()
	CheckoutSubmit(manager, nil)(resp, sessionRequest(http.MethodPost, "/api/v1/checkout", body, sessionID))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Empty(t, store.inputs)

	var envelope struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	assert.Contains(t, envelope.Error.Details, "email")
	assert.Contains(t, envelope.Error.Details, "e_money_number")
}

func TestCheckoutSubmitEmptyCart(t *testing.T) {
	store := &stubOrderStore{orderID: uuid.New()}
	manager, _, _ := checkoutFixture(t, store)

	resp := httptest.NewRecorder()
	CheckoutSubmit(manager, nil)(resp, sessionRequest(http.MethodPost, "/api/v1/checkout", validFormBody(t), uuid.NewString()))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Empty(t, store.inputs)
}

func TestCheckoutConfirmationConsumesSnapshot(t *testing.T) {
	store := &stubOrderStore{orderID: uuid.New()}
	manager, carts, snapshots := checkoutFixture(t, store)
	sessionID := uuid.NewString()
	seedCart(t, carts, sessionID)

	resp := httptest.NewRecorder()
	CheckoutSubmit(manager, nil)(resp, sessionRequest(http.MethodPost, "/api/v1/checkout", validFormBody(t), sessionID))
	require.Equal(t, http.StatusCreated, resp.Code)

	handler := CheckoutConfirmation(snapshots, carts, pricing.DefaultConfig(), nil)

	resp = httptest.NewRecorder()
	handler(resp, sessionRequest(http.MethodGet, "/api/v1/checkout/confirmation", nil, sessionID))
	require.Equal(t, http.StatusOK, resp.Code)

	var payload confirmationPayload
	decodeData(t, resp, &payload)
	assert.True(t, payload.FromSnapshot)
	assert.Equal(t, store.orderID.String(), payload.OrderID)
	require.Len(t, payload.Items, 1)
	assert.Equal(t, types.Cents(364880), payload.Totals.GrandTotal)

	// Second read falls back to the now-empty live cart.
	resp = httptest.NewRecorder()
	handler(resp, sessionRequest(http.MethodGet, "/api/v1/checkout/confirmation", nil, sessionID))
	require.Equal(t, http.StatusOK, resp.Code)

	payload = confirmationPayload{}
	decodeData(t, resp, &payload)
	assert.False(t, payload.FromSnapshot)
	assert.Empty(t, payload.OrderID)
	assert.Empty(t, payload.Items)
}

func TestCheckoutDismissReturnsState(t *testing.T) {
	store := &stubOrderStore{orderID: uuid.New()}
	manager, carts, _ := checkoutFixture(t, store)
	sessionID := uuid.NewString()
	seedCart(t, carts, sessionID)

	resp := httptest.NewRecorder()
	CheckoutSubmit(manager, nil)(resp, sessionRequest(http.MethodPost, "/api/v1/checkout", validFormBody(t), sessionID))
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = httptest.NewRecorder()
	CheckoutDismiss(manager, nil)(resp, sessionRequest(http.MethodPost, "/api/v1/checkout/dismiss", nil, sessionID))
	require.Equal(t, http.StatusOK, resp.Code)

	var payload map[string]string
	decodeData(t, resp, &payload)
	assert.Equal(t, "idle", payload["state"])
}
