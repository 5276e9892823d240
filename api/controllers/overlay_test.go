package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	overlaysvc "github.com/audiophile-commerce/storefront-backend/internal/overlay"
)

type stubGuard struct {
	locked bool
}

func (g *stubGuard) DismissalLocked(string) bool { return g.locked }

func TestOverlayLifecycle(t *testing.T) {
	coordinator := overlaysvc.NewCoordinator(nil, nil, nil)
	sessionID := uuid.NewString()

	resp := httptest.NewRecorder()
	OverlayState(coordinator, nil)(resp, sessionRequest(http.MethodGet, "/api/v1/overlay", nil, sessionID))
	require.Equal(t, http.StatusOK, resp.Code)

	var state overlaysvc.State
	decodeData(t, resp, &state)
	assert.Equal(t, overlaysvc.ViewNone, state.View)
	assert.False(t, state.ScrollLocked)

	resp = httptest.NewRecorder()
	OverlayOpenCart(coordinator, nil)(resp, sessionRequest(http.MethodPost, "/api/v1/overlay/cart/open", nil, sessionID))
	require.Equal(t, http.StatusOK, resp.Code)

	decodeData(t, resp, &state)
	assert.Equal(t, overlaysvc.ViewCart, state.View)
	assert.True(t, state.ScrollLocked)

	resp = httptest.NewRecorder()
	OverlayCloseCart(coordinator, nil)(resp, sessionRequest(http.MethodPost, "/api/v1/overlay/cart/close", nil, sessionID))
	require.Equal(t, http.StatusOK, resp.Code)

	decodeData(t, resp, &state)
	assert.Equal(t, overlaysvc.ViewNone, state.View)
	assert.False(t, state.ScrollLocked)
}

func TestOverlayCloseCartIgnoresOtherViews(t *testing.T) {
	coordinator := overlaysvc.NewCoordinator(nil, nil, nil)
	sessionID := uuid.NewString()
	coordinator.OpenConfirmation(sessionID)

	resp := httptest.NewRecorder()
	OverlayCloseCart(coordinator, nil)(resp, sessionRequest(http.MethodPost, "/api/v1/overlay/cart/close", nil, sessionID))
	require.Equal(t, http.StatusOK, resp.Code)

	var state overlaysvc.State
	decodeData(t, resp, &state)
	assert.Equal(t, overlaysvc.ViewConfirmation, state.View)
}

func TestOverlayDismissConfirmationBlockedWhileSettling(t *testing.T) {
	guard := &stubGuard{locked: true}
	coordinator := overlaysvc.NewCoordinator(guard, nil, nil)
	sessionID := uuid.NewString()
	coordinator.OpenConfirmation(sessionID)

	resp := httptest.NewRecorder()
	OverlayDismissConfirmation(coordinator, nil)(resp, sessionRequest(http.MethodPost, "/api/v1/overlay/confirmation/dismiss", nil, sessionID))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	guard.locked = false
	resp = httptest.NewRecorder()
	OverlayDismissConfirmation(coordinator, nil)(resp, sessionRequest(http.MethodPost, "/api/v1/overlay/confirmation/dismiss", nil, sessionID))
	require.Equal(t, http.StatusOK, resp.Code)

	var state overlaysvc.State
	decodeData(t, resp, &state)
	assert.Equal(t, overlaysvc.ViewNone, state.View)
}

func TestOverlayRequiresSession(t *testing.T) {
	coordinator := overlaysvc.NewCoordinator(nil, nil, nil)

	resp := httptest.NewRecorder()
	OverlayState(coordinator, nil)(resp, httptest.NewRequest(http.MethodGet, "/api/v1/overlay", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
