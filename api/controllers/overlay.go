package controllers

import (
	"net/http"

	"github.com/audiophile-commerce/storefront-backend/api/middleware"
	"github.com/audiophile-commerce/storefront-backend/api/responses"
	overlaysvc "github.com/audiophile-commerce/storefront-backend/internal/overlay"
	pkgerrors "github.com/audiophile-commerce/storefront-backend/pkg/errors"
	"github.com/audiophile-commerce/storefront-backend/pkg/logger"
)

func overlaySession(r *http.Request) (string, error) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "session missing")
	}
	return sessionID, nil
}

// OverlayState reports which overlay is open and whether scroll is locked.
func OverlayState(coordinator *overlaysvc.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := overlaySession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coordinator.State(sessionID))
	}
}

// OverlayOpenCart shows the cart overlay.
func OverlayOpenCart(coordinator *overlaysvc.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := overlaySession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coordinator.OpenCart(sessionID))
	}
}

// OverlayCloseCart closes the cart overlay if it is the one open.
func OverlayCloseCart(coordinator *overlaysvc.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := overlaySession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if coordinator.State(sessionID).View != overlaysvc.ViewCart {
			responses.WriteSuccess(w, coordinator.State(sessionID))
			return
		}
		state, err := coordinator.Dismiss(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

// OverlayDismissConfirmation closes the confirmation overlay. It is refused
// while the session's checkout is still settling.
func OverlayDismissConfirmation(coordinator *overlaysvc.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := overlaySession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if coordinator.State(sessionID).View != overlaysvc.ViewConfirmation {
			responses.WriteSuccess(w, coordinator.State(sessionID))
			return
		}
		state, err := coordinator.Dismiss(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}
