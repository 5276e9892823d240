package controllers

import (
	"net/http"

	"github.com/audiophile-commerce/storefront-backend/api/middleware"
	"github.com/audiophile-commerce/storefront-backend/api/responses"
	"github.com/audiophile-commerce/storefront-backend/api/validators"
	"github.com/audiophile-commerce/storefront-backend/internal/bridge"
	cartsvc "github.com/audiophile-commerce/storefront-backend/internal/cart"
	checkoutsvc "github.com/audiophile-commerce/storefront-backend/internal/checkout"
	"github.com/audiophile-commerce/storefront-backend/internal/pricing"
	pkgerrors "github.com/audiophile-commerce/storefront-backend/pkg/errors"
	"github.com/audiophile-commerce/storefront-backend/pkg/logger"
	"github.com/audiophile-commerce/storefront-backend/pkg/types"
)

// CheckoutSubmit runs one checkout attempt for the session's cart.
func CheckoutSubmit(manager *checkoutsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session missing"))
			return
		}

		// The form carries its own validation rules, including the
		// conditional e-money fields.
		var form checkoutsvc.Form
		if err := validators.DecodeJSONRaw(r, &form); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := manager.Get(sessionID).Submit(r.Context(), form)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type confirmationPayload struct {
	OrderID      string            `json:"order_id,omitempty"`
	Items        []types.CartItem  `json:"items"`
	Totals       types.OrderTotals `json:"totals"`
	FromSnapshot bool              `json:"from_snapshot"`
}

// CheckoutConfirmation reads the session's order snapshot. The read consumes
// the snapshot; a repeat request falls back to the live cart so the page
// still renders.
func CheckoutConfirmation(snapshots bridge.Bridge, carts *cartsvc.Manager, cfg pricing.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session missing"))
			return
		}

		snap, ok, err := snapshots.ReadOnce(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read order snapshot"))
			return
		}
		if ok {
			responses.WriteSuccess(w, confirmationPayload{
				OrderID:      snap.OrderID,
				Items:        snap.Items,
				Totals:       snap.Totals,
				FromSnapshot: true,
			})
			return
		}

		store := carts.Get(sessionID)
		if err := store.WaitHydrated(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeHydration, err, "cart hydration interrupted"))
			return
		}
		items := store.Items()
		responses.WriteSuccess(w, confirmationPayload{
			Items:  items,
			Totals: pricing.ComputeTotals(items, cfg),
		})
	}
}

// CheckoutDismiss acknowledges a settled attempt and returns it to idle.
func CheckoutDismiss(manager *checkoutsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session missing"))
			return
		}

		orchestrator := manager.Get(sessionID)
		orchestrator.Dismiss()
		responses.WriteSuccess(w, map[string]string{"state": string(orchestrator.State())})
	}
}
