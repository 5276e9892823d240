package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/audiophile-commerce/storefront-backend/api/middleware"
	"github.com/audiophile-commerce/storefront-backend/api/responses"
	"github.com/audiophile-commerce/storefront-backend/api/validators"
	cartsvc "github.com/audiophile-commerce/storefront-backend/internal/cart"
	"github.com/audiophile-commerce/storefront-backend/internal/pricing"
	pkgerrors "github.com/audiophile-commerce/storefront-backend/pkg/errors"
	"github.com/audiophile-commerce/storefront-backend/pkg/logger"
	"github.com/audiophile-commerce/storefront-backend/pkg/types"
)

type cartItemRequest struct {
	ID       string `json:"id" validate:"required,max=100"`
	Slug     string `json:"slug" validate:"omitempty,max=150"`
	Name     string `json:"name" validate:"required,max=150"`
	Price    int64  `json:"price_cents" validate:"min=0"`
	Image    string `json:"image" validate:"omitempty,max=300"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartPayload struct {
	Items          []types.CartItem  `json:"items"`
	Totals         types.OrderTotals `json:"totals"`
	TotalItemCount int               `json:"total_item_count"`
}

func buildCartPayload(store *cartsvc.Store, cfg pricing.Config) cartPayload {
	items := store.Items()
	return cartPayload{
		Items:          items,
		Totals:         pricing.ComputeTotals(items, cfg),
		TotalItemCount: store.TotalItemCount(),
	}
}

func sessionCart(r *http.Request, carts *cartsvc.Manager) (*cartsvc.Store, error) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session missing")
	}
	store := carts.Get(sessionID)
	if err := store.WaitHydrated(r.Context()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeHydration, err, "cart hydration interrupted")
	}
	return store, nil
}

// CartGet returns the session's cart with totals derived on read.
func CartGet(carts *cartsvc.Manager, cfg pricing.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionCart(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, buildCartPayload(store, cfg))
	}
}

// CartAddItem merges an item into the session's cart.
func CartAddItem(carts *cartsvc.Manager, cfg pricing.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionCart(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cartItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item := types.CartItem{
			ID:    req.ID,
			Slug:  validators.SanitizeString(req.Slug, 150),
			Name:  validators.SanitizeString(req.Name, 150),
			Price: types.Cents(req.Price),
			Image: validators.SanitizeString(req.Image, 300),
		}
		if err := store.AddItem(r.Context(), item, req.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, buildCartPayload(store, cfg))
	}
}

// CartSetQuantity overwrites an item's quantity; values below one remove it.
func CartSetQuantity(carts *cartsvc.Manager, cfg pricing.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionCart(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID := chi.URLParam(r, "itemId")
		if itemID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item id required"))
			return
		}

		var req cartQuantityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store.SetQuantity(r.Context(), itemID, req.Quantity)
		responses.WriteSuccess(w, buildCartPayload(store, cfg))
	}
}

// CartRemoveItem deletes an item; an absent id is a no-op.
func CartRemoveItem(carts *cartsvc.Manager, cfg pricing.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionCart(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID := chi.URLParam(r, "itemId")
		if itemID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item id required"))
			return
		}

		store.RemoveItem(r.Context(), itemID)
		responses.WriteSuccess(w, buildCartPayload(store, cfg))
	}
}

// CartClear empties the session's cart.
func CartClear(carts *cartsvc.Manager, cfg pricing.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionCart(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store.Clear(r.Context())
		responses.WriteSuccess(w, buildCartPayload(store, cfg))
	}
}
