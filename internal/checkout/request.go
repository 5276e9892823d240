package checkout

import (
	"github.com/audiophile-commerce/storefront-backend/internal/orders"
	"github.com/audiophile-commerce/storefront-backend/internal/pricing"
	"github.com/audiophile-commerce/storefront-backend/pkg/enums"
	"github.com/audiophile-commerce/storefront-backend/pkg/types"
)

// Request is the point-in-time order payload built when a submission enters
// the Submitting phase. Cart mutations made while the order call is in
// flight are not reflected here; they remain visible to the cart for a
// retry if this attempt fails.
type Request struct {
	customer      types.Customer
	shipping      types.Address
	paymentMethod enums.PaymentMethod
	items         []types.CartItem
	totals        types.OrderTotals
}

// buildRequest freezes the form and the current cart contents into an
// immutable request. Totals are derived from the raw items at this instant.
func buildRequest(form Form, items []types.CartItem, cfg pricing.Config) Request {
	frozen := make([]types.CartItem, len(items))
	copy(frozen, items)
	return Request{
		customer: types.Customer{
			Name:  form.Name,
			Email: form.Email,
			Phone: form.Phone,
		},
		shipping: types.Address{
			Address: form.Address,
			City:    form.City,
			Zip:     form.Zip,
			Country: form.Country,
		},
		paymentMethod: form.Method(),
		items:         frozen,
		totals:        pricing.ComputeTotals(frozen, cfg),
	}
}

// Items returns a copy of the frozen line items.
func (r Request) Items() []types.CartItem {
	out := make([]types.CartItem, len(r.items))
	copy(out, r.items)
	return out
}

// Totals returns the totals derived when the request was built.
func (r Request) Totals() types.OrderTotals {
	return r.totals
}

// Customer returns the customer contact details.
func (r Request) Customer() types.Customer {
	return r.customer
}

func (r Request) orderInput() orders.CreateOrderInput {
	return orders.CreateOrderInput{
		Customer:        r.customer,
		ShippingAddress: r.shipping,
		PaymentMethod:   r.paymentMethod,
		Items:           r.Items(),
		Totals:          r.totals,
	}
}
