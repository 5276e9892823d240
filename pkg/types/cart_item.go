package types

// CartItem is the unit of cart state. Price is a unit price in cents; the
// cart never stores derived line totals.
type CartItem struct {
	ID       string `json:"id"`
	Slug     string `json:"slug,omitempty"`
	Name     string `json:"name"`
	Price    Cents  `json:"price"`
	Quantity int    `json:"quantity"`
	Image    string `json:"image,omitempty"`
}

// Customer identifies the buyer on a checkout request.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// OrderTotals is the derived pricing breakdown. It is always recomputed from
// raw cart contents, never cached.
type OrderTotals struct {
	Subtotal   Cents `json:"subtotal"`
	Shipping   Cents `json:"shipping"`
	Tax        Cents `json:"tax"`
	GrandTotal Cents `json:"grand_total"`
}
