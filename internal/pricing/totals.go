package pricing

import (
	"github.com/audiophile-commerce/storefront-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// Config carries the two pricing constants applied to every order.
type Config struct {
	TaxRate     decimal.Decimal
	ShippingFee types.Cents
}

// DefaultConfig mirrors the storefront constants: flat 50.00 shipping and
// 20% VAT on the product subtotal.
func DefaultConfig() Config {
	return Config{
		TaxRate:     decimal.New(20, -2),
		ShippingFee: 5000,
	}
}

// ComputeTotals derives the full pricing breakdown from raw cart contents.
// It is pure: no state, no caching. Tax is computed on the exact subtotal
// and rounded to a cent exactly once, so repeated calls never accumulate
// rounding error.
func ComputeTotals(items []types.CartItem, cfg Config) types.OrderTotals {
	var subtotal types.Cents
	for _, item := range items {
		if item.Quantity < 1 || item.Price < 0 {
			continue
		}
		subtotal += item.Price * types.Cents(item.Quantity)
	}

	tax := types.CentsFromDecimal(subtotal.Decimal().Mul(cfg.TaxRate))

	return types.OrderTotals{
		Subtotal:   subtotal,
		Shipping:   cfg.ShippingFee,
		Tax:        tax,
		GrandTotal: subtotal + cfg.ShippingFee + tax,
	}
}
