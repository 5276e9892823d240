package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/audiophile-commerce/storefront-backend/pkg/db/models"
	"github.com/audiophile-commerce/storefront-backend/pkg/enums"
	"github.com/audiophile-commerce/storefront-backend/pkg/types"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  customer_name TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  customer_phone TEXT NOT NULL,
  shipping_address TEXT,
  payment_method TEXT NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  shipping_cents INTEGER NOT NULL,
  tax_cents INTEGER NOT NULL,
  grand_total_cents INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'confirmed',
  created_at DATETIME,
  updated_at DATETIME
);`
	orderLineItems := `
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_slug TEXT,
  name TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderLineItems).Error)
	return db
}

func sampleOrder() *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		CustomerName:  "Alexei Ward",
		CustomerEmail: "alexei@mail.com",
		CustomerPhone: "+12025550136",
		ShippingAddress: types.Address{
			Address: "1137 Williams Avenue",
			City:    "New York",
			Zip:     "10001",
			Country: "United States",
		},
		PaymentMethod:   enums.PaymentMethodEMoney,
		SubtotalCents:   299900,
		ShippingCents:   5000,
		TaxCents:        59980,
		GrandTotalCents: 364880,
		Status:          enums.OrderStatusConfirmed,
	}
}

func TestRepositoryCreateAndFindOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := sampleOrder()
	_, err := repo.CreateOrder(ctx, order)
	require.NoError(t, err)

	items := []models.OrderLineItem{
		{
			ID:             uuid.New(),
			OrderID:        order.ID,
			ProductID:      "xx99-mk2",
			ProductSlug:    "xx99-mark-two-headphones",
			Name:           "XX99 Mark II",
			UnitPriceCents: 299900,
			Quantity:       1,
			LineTotalCents: 299900,
		},
	}
	require.NoError(t, repo.CreateOrderLineItems(ctx, items))

	found, err := repo.FindOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alexei Ward", found.CustomerName)
	assert.Equal(t, enums.OrderStatusConfirmed, found.Status)
	assert.Equal(t, "New York", found.ShippingAddress.City)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "XX99 Mark II", found.Items[0].Name)
	assert.Equal(t, int64(299900), found.Items[0].LineTotalCents)
}

func TestRepositoryFindOrderByIDMissing(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindOrderByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryCreateOrderLineItemsEmptyIsNoOp(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	require.NoError(t, repo.CreateOrderLineItems(context.Background(), nil))
}
