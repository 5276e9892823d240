package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/audiophile-commerce/storefront-backend/pkg/db/models"
)

// Repository is the persistence surface for confirmed orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderLineItems(ctx context.Context, items []models.OrderLineItem) error
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}
