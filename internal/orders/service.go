package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/audiophile-commerce/storefront-backend/pkg/db/models"
	"github.com/audiophile-commerce/storefront-backend/pkg/enums"
	pkgerrors "github.com/audiophile-commerce/storefront-backend/pkg/errors"
	"github.com/audiophile-commerce/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateOrderInput is the validated, frozen order payload handed over at the
// end of a checkout.
type CreateOrderInput struct {
	Customer        types.Customer
	ShippingAddress types.Address
	PaymentMethod   enums.PaymentMethod
	Items           []types.CartItem
	Totals          types.OrderTotals
}

// Result identifies the persisted order.
type Result struct {
	OrderID   uuid.UUID
	Status    enums.OrderStatus
	CreatedAt time.Time
}

// Store persists confirmed orders. It is the durable side of checkout.
type Store interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (Result, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type store struct {
	repo Repository
	tx   txRunner
}

// NewStore builds the orders store with the required dependencies.
func NewStore(repo Repository, tx txRunner) (Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &store{repo: repo, tx: tx}, nil
}

func (s *store) CreateOrder(ctx context.Context, input CreateOrderInput) (Result, error) {
	if len(input.Items) == 0 {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line item")
	}
	if !input.PaymentMethod.IsValid() {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	order := &models.Order{
		ID:              uuid.New(),
		CustomerName:    input.Customer.Name,
		CustomerEmail:   input.Customer.Email,
		CustomerPhone:   input.Customer.Phone,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		SubtotalCents:   int64(input.Totals.Subtotal),
		ShippingCents:   int64(input.Totals.Shipping),
		TaxCents:        int64(input.Totals.Tax),
		GrandTotalCents: int64(input.Totals.GrandTotal),
		Status:          enums.OrderStatusConfirmed,
	}

	items := make([]models.OrderLineItem, 0, len(input.Items))
	for _, line := range input.Items {
		items = append(items, models.OrderLineItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			ProductID:      line.ID,
			ProductSlug:    line.Slug,
			Name:           line.Name,
			UnitPriceCents: int64(line.Price),
			Quantity:       line.Quantity,
			LineTotalCents: int64(line.Price) * int64(line.Quantity),
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := repo.CreateOrderLineItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order line items")
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return Result{OrderID: order.ID, Status: order.Status, CreatedAt: order.CreatedAt}, nil
}

func (s *store) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrderByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
