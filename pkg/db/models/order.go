package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/audiophile-commerce/storefront-backend/pkg/enums"
	"github.com/audiophile-commerce/storefront-backend/pkg/types"
)

// Order is the durable record written when a checkout attempt succeeds.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerName    string            `gorm:"column:customer_name;not null"`
	CustomerEmail   string            `gorm:"column:customer_email;not null"`
	CustomerPhone   string            `gorm:"column:customer_phone;not null"`
	ShippingAddress types.Address     `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	SubtotalCents   int64             `gorm:"column:subtotal_cents;not null"`
	ShippingCents   int64             `gorm:"column:shipping_cents;not null"`
	TaxCents        int64             `gorm:"column:tax_cents;not null"`
	GrandTotalCents int64             `gorm:"column:grand_total_cents;not null"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'confirmed'"`
	Items           []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
