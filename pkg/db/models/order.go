package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderItem is the line-item snapshot taken from the cart at checkout.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     *string         `json:"image,omitempty"`
}

// Subtotal returns price × quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is a storefront purchase reconciled against the payment gateway.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	CustomerEmail    *string           `gorm:"column:customer_email"`
	Items            []OrderItem       `gorm:"column:items;type:jsonb;serializer:json;not null"`
	TotalAmount      decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status           enums.OrderStatus `gorm:"column:status;type:order_status;not null"`
	PaymentID        *string           `gorm:"column:payment_id"`
	PreferenceID     *string           `gorm:"column:preference_id"`
	PaymentDetails   json.RawMessage   `gorm:"column:payment_details;type:jsonb;serializer:json"`
	LastReconciledAt *time.Time        `gorm:"column:last_reconciled_at"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

// HasPayment reports whether a gateway identifier has been attached.
func (o *Order) HasPayment() bool {
	return o != nil && o.PaymentID != nil && *o.PaymentID != ""
}

// AwaitingPayment reports whether the stored identifier is still the
// checkout preference, meaning no payment notification has been seen yet.
func (o *Order) AwaitingPayment() bool {
	if !o.HasPayment() {
		return false
	}
	return o.PreferenceID != nil && *o.PreferenceID == *o.PaymentID
}
