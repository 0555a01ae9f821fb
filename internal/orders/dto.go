package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ListQuery is the repository input for a page of orders.
type ListQuery struct {
	Limit  int
	Cursor *pagination.Cursor
	Status *enums.OrderStatus
}

// ListParams are the admin list inputs as received from the API.
type ListParams struct {
	pagination.Params
	Status *enums.OrderStatus
}

// PaymentUpdate is a reconciled gateway payment ready to persist.
type PaymentUpdate struct {
	Status    enums.OrderStatus
	PaymentID string
	Details   json.RawMessage
}

// PaymentStatusResult is what the status poller reports back.
type PaymentStatusResult struct {
	OrderID uuid.UUID         `json:"order_id"`
	Status  enums.OrderStatus `json:"status"`
	Updated bool              `json:"updated"`
}

// ApplyResult describes the outcome of applying a pushed payment.
type ApplyResult struct {
	OrderID  uuid.UUID         `json:"order_id"`
	Previous enums.OrderStatus `json:"previous_status"`
	Status   enums.OrderStatus `json:"status"`
	Skipped  bool              `json:"skipped"`
}

// OrderSummary is one row of the admin order list.
type OrderSummary struct {
	ID            uuid.UUID         `json:"id"`
	CustomerEmail *string           `json:"customer_email,omitempty"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	TotalItems    int               `json:"total_items"`
	Status        enums.OrderStatus `json:"status"`
	PaymentID     *string           `json:"payment_id,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderDetail is the full order view, including the stored gateway payload.
type OrderDetail struct {
	ID             uuid.UUID          `json:"id"`
	UserID         *uuid.UUID         `json:"user_id,omitempty"`
	CustomerEmail  *string            `json:"customer_email,omitempty"`
	Items          []models.OrderItem `json:"items"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	Status         enums.OrderStatus  `json:"status"`
	PaymentID      *string            `json:"payment_id,omitempty"`
	PreferenceID   *string            `json:"preference_id,omitempty"`
	PaymentDetails json.RawMessage    `json:"payment_details,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func toSummary(order models.Order) OrderSummary {
	items := 0
	for _, item := range order.Items {
		items += item.Quantity
	}
	return OrderSummary{
		ID:            order.ID,
		CustomerEmail: order.CustomerEmail,
		TotalAmount:   order.TotalAmount,
		TotalItems:    items,
		Status:        order.Status,
		PaymentID:     order.PaymentID,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

func toDetail(order *models.Order) *OrderDetail {
	items := order.Items
	if items == nil {
		items = []models.OrderItem{}
	}
	return &OrderDetail{
		ID:             order.ID,
		UserID:         order.UserID,
		CustomerEmail:  order.CustomerEmail,
		Items:          items,
		TotalAmount:    order.TotalAmount,
		Status:         order.Status,
		PaymentID:      order.PaymentID,
		PreferenceID:   order.PreferenceID,
		PaymentDetails: order.PaymentDetails,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}
