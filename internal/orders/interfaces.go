package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/mercadopago"
)

// Repository is the order store accessor.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	AttachPreference(ctx context.Context, id uuid.UUID, preferenceID string, status enums.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, update PaymentUpdate) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
	MarkReconciled(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, query ListQuery) ([]models.Order, error)
	ListReconcilable(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error)
	ListAbandoned(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error)
}

// PaymentFetcher reads payments from the gateway.
type PaymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
	FindPaymentByExternalReference(ctx context.Context, externalReference string) (*mercadopago.Payment, error)
}
