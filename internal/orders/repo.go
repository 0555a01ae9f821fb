package orders

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Statuses the reconcile job keeps polling. Settled orders only move again
// through a webhook. Each order is polled at most once per staleness window,
// least recently attempted first.
var reconcilableStatuses = []enums.OrderStatus{
	enums.OrderStatusPending,
	enums.OrderStatusProcessing,
	enums.OrderStatusDisputed,
}

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db, now: time.Now}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, now: r.now}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Status == "" {
		order.Status = enums.OrderStatusPending
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// AttachPreference stores the hosted-checkout preference id as both the
// preference and the current payment identifier.
func (r *repository) AttachPreference(ctx context.Context, id uuid.UUID, preferenceID string, status enums.OrderStatus) error {
	return r.update(ctx, id, map[string]any{
		"payment_id":    preferenceID,
		"preference_id": preferenceID,
		"status":        status,
	})
}

// UpdatePaymentStatus records a reconciled gateway payment. An empty
// PaymentID leaves the stored identifier untouched.
func (r *repository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, update PaymentUpdate) error {
	values := map[string]any{
		"status":          update.Status,
		"payment_details": detailsValue(update.Details),
	}
	if paymentID := strings.TrimSpace(update.PaymentID); paymentID != "" {
		values["payment_id"] = paymentID
	}
	return r.update(ctx, id, values)
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	return r.update(ctx, id, map[string]any{"status": status})
}

// MarkReconciled records a poll attempt without touching updated_at, so the
// reconcile queue rotates even when the gateway has nothing new.
func (r *repository) MarkReconciled(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumn("last_reconciled_at", r.now().UTC())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	if query.Cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", query.Cursor.CreatedAt, query.Cursor.ID)
	}

	var rows []models.Order
	if err := q.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(query.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListReconcilable(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status IN ?", reconcilableStatuses).
		Where("payment_id IS NOT NULL AND payment_id <> ''").
		Where("updated_at < ?", olderThan).
		Where("(last_reconciled_at IS NULL OR last_reconciled_at < ?)", olderThan).
		Order("COALESCE(last_reconciled_at, updated_at) ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListAbandoned(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusPending).
		Where("payment_id IS NULL").
		Where("created_at < ?", olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) update(ctx context.Context, id uuid.UUID, values map[string]any) error {
	values["updated_at"] = r.now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumns(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// detailsValue hands the payload to the driver as text so postgres can
// coerce it into jsonb and sqlite keeps it readable.
func detailsValue(details json.RawMessage) any {
	if len(details) == 0 {
		return nil
	}
	return string(details)
}
