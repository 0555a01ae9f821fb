package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mercadopago"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service reconciles orders against the payment gateway and serves reads.
type Service interface {
	GetPaymentStatus(ctx context.Context, orderID uuid.UUID) (*PaymentStatusResult, error)
	Reconcile(ctx context.Context, order *models.Order, source string) (*PaymentStatusResult, error)
	ApplyPayment(ctx context.Context, orderID uuid.UUID, payment *mercadopago.Payment, source string) (*ApplyResult, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
	Detail(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
	List(ctx context.Context, params ListParams) (*OrderList, error)
	CancelAbandoned(ctx context.Context, olderThan time.Time, limit int) (int, error)
}

// ServiceParams wires the orders service.
type ServiceParams struct {
	Repo     Repository
	Payments PaymentFetcher
	Policy   TransitionPolicy
	Logger   *logger.Logger
	Metrics  *metrics.PaymentMetrics
}

type service struct {
	repo     Repository
	payments PaymentFetcher
	policy   TransitionPolicy
	logg     *logger.Logger
	metrics  *metrics.PaymentMetrics
}

// NewService validates dependencies. A nil Policy means last-write-wins.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment fetcher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	policy := params.Policy
	if policy == nil {
		policy = LastWriteWins{}
	}
	return &service{
		repo:     params.Repo,
		payments: params.Payments,
		policy:   policy,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// GetPaymentStatus pulls the latest payment for the order and persists the
// mapped status when it changed. Gateway failures never reach the caller.
func (s *service) GetPaymentStatus(ctx context.Context, orderID uuid.UUID) (*PaymentStatusResult, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.Reconcile(ctx, order, metrics.SourcePoll)
}

func (s *service) Reconcile(ctx context.Context, order *models.Order, source string) (*PaymentStatusResult, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	stored := &PaymentStatusResult{OrderID: order.ID, Status: order.Status}
	if !order.HasPayment() {
		return stored, nil
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	if err := s.repo.MarkReconciled(ctx, order.ID); err != nil {
		s.logg.Error(ctx, "stamp reconcile attempt", err)
	}
	payment, err := s.fetch(ctx, order)
	if err != nil {
		s.metrics.IncGatewayError(source)
		s.logg.Error(ctx, "payment status fetch failed, returning stored status", err)
		return stored, nil
	}
	if payment == nil {
		return stored, nil
	}

	mapped := MapPaymentStatus(string(payment.Status))
	if mapped == order.Status {
		return stored, nil
	}
	if !s.policy.Allow(order.Status, mapped) {
		ctx = s.logg.WithFields(ctx, map[string]any{"from": order.Status, "to": mapped, "source": source})
		s.logg.Warn(ctx, "order status transition rejected")
		return stored, nil
	}

	update := PaymentUpdate{Status: mapped, PaymentID: payment.ID.String(), Details: payment.Raw}
	if err := s.repo.UpdatePaymentStatus(ctx, order.ID, update); err != nil {
		s.logg.Error(ctx, "persist polled payment status", err)
		return stored, nil
	}
	s.metrics.IncStatusUpdate(source, string(mapped))

	ctx = s.logg.WithFields(ctx, map[string]any{"from": order.Status, "to": mapped, "source": source})
	s.logg.Info(ctx, "order status reconciled")
	order.Status = mapped
	return &PaymentStatusResult{OrderID: order.ID, Status: mapped, Updated: true}, nil
}

// ApplyPayment writes a pushed payment onto the order it references. The
// write happens even when the status is unchanged so redeliveries refresh
// updated_at and payment_details.
func (s *service) ApplyPayment(ctx context.Context, orderID uuid.UUID, payment *mercadopago.Payment, source string) (*ApplyResult, error) {
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment required")
	}
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	mapped := MapPaymentStatus(string(payment.Status))
	result := &ApplyResult{OrderID: order.ID, Previous: order.Status, Status: mapped}
	if !s.policy.Allow(order.Status, mapped) {
		ctx = s.logg.WithFields(ctx, map[string]any{"from": order.Status, "to": mapped, "source": source})
		s.logg.Warn(ctx, "order status transition rejected")
		result.Status = order.Status
		result.Skipped = true
		return result, nil
	}

	update := PaymentUpdate{Status: mapped, PaymentID: payment.ID.String(), Details: payment.Raw}
	if err := s.repo.UpdatePaymentStatus(ctx, order.ID, update); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order payment status")
	}
	if mapped != order.Status {
		s.metrics.IncStatusUpdate(source, string(mapped))
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toDetail(order), nil
}

// Detail reconciles the order first so the admin sees the gateway's view.
func (s *service) Detail(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	result, err := s.Reconcile(ctx, order, metrics.SourcePoll)
	if err != nil {
		return nil, err
	}
	if result.Updated {
		if order, err = s.load(ctx, orderID); err != nil {
			return nil, err
		}
	}
	return toDetail(order), nil
}

func (s *service) List(ctx context.Context, params ListParams) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	rows, err := s.repo.List(ctx, ListQuery{Limit: params.Limit, Cursor: cursor, Status: params.Status})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	page, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})

	out := &OrderList{Orders: make([]OrderSummary, 0, len(page)), NextCursor: next}
	for _, order := range page {
		out.Orders = append(out.Orders, toSummary(order))
	}
	return out, nil
}

// CancelAbandoned cancels pending orders that never got a preference.
// It returns how many were cancelled before the first failure.
func (s *service) CancelAbandoned(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	rows, err := s.repo.ListAbandoned(ctx, olderThan, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list abandoned orders")
	}
	cancelled := 0
	for _, order := range rows {
		if err := s.repo.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled); err != nil {
			return cancelled, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel abandoned order")
		}
		cancelled++
		s.metrics.IncStatusUpdate(metrics.SourceReconcile, string(enums.OrderStatusCancelled))
	}
	return cancelled, nil
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

// fetch reads the payment behind the order. Until a notification swaps in
// the real payment id the stored id is the preference, which the payments
// endpoint does not know, so the order id is searched instead.
func (s *service) fetch(ctx context.Context, order *models.Order) (*mercadopago.Payment, error) {
	if order.AwaitingPayment() {
		return s.payments.FindPaymentByExternalReference(ctx, order.ID.String())
	}
	return s.payments.GetPayment(ctx, *order.PaymentID)
}
