package mercadopagowebhook

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mercadopago"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

// Outcome labels for storefront_webhook_events_total.
const (
	OutcomeApplied  = "applied"
	OutcomeSkipped  = "skipped"
	OutcomeIgnored  = "ignored"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

type paymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

type paymentApplier interface {
	ApplyPayment(ctx context.Context, orderID uuid.UUID, payment *mercadopago.Payment, source string) (*orders.ApplyResult, error)
}

type ServiceParams struct {
	Payments      paymentFetcher
	Orders        paymentApplier
	WebhookSecret string
	MaxAge        time.Duration
	Logger        *logger.Logger
	Metrics       *metrics.PaymentMetrics
	Now           func() time.Time
}

// Result is what the handler reports back to the gateway.
type Result struct {
	Ignored bool
	Order   *orders.ApplyResult
}

type Service struct {
	payments paymentFetcher
	orders   paymentApplier
	secret   string
	maxAge   time.Duration
	logg     *logger.Logger
	metrics  *metrics.PaymentMetrics
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment fetcher required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		payments: params.Payments,
		orders:   params.Orders,
		secret:   strings.TrimSpace(params.WebhookSecret),
		maxAge:   params.MaxAge,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

// SignatureRequired reports whether deliveries must carry a valid x-signature.
func (s *Service) SignatureRequired() bool {
	return s.secret != ""
}

// VerifySignature is a no-op when no secret is configured.
func (s *Service) VerifySignature(in mercadopago.SignatureInput) error {
	if !s.SignatureRequired() {
		return nil
	}
	if err := mercadopago.VerifySignature(s.secret, in, s.now(), s.maxAge); err != nil {
		s.metrics.IncWebhook("", OutcomeRejected)
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid webhook signature")
	}
	return nil
}

// HandleNotification fetches the payment the notification points at and
// applies it to the referenced order. Errors carry the code that decides the
// HTTP answer: validation problems are final, everything else makes the
// gateway redeliver.
func (s *Service) HandleNotification(ctx context.Context, n Notification) (*Result, error) {
	action := string(n.Action)
	if !n.Action.IsPaymentEvent() {
		s.metrics.IncWebhook(action, OutcomeIgnored)
		return &Result{Ignored: true}, nil
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"webhook_action": action, "payment_id": n.DataID})
	payment, err := s.payments.GetPayment(ctx, n.DataID)
	if err != nil {
		s.metrics.IncGatewayError(metrics.SourceWebhook)
		s.metrics.IncWebhook(action, OutcomeFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetch payment")
	}

	if !payment.HasExternalReference() {
		s.metrics.IncWebhook(action, OutcomeRejected)
		s.logg.Warn(ctx, "payment has no external reference")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment has no order reference")
	}
	orderID, err := uuid.Parse(strings.TrimSpace(payment.ExternalReference))
	if err != nil {
		s.metrics.IncWebhook(action, OutcomeRejected)
		s.logg.Warn(ctx, "payment external reference is not an order id")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment has no order reference")
	}

	ctx = s.logg.WithOrderID(ctx, orderID.String())
	applied, err := s.orders.ApplyPayment(ctx, orderID, payment, metrics.SourceWebhook)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.metrics.IncWebhook(action, OutcomeRejected)
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "order not found for payment")
		}
		s.metrics.IncWebhook(action, OutcomeFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order")
	}

	outcome := OutcomeApplied
	if applied.Skipped {
		outcome = OutcomeSkipped
	}
	s.metrics.IncWebhook(action, outcome)
	ctx = s.logg.WithFields(ctx, map[string]any{"from": applied.Previous, "to": applied.Status, "outcome": outcome})
	s.logg.Info(ctx, "payment notification processed")
	return &Result{Order: applied}, nil
}
