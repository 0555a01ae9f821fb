package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/checkout/helpers"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mercadopago"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

// PreferenceCreator opens a hosted checkout on the gateway.
type PreferenceCreator interface {
	CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
	Sandbox() bool
}

// Service executes checkout orchestration.
type Service interface {
	InitiateCheckout(ctx context.Context, input Input) (*Result, error)
}

// CartItem is one line of the browser-held cart.
type CartItem struct {
	ID       string          `json:"id" validate:"required"`
	Name     string          `json:"name" validate:"required"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity" validate:"gte=1"`
	Image    *string         `json:"image,omitempty"`
}

// Input carries the cart plus whatever identity the caller resolved.
type Input struct {
	Items         []CartItem
	CustomerEmail string
	UserID        *uuid.UUID
	SessionEmail  string
}

// Result tells the browser where to go next.
type Result struct {
	RedirectURL string    `json:"redirect_url"`
	OrderID     uuid.UUID `json:"order_id"`
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	Orders          orders.Repository
	Gateway         PreferenceCreator
	Config          config.CheckoutConfig
	NotificationURL string
	Logger          *logger.Logger
	Metrics         *metrics.PaymentMetrics
}

type service struct {
	orders          orders.Repository
	gateway         PreferenceCreator
	cfg             config.CheckoutConfig
	notificationURL string
	logg            *logger.Logger
	metrics         *metrics.PaymentMetrics
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:          params.Orders,
		gateway:         params.Gateway,
		cfg:             params.Config,
		notificationURL: strings.TrimSpace(params.NotificationURL),
		logg:            params.Logger,
		metrics:         params.Metrics,
	}, nil
}

// InitiateCheckout stores the order, opens a gateway preference for it and
// returns the hosted payment URL. The order row and the preference are not
// atomic: when the gateway fails the order is cancelled on a best effort
// basis and the abandoned-checkout job sweeps whatever that misses.
func (s *service) InitiateCheckout(ctx context.Context, input Input) (*Result, error) {
	lines := make([]helpers.CartLine, len(input.Items))
	for i, item := range input.Items {
		lines[i] = helpers.CartLine{ID: item.ID, Name: item.Name, Price: item.Price, Quantity: item.Quantity}
	}
	if err := helpers.ValidateCart(lines, s.cfg.MaxItems); err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:        input.UserID,
		CustomerEmail: helpers.NormalizeEmail(input.CustomerEmail, input.SessionEmail),
		Items:         snapshot(input.Items),
		TotalAmount:   helpers.Total(lines),
		Status:        enums.OrderStatusPending,
	}
	created, err := s.orders.Create(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	ctx = s.logg.WithOrderID(ctx, created.ID.String())
	pref, err := s.gateway.CreatePreference(ctx, s.preferenceFor(created))
	if err != nil {
		s.metrics.IncGatewayError(metrics.SourceCheckout)
		s.logg.Error(ctx, "create payment preference", err)
		s.compensate(ctx, created.ID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment preference")
	}

	if err := s.orders.AttachPreference(ctx, created.ID, pref.ID, enums.OrderStatusPending); err != nil {
		s.logg.Error(ctx, "attach preference to order", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach payment to order")
	}

	redirect := pref.InitPoint
	if (s.gateway.Sandbox() && pref.SandboxInitPoint != "") || redirect == "" {
		redirect = pref.SandboxInitPoint
	}
	s.logg.Info(ctx, "checkout initiated")
	return &Result{RedirectURL: redirect, OrderID: created.ID}, nil
}

func (s *service) preferenceFor(order *models.Order) mercadopago.PreferenceRequest {
	ref := order.ID.String()
	items := make([]mercadopago.PreferenceItem, 0, len(order.Items))
	for _, item := range order.Items {
		pi := mercadopago.PreferenceItem{
			ID:         item.ProductID,
			Title:      item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.Price,
			CurrencyID: s.cfg.Currency,
		}
		if item.Image != nil {
			pi.PictureURL = *item.Image
		}
		items = append(items, pi)
	}

	req := mercadopago.PreferenceRequest{
		Items:             items,
		ExternalReference: ref,
		BackURLs: mercadopago.BackURLs{
			Success: withOrderID(s.cfg.SuccessURL, ref),
			Failure: withOrderID(s.cfg.FailureURL, ref),
			Pending: withOrderID(s.cfg.PendingURL, ref),
		},
		NotificationURL: s.notificationURL,
		Installments:    s.cfg.Installments,
		IdempotencyKey:  ref,
	}
	if order.CustomerEmail != nil {
		req.PayerEmail = *order.CustomerEmail
	}
	return req
}

func (s *service) compensate(ctx context.Context, orderID uuid.UUID) {
	if err := s.orders.UpdateStatus(ctx, orderID, enums.OrderStatusCancelled); err != nil {
		s.logg.Error(ctx, "cancel order after gateway failure", err)
		return
	}
	s.metrics.IncStatusUpdate(metrics.SourceCheckout, string(enums.OrderStatusCancelled))
}

func snapshot(items []CartItem) []models.OrderItem {
	out := make([]models.OrderItem, len(items))
	for i, item := range items {
		out[i] = models.OrderItem{
			ProductID: item.ID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Image:     item.Image,
		}
	}
	return out
}

func withOrderID(raw, orderID string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("order_id", orderID)
	u.RawQuery = q.Encode()
	return u.String()
}
