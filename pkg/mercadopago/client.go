package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	preferencesPath = "/checkout/preferences"
	paymentPath     = "/v1/payments/{id}"
	searchPath      = "/v1/payments/search"

	idempotencyHeader = "X-Idempotency-Key"
)

var (
	errAccessTokenRequired = errors.New("mercadopago access token is required")
	errLoggerRequired      = errors.New("mercadopago logger is required")
)

// Client talks to the Mercado Pago REST API with a server-held access token.
// Build one per process and share it.
type Client struct {
	http    *resty.Client
	sandbox bool
	logger  *logger.Logger
}

// New validates credentials and configures the HTTP client.
func New(cfg config.MercadoPagoConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("mercadopago base url is required")
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetRetryCount(max(cfg.MaxRetries, 0)).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(retryable)
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}

	return &Client{http: httpClient, sandbox: cfg.Sandbox, logger: logg}, nil
}

// Sandbox reports whether redirect URLs should point at the sandbox checkout.
func (c *Client) Sandbox() bool {
	return c != nil && c.sandbox
}

// CreatePreference registers a hosted checkout and returns its redirect URLs.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preference requires at least one item")
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}

	c.log(ctx, "request", "create_preference", map[string]any{
		"external_reference": req.ExternalReference,
		"items":              len(req.Items),
		"payer_email":        req.PayerEmail,
	})

	var out Preference
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(idempotencyHeader, key).
		SetBody(req.body()).
		SetResult(&out).
		SetError(&apiErr).
		Post(preferencesPath)
	if err != nil {
		c.log(ctx, "error", "create_preference", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mercadopago create preference failed")
	}
	if resp.IsError() {
		return nil, c.mapError(ctx, "create_preference", resp.StatusCode(), apiErr)
	}
	if out.ID == "" || (out.InitPoint == "" && out.SandboxInitPoint == "") {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercadopago returned an incomplete preference")
	}

	c.log(ctx, "response", "create_preference", map[string]any{
		"preference_id":      out.ID,
		"external_reference": req.ExternalReference,
	})
	return &out, nil
}

// GetPayment fetches the payment resource by id. The full body is kept on
// Payment.Raw so callers can store it verbatim.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}

	c.log(ctx, "request", "get_payment", map[string]any{"payment_id": paymentID})

	var out Payment
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", paymentID).
		SetResult(&out).
		SetError(&apiErr).
		Get(paymentPath)
	if err != nil {
		c.log(ctx, "error", "get_payment", map[string]any{"payment_id": paymentID, "error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mercadopago get payment failed")
	}
	if resp.IsError() {
		return nil, c.mapError(ctx, "get_payment", resp.StatusCode(), apiErr)
	}

	out.Raw = append([]byte(nil), resp.Body()...)
	c.log(ctx, "response", "get_payment", map[string]any{
		"payment_id":         paymentID,
		"status":             string(out.Status),
		"status_detail":      out.StatusDetail,
		"external_reference": out.ExternalReference,
	})
	return &out, nil
}

// FindPaymentByExternalReference returns the most recently created payment
// tagged with externalReference, or nil when the gateway has none yet.
func (c *Client) FindPaymentByExternalReference(ctx context.Context, externalReference string) (*Payment, error) {
	externalReference = strings.TrimSpace(externalReference)
	if externalReference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external reference is required")
	}

	c.log(ctx, "request", "search_payments", map[string]any{"external_reference": externalReference})

	var out searchResult
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"external_reference": externalReference,
			"sort":               "date_created",
			"criteria":           "desc",
			"limit":              "1",
		}).
		SetResult(&out).
		SetError(&apiErr).
		Get(searchPath)
	if err != nil {
		c.log(ctx, "error", "search_payments", map[string]any{"external_reference": externalReference, "error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mercadopago search payments failed")
	}
	if resp.IsError() {
		return nil, c.mapError(ctx, "search_payments", resp.StatusCode(), apiErr)
	}
	if len(out.Results) == 0 {
		c.log(ctx, "response", "search_payments", map[string]any{"external_reference": externalReference, "results": 0})
		return nil, nil
	}

	var payment Payment
	if err := json.Unmarshal(out.Results[0], &payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode mercadopago payment")
	}
	payment.Raw = append([]byte(nil), out.Results[0]...)
	c.log(ctx, "response", "search_payments", map[string]any{
		"external_reference": externalReference,
		"payment_id":         payment.ID.String(),
		"status":             string(payment.Status),
	})
	return &payment, nil
}

func retryable(resp *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	if resp == nil {
		return false
	}
	status := resp.StatusCode()
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func (c *Client) mapError(ctx context.Context, op string, status int, body apiError) error {
	msg := strings.TrimSpace(body.Message)
	if msg == "" {
		msg = http.StatusText(status)
	}
	c.log(ctx, "error", op, map[string]any{
		"status_code": status,
		"error":       msg,
		"error_code":  body.Error,
	})
	return pkgerrors.Wrap(codeForStatus(status), fmt.Errorf("status %d: %s", status, msg), fmt.Sprintf("mercadopago %s failed", strings.ReplaceAll(op, "_", " ")))
}

func codeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return pkgerrors.CodeUnauthorized
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case status >= 400 && status < 500:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{"operation": op, "phase": phase}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	if phase == "error" {
		c.logger.Error(ctx, "mercadopago "+op, fmt.Errorf("%v", fields["error"]))
		return
	}
	c.logger.Info(ctx, "mercadopago "+phase)
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "secret", "email", "card"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
