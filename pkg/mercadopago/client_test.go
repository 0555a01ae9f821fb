package mercadopago

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler, retries int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(config.MercadoPagoConfig{
		AccessToken: "TEST-token",
		BaseURL:     srv.URL,
		Timeout:     2 * time.Second,
		MaxRetries:  retries,
	}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestNewValidatesConfig(t *testing.T) {
	logg := logger.New(logger.Options{Output: io.Discard})
	_, err := New(config.MercadoPagoConfig{BaseURL: "http://x"}, logg)
	assert.ErrorIs(t, err, errAccessTokenRequired)

	_, err = New(config.MercadoPagoConfig{AccessToken: "t", BaseURL: "http://x"}, nil)
	assert.ErrorIs(t, err, errLoggerRequired)
}

func TestCreatePreference(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer TEST-token", r.Header.Get("Authorization"))
		assert.Equal(t, "idem-1", r.Header.Get("X-Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":                 "pref-123",
			"init_point":         "https://mp.example/checkout?pref=pref-123",
			"sandbox_init_point": "https://sandbox.mp.example/checkout?pref=pref-123",
		})
	}), 0)

	pref, err := client.CreatePreference(context.Background(), PreferenceRequest{
		Items: []PreferenceItem{
			{ID: "a", Title: "Mate", Quantity: 2, UnitPrice: decimal.NewFromInt(100), CurrencyID: "ARS"},
			{ID: "b", Title: "Yerba", Quantity: 1, UnitPrice: decimal.RequireFromString("50.5"), CurrencyID: "ARS", PictureURL: "https://img/b.png"},
		},
		ExternalReference: "order-1",
		BackURLs:          BackURLs{Success: "https://shop/success", Failure: "https://shop/failure", Pending: "https://shop/pending"},
		PayerEmail:        "buyer@example.com",
		Installments:      1,
		IdempotencyKey:    "idem-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pref-123", pref.ID)
	assert.Equal(t, "https://mp.example/checkout?pref=pref-123", pref.InitPoint)

	assert.Equal(t, "order-1", captured["external_reference"])
	assert.Equal(t, "approved", captured["auto_return"])
	items := captured["items"].([]any)
	require.Len(t, items, 2)
	second := items[1].(map[string]any)
	assert.Equal(t, 50.5, second["unit_price"])
	assert.Equal(t, "https://img/b.png", second["picture_url"])
	assert.Equal(t, map[string]any{"installments": float64(1)}, captured["payment_methods"])
	assert.Equal(t, map[string]any{"email": "buyer@example.com"}, captured["payer"])
}

func TestCreatePreferenceRejectsEmptyItems(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}), 0)

	_, err := client.CreatePreference(context.Background(), PreferenceRequest{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestGetPayment(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/987654", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":987654,"status":"approved","status_detail":"accredited","external_reference":"order-1","transaction_amount":250.5,"currency_id":"ARS","date_last_updated":"2024-05-01T10:00:00.000-03:00","payer":{"id":"42"}}`)
	}), 0)

	payment, err := client.GetPayment(context.Background(), "987654")
	require.NoError(t, err)
	assert.Equal(t, "987654", payment.ID.String())
	assert.Equal(t, enums.PaymentStatusApproved, payment.Status)
	assert.Equal(t, "order-1", payment.ExternalReference)
	assert.True(t, payment.TransactionAmount.Equal(decimal.RequireFromString("250.5")))
	require.NotNil(t, payment.DateLastUpdated)
	assert.Contains(t, string(payment.Raw), `"payer":{"id":"42"}`)
	assert.True(t, payment.HasExternalReference())
}

func TestGetPaymentErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   pkgerrors.Code
	}{
		{status: http.StatusNotFound, want: pkgerrors.CodeNotFound},
		{status: http.StatusUnauthorized, want: pkgerrors.CodeUnauthorized},
		{status: http.StatusBadRequest, want: pkgerrors.CodeValidation},
		{status: http.StatusTooManyRequests, want: pkgerrors.CodeRateLimit},
		{status: http.StatusInternalServerError, want: pkgerrors.CodeDependency},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]any{"message": "nope", "error": "bad", "status": tt.status})
			}), 0)
			_, err := client.GetPayment(context.Background(), "1")
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, tt.want), "got %v", err)
		})
	}
}

func TestGetPaymentRetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"message": "busy"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "status": "pending", "external_reference": "o"})
	}), 2)

	payment, err := client.GetPayment(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, payment.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetPaymentTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client, err := New(config.MercadoPagoConfig{AccessToken: "t", BaseURL: srv.URL}, logger.New(logger.Options{Output: io.Discard}))
	require.NoError(t, err)

	_, err = client.GetPayment(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "[REDACTED]", redact("payer_email", "a@b.c"))
	assert.Equal(t, "order-1", redact("external_reference", "order-1"))
}

func TestFindPaymentByExternalReference(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/search", r.URL.Path)
		assert.Equal(t, "order-9", r.URL.Query().Get("external_reference"))
		assert.Equal(t, "desc", r.URL.Query().Get("criteria"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"paging":{"total":2},"results":[{"id":22,"status":"rejected","external_reference":"order-9"},{"id":21,"status":"approved"}]}`)
	}), 0)

	payment, err := client.FindPaymentByExternalReference(context.Background(), "order-9")
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, "22", payment.ID.String())
	assert.Equal(t, enums.PaymentStatusRejected, payment.Status)
	assert.JSONEq(t, `{"id":22,"status":"rejected","external_reference":"order-9"}`, string(payment.Raw))
}

func TestFindPaymentByExternalReferenceEmpty(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"results": []any{}})
	}), 0)

	payment, err := client.FindPaymentByExternalReference(context.Background(), "order-9")
	require.NoError(t, err)
	assert.Nil(t, payment)

	_, err = client.FindPaymentByExternalReference(context.Background(), " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
