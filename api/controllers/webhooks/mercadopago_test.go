package webhooks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	mpwebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/mercadopago"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/mercadopago"
)

type stubHandler struct {
	requireSig bool
	sigErr     error
	sigInput   mercadopago.SignatureInput
	result     *mpwebhook.Result
	err        error
	handled    []mpwebhook.Notification
}

func (s *stubHandler) SignatureRequired() bool { return s.requireSig }

func (s *stubHandler) VerifySignature(in mercadopago.SignatureInput) error {
	s.sigInput = in
	return s.sigErr
}

func (s *stubHandler) HandleNotification(_ context.Context, n mpwebhook.Notification) (*mpwebhook.Result, error) {
	s.handled = append(s.handled, n)
	return s.result, s.err
}

func post(h http.Handler, url, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

const updatedEvent = `{"action":"payment.updated","data":{"id":"123"}}`

func TestWebhookSuccess(t *testing.T) {
	svc := &stubHandler{result: &mpwebhook.Result{Order: &orders.ApplyResult{}}}
	resp := post(MercadoPagoWebhook(svc, nil), "/api/v1/webhooks/mercadopago", updatedEvent, nil)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"success":true}`, resp.Body.String())
	require.Len(t, svc.handled, 1)
	assert.Equal(t, "123", svc.handled[0].DataID)
}

func TestWebhookNumericDataID(t *testing.T) {
	svc := &stubHandler{result: &mpwebhook.Result{}}
	resp := post(MercadoPagoWebhook(svc, nil), "/", `{"action":"payment.created","data":{"id":987654}}`, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "987654", svc.handled[0].DataID)
}

func TestWebhookIgnoredAction(t *testing.T) {
	svc := &stubHandler{result: &mpwebhook.Result{Ignored: true}}
	resp := post(MercadoPagoWebhook(svc, nil), "/", `{"action":"merchant_order.updated","data":{"id":"1"}}`, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"message":"ignored event type"}`, resp.Body.String())
}

func TestWebhookInvalidPayload(t *testing.T) {
	svc := &stubHandler{}
	for _, body := range []string{`{}`, `not json`, `{"action":"payment.updated","data":{}}`, `{"data":{"id":"1"}}`} {
		resp := post(MercadoPagoWebhook(svc, nil), "/", body, nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code, body)
		assert.Contains(t, resp.Body.String(), "invalid webhook payload", body)
	}
	assert.Empty(t, svc.handled)
}

func TestWebhookErrorCodes(t *testing.T) {
	cases := map[int]error{
		http.StatusBadRequest:          pkgerrors.New(pkgerrors.CodeValidation, "payment has no order reference"),
		http.StatusInternalServerError: pkgerrors.Wrap(pkgerrors.CodeInternal, errors.New("timeout"), "fetch payment"),
	}
	for want, err := range cases {
		resp := post(MercadoPagoWebhook(&stubHandler{err: err}, nil), "/", updatedEvent, nil)
		assert.Equal(t, want, resp.Code)
	}
}

func TestWebhookSignature(t *testing.T) {
	svc := &stubHandler{requireSig: true, sigErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")}
	headers := map[string]string{"x-signature": "ts=1,v1=abc", "x-request-id": "req-1"}
	resp := post(MercadoPagoWebhook(svc, nil), "/?data.id=QUERY-ID&type=payment", updatedEvent, headers)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Empty(t, svc.handled)
	assert.Equal(t, "QUERY-ID", svc.sigInput.DataID)
	assert.Equal(t, "req-1", svc.sigInput.RequestID)
	assert.Equal(t, "ts=1,v1=abc", svc.sigInput.Header)

	svc.sigErr = nil
	svc.result = &mpwebhook.Result{}
	resp = post(MercadoPagoWebhook(svc, nil), "/", updatedEvent, headers)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "123", svc.sigInput.DataID)
}

func TestWebhookIgnoredActionSkipsSignature(t *testing.T) {
	svc := &stubHandler{
		requireSig: true,
		sigErr:     pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"),
		result:     &mpwebhook.Result{Ignored: true},
	}
	resp := post(MercadoPagoWebhook(svc, nil), "/", `{"action":"merchant_order.updated","data":{"id":"1"}}`, nil)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"message":"ignored event type"}`, resp.Body.String())
	assert.Empty(t, svc.sigInput.Header)
	assert.Empty(t, svc.sigInput.DataID)
}
