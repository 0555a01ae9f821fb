package webhooks

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	mpwebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/mercadopago"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mercadopago"
)

const maxWebhookBytes = 64 << 10

type notificationHandler interface {
	SignatureRequired() bool
	VerifySignature(in mercadopago.SignatureInput) error
	HandleNotification(ctx context.Context, n mpwebhook.Notification) (*mpwebhook.Result, error)
}

// MercadoPagoWebhook receives payment notifications. The gateway retries on
// any non-2xx, so validation failures answer 400 (no point retrying) while
// lookup and persistence failures answer 500.
func MercadoPagoWebhook(svc notificationHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}
		notification, err := mpwebhook.ParseNotification(body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// irrelevant actions are acknowledged without a signature check
		if svc.SignatureRequired() && notification.Action.IsPaymentEvent() {
			// the signed id is the query parameter when present
			dataID := strings.TrimSpace(r.URL.Query().Get("data.id"))
			if dataID == "" {
				dataID = notification.DataID
			}
			err := svc.VerifySignature(mercadopago.SignatureInput{
				Header:    r.Header.Get("x-signature"),
				RequestID: r.Header.Get("x-request-id"),
				DataID:    dataID,
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.HandleNotification(r.Context(), notification)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result.Ignored {
			responses.WriteJSON(w, http.StatusOK, map[string]string{"message": "ignored event type"})
			return
		}
		responses.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
