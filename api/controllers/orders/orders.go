package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// CheckoutOutcome is the page the gateway sent the buyer back to.
type CheckoutOutcome string

const (
	OutcomeSuccess CheckoutOutcome = "success"
	OutcomeFailure CheckoutOutcome = "failure"
	OutcomePending CheckoutOutcome = "pending"
)

type checkoutResultResponse struct {
	Outcome CheckoutOutcome                     `json:"outcome"`
	Order   *internalorders.OrderDetail         `json:"order"`
	Payment *internalorders.PaymentStatusResult `json:"payment,omitempty"`
}

// PaymentStatus polls the gateway for the order and returns the reconciled
// status.
func PaymentStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.GetPaymentStatus(withOrder(r, logg, orderID), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CheckoutResult backs the success/failure/pending return pages. Only the
// success page polls the gateway; the other two report what is stored.
func CheckoutResult(outcome CheckoutOutcome, svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUID(r.URL.Query().Get("order_id"), "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := withOrder(r, logg, orderID)

		resp := checkoutResultResponse{Outcome: outcome}
		if outcome == OutcomeSuccess {
			payment, err := svc.GetPaymentStatus(ctx, orderID)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			resp.Payment = payment
		}
		detail, err := svc.Get(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		resp.Order = detail
		responses.WriteSuccess(w, resp)
	}
}

// AdminList pages through every order, newest first: ?limit=&cursor=&status=.
func AdminList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := internalorders.ListParams{
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
					WithDetails(map[string]any{"field": "status", "allowed": enums.OrderStatuses()}))
				return
			}
			params.Status = &status
		}

		list, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminDetail reconciles the order against the gateway before answering.
func AdminDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Detail(withOrder(r, logg, orderID), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func withOrder(r *http.Request, logg *logger.Logger, orderID uuid.UUID) context.Context {
	if logg == nil {
		return r.Context()
	}
	return logg.WithOrderID(r.Context(), orderID.String())
}
