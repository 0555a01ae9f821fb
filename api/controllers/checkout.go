package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type checkoutRequest struct {
	Items         []checkoutsvc.CartItem `json:"items" validate:"required,min=1,dive"`
	CustomerEmail string                 `json:"customer_email,omitempty" validate:"omitempty,email"`
}

// Checkout creates the order and answers with the hosted payment URL. It
// runs behind OptionalAuth, so a signed-in caller's id and email are
// attached to the order and guests go through anonymously.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkoutsvc.Input{
			Items:         payload.Items,
			CustomerEmail: payload.CustomerEmail,
		}
		if principal, ok := middleware.PrincipalFromContext(r.Context()); ok {
			userID := principal.UserID
			input.UserID = &userID
			input.SessionEmail = principal.Email
		}

		result, err := svc.InitiateCheckout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
