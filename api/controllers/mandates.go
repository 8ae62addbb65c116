package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/ghostcart-backend/api/middleware"
	"github.com/angelmondragon/ghostcart-backend/api/responses"
	"github.com/angelmondragon/ghostcart-backend/api/validators"
	"github.com/angelmondragon/ghostcart-backend/internal/mandate"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
	"github.com/angelmondragon/ghostcart-backend/pkg/logger"
)

type createIntentConstraints struct {
	MaxPriceCents   int64  `json:"max_price_cents" validate:"gt=0"`
	MaxDeliveryDays int    `json:"max_delivery_days" validate:"min=0"`
	Currency        string `json:"currency"`
}

type createIntentRequest struct {
	Scenario      string                   `json:"scenario" validate:"required,oneof=delegated immediate"`
	ProductQuery  string                   `json:"product_query" validate:"required"`
	MaxTotalCents int64                    `json:"max_total_cents" validate:"gt=0"`
	Constraints   *createIntentConstraints `json:"constraints"`
	ExpiresAt     *time.Time               `json:"expires_at"`
}

// CreateIntent creates an unsigned intent mandate for the authenticated user.
func CreateIntent(svc *mandate.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload createIntentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scenario, err := enums.ParseScenario(payload.Scenario)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid scenario"))
			return
		}

		input := mandate.CreateIntentInput{
			UserID:        userID,
			Scenario:      scenario,
			ProductQuery:  payload.ProductQuery,
			MaxTotalCents: payload.MaxTotalCents,
			ExpiresAt:     payload.ExpiresAt,
		}
		if payload.Constraints != nil {
			currency := enums.CurrencyUSD
			if payload.Constraints.Currency != "" {
				currency, err = enums.ParseCurrency(payload.Constraints.Currency)
				if err != nil {
					responses.WriteError(r.Context(), logg, w,
						pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
					return
				}
			}
			input.Constraints = &mandate.Constraints{
				MaxPriceCents:   payload.Constraints.MaxPriceCents,
				MaxDeliveryDays: payload.Constraints.MaxDeliveryDays,
				Currency:        currency,
			}
		}

		intent, err := svc.CreateIntent(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, intent)
	}
}

// SignIntent applies the user's signature to an unsigned intent.
func SignIntent(svc *mandate.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		intent, err := svc.SignIntent(r.Context(), chi.URLParam(r, "mandateID"), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intent)
	}
}

// GetMandate returns one stored mandate, enforcing ownership.
func GetMandate(svc *mandate.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		rec, err := svc.Get(r.Context(), chi.URLParam(r, "mandateID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if rec.UserID != userID {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeForbidden, "mandate belongs to a different user"))
			return
		}
		responses.WriteSuccess(w, rec)
	}
}

// ListMandates returns the user's mandates, optionally filtered by type.
func ListMandates(svc *mandate.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var mandateType enums.MandateType
		if raw := r.URL.Query().Get("type"); raw != "" {
			parsed, err := enums.ParseMandateType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type parameter"))
				return
			}
			mandateType = parsed
		}

		records, err := svc.ListByUser(r.Context(), userID, mandateType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"mandates": records,
			"count":    len(records),
		})
	}
}
