package controllers

import (
	"net/http"

	"github.com/angelmondragon/ghostcart-backend/api/middleware"
	"github.com/angelmondragon/ghostcart-backend/api/responses"
	"github.com/angelmondragon/ghostcart-backend/api/validators"
	"github.com/angelmondragon/ghostcart-backend/internal/mandate"
	"github.com/angelmondragon/ghostcart-backend/internal/merchant"
	"github.com/angelmondragon/ghostcart-backend/internal/purchase"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	"github.com/angelmondragon/ghostcart-backend/pkg/logger"
)

type createPurchaseRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1"`
}

// CreatePurchase runs an immediate human-present purchase: build a cart for
// the product, sign it as the user, and push it through the orchestrator.
func CreatePurchase(shop *merchant.Service, signer mandate.Signer, orch *purchase.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload createPurchaseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := shop.BuildCart(r.Context(), payload.ProductID, payload.Quantity, "", "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		env, err := signer.Sign(cart.SigningPayload(), userID, enums.SignerRoleUser)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart.Signature = &env

		result, err := orch.Execute(r.Context(), purchase.Input{
			UserID:       userID,
			Scenario:     enums.ScenarioImmediate,
			Cart:         cart,
			HumanPresent: true,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"transaction": result.Transaction,
			"payment":     result.Payment,
		})
	}
}
