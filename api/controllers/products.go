package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/ghostcart-backend/api/responses"
	"github.com/angelmondragon/ghostcart-backend/api/validators"
	"github.com/angelmondragon/ghostcart-backend/internal/merchant"
	"github.com/angelmondragon/ghostcart-backend/pkg/logger"
)

// ListProducts searches the demo catalog.
func ListProducts(shop *merchant.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maxPrice, err := validators.QueryInt64(r, "max_price_cents", 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products := shop.Search(r.Context(),
			r.URL.Query().Get("q"),
			maxPrice,
			r.URL.Query().Get("category"),
		)
		responses.WriteSuccess(w, map[string]any{
			"products": products,
			"count":    len(products),
		})
	}
}

// GetProduct returns one product at its current price.
func GetProduct(shop *merchant.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, err := shop.GetProduct(r.Context(), chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}
