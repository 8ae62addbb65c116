package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/ghostcart-backend/api/middleware"
	"github.com/angelmondragon/ghostcart-backend/api/responses"
	"github.com/angelmondragon/ghostcart-backend/api/validators"
	"github.com/angelmondragon/ghostcart-backend/internal/transactions"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
	"github.com/angelmondragon/ghostcart-backend/pkg/logger"
)

// ListTransactions returns the user's transactions, newest first.
func ListTransactions(repo *transactions.Repo, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		limit, err := validators.QueryInt(r, "limit", 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txns, err := repo.ListByUser(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"transactions": txns,
			"count":        len(txns),
		})
	}
}

// GetTransaction returns one transaction, enforcing ownership.
func GetTransaction(repo *transactions.Repo, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		txn, err := repo.GetByID(r.Context(), chi.URLParam(r, "transactionID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if txn.UserID != userID {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeForbidden, "transaction belongs to a different user"))
			return
		}
		responses.WriteSuccess(w, txn)
	}
}
