package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/ghostcart-backend/api/responses"
	"github.com/angelmondragon/ghostcart-backend/api/validators"
	"github.com/angelmondragon/ghostcart-backend/internal/credentials"
	pkgauth "github.com/angelmondragon/ghostcart-backend/pkg/auth"
	"github.com/angelmondragon/ghostcart-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
	"github.com/angelmondragon/ghostcart-backend/pkg/logger"
)

type demoTokenRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// DemoToken issues an access token for one of the demo wallet users. There is
// no password flow; possession of a wallet entry is the whole identity story.
func DemoToken(cfg config.JWTConfig, creds credentials.Provider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload demoTokenRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := creds.Methods(r.Context(), payload.UserID); err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "unknown demo user"))
			return
		}

		token, err := pkgauth.MintAccessToken(cfg, time.Now(), payload.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"access_token": token,
			"token_type":   "Bearer",
			"expires_in":   cfg.ExpirationMinutes * 60,
		})
	}
}
