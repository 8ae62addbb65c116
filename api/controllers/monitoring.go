package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/ghostcart-backend/api/middleware"
	"github.com/angelmondragon/ghostcart-backend/api/responses"
	"github.com/angelmondragon/ghostcart-backend/api/validators"
	"github.com/angelmondragon/ghostcart-backend/internal/monitoring"
	"github.com/angelmondragon/ghostcart-backend/pkg/logger"
)

type createJobRequest struct {
	IntentMandateID string `json:"intent_mandate_id" validate:"required"`
}

// CreateMonitoringJob starts background monitoring for a signed delegated
// intent.
func CreateMonitoringJob(svc *monitoring.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		var payload createJobRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := svc.RegisterJob(r.Context(), userID, payload.IntentMandateID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, job)
	}
}

// ListMonitoringJobs returns the user's monitoring jobs, newest first.
func ListMonitoringJobs(svc *monitoring.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		jobs, err := svc.ListByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"jobs":  jobs,
			"count": len(jobs),
		})
	}
}

// GetMonitoringJob returns one job, enforcing ownership.
func GetMonitoringJob(svc *monitoring.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		job, err := svc.GetByID(r.Context(), userID, chi.URLParam(r, "jobID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

// CancelMonitoringJob stops an active job before it completes.
func CancelMonitoringJob(svc *monitoring.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())

		job, err := svc.Cancel(r.Context(), userID, chi.URLParam(r, "jobID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}
