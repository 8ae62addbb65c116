package monitoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/ghostcart-backend/pkg/db"
	"github.com/angelmondragon/ghostcart-backend/pkg/db/models"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
)

// UniqueIntentConstraint backs the one-job-per-intent rule.
const UniqueIntentConstraint = "ux_monitoring_jobs_intent"

// Repo persists monitoring jobs. Status transitions are conditional on the
// row still being active, so a transition that lost a race is a no-op rather
// than an overwrite of a terminal state.
type Repo struct {
	client *dbpkg.Client
}

func NewRepo(client *dbpkg.Client) (*Repo, error) {
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	return &Repo{client: client}, nil
}

// NewJobID mints a job_-prefixed identifier.
func NewJobID() string {
	return "job_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create inserts a new job. A second job for the same intent is a conflict.
func (r *Repo) Create(ctx context.Context, job *models.MonitoringJob) error {
	if err := r.client.DB().WithContext(ctx).Create(job).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, UniqueIntentConstraint) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "intent already has a monitoring job")
		}
		return err
	}
	return nil
}

// GetByID loads one job.
func (r *Repo) GetByID(ctx context.Context, id string) (*models.MonitoringJob, error) {
	var job models.MonitoringJob
	err := r.client.DB().WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("monitoring job %s not found", id))
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListByUser returns a user's jobs, newest first.
func (r *Repo) ListByUser(ctx context.Context, userID string) ([]models.MonitoringJob, error) {
	var jobs []models.MonitoringJob
	err := r.client.DB().WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&jobs).Error
	return jobs, err
}

// ListActive returns every job still in the active state.
func (r *Repo) ListActive(ctx context.Context) ([]models.MonitoringJob, error) {
	var jobs []models.MonitoringJob
	err := r.client.DB().WithContext(ctx).
		Where("status = ?", enums.JobStatusActive).
		Order("created_at ASC").
		Find(&jobs).Error
	return jobs, err
}

// RecordCheck bumps the check counter and timestamp for an active job.
func (r *Repo) RecordCheck(ctx context.Context, jobID string, at time.Time) error {
	return r.client.DB().WithContext(ctx).
		Model(&models.MonitoringJob{}).
		Where("id = ? AND status = ?", jobID, enums.JobStatusActive).
		Updates(map[string]any{
			"checks_performed": gorm.Expr("checks_performed + 1"),
			"last_check_at":    at,
		}).Error
}

// MarkCompleted transitions an active job to completed, recording the
// transaction that fulfilled it. Returns false if the job was no longer active.
func (r *Repo) MarkCompleted(ctx context.Context, jobID, transactionID string, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":       enums.JobStatusCompleted,
		"completed_at": at,
	}
	if transactionID != "" {
		updates["transaction_id"] = transactionID
	}
	return r.transition(ctx, jobID, updates)
}

// MarkExpired transitions an active job to expired.
func (r *Repo) MarkExpired(ctx context.Context, jobID string, at time.Time) (bool, error) {
	return r.transition(ctx, jobID, map[string]any{
		"status":       enums.JobStatusExpired,
		"completed_at": at,
	})
}

// MarkCancelled transitions an active job to cancelled.
func (r *Repo) MarkCancelled(ctx context.Context, jobID string, at time.Time) (bool, error) {
	return r.transition(ctx, jobID, map[string]any{
		"status":       enums.JobStatusCancelled,
		"completed_at": at,
	})
}

// MarkFailed transitions an active job to failed with a reason.
func (r *Repo) MarkFailed(ctx context.Context, jobID, reason string, at time.Time) (bool, error) {
	return r.transition(ctx, jobID, map[string]any{
		"status":         enums.JobStatusFailed,
		"failure_reason": reason,
		"completed_at":   at,
	})
}

// SweepExpired expires every active job past its deadline. The conditional
// update makes repeated sweeps no-ops.
func (r *Repo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.client.DB().WithContext(ctx).
		Model(&models.MonitoringJob{}).
		Where("status = ? AND expires_at <= ?", enums.JobStatusActive, now).
		Updates(map[string]any{
			"status":       enums.JobStatusExpired,
			"completed_at": now,
		})
	return res.RowsAffected, res.Error
}

func (r *Repo) transition(ctx context.Context, jobID string, updates map[string]any) (bool, error) {
	res := r.client.DB().WithContext(ctx).
		Model(&models.MonitoringJob{}).
		Where("id = ? AND status = ?", jobID, enums.JobStatusActive).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
