package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/ghostcart-backend/internal/mandate"
	"github.com/angelmondragon/ghostcart-backend/internal/signature"
	"github.com/angelmondragon/ghostcart-backend/pkg/config"
	"github.com/angelmondragon/ghostcart-backend/pkg/db/models"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
	"github.com/angelmondragon/ghostcart-backend/pkg/logger"
	"github.com/angelmondragon/ghostcart-backend/pkg/outbox"
)

// JobWriter is the persistence slice the job lifecycle needs.
type JobWriter interface {
	Create(ctx context.Context, job *models.MonitoringJob) error
	GetByID(ctx context.Context, id string) (*models.MonitoringJob, error)
	ListByUser(ctx context.Context, userID string) ([]models.MonitoringJob, error)
	MarkCancelled(ctx context.Context, jobID string, at time.Time) (bool, error)
}

// IntentLoader rehydrates signed intent mandates from the store.
type IntentLoader interface {
	GetIntent(ctx context.Context, id string) (mandate.IntentMandate, error)
}

// Verifier checks the intent's signature before a watch is registered.
type Verifier interface {
	Verify(doc any, env signature.Envelope) error
}

// PriceDropper schedules the demo merchant's price movement so a registered
// watch has something to eventually match.
type PriceDropper interface {
	RegisterPriceDrop(ctx context.Context, productQuery string, targetPriceCents int64)
	MaxUnitPriceCents(budgetCents int64) int64
}

// EventSink receives scheduler notices outside any database transaction.
type EventSink interface {
	Emit(ctx context.Context, event outbox.DomainEvent) error
}

// ServiceParams wires the monitoring service.
type ServiceParams struct {
	Config   config.MonitoringConfig
	Repo     JobWriter
	Intents  IntentLoader
	Verifier Verifier
	Dropper  PriceDropper
	Events   EventSink
	Logger   *logger.Logger
}

// Service owns the caller-facing lifecycle of monitoring jobs: registration,
// listing, and cancellation. The scheduler owns everything that happens after.
type Service struct {
	cfg      config.MonitoringConfig
	repo     JobWriter
	intents  IntentLoader
	verifier Verifier
	dropper  PriceDropper
	events   EventSink
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("monitoring repo is required")
	}
	if params.Intents == nil {
		return nil, fmt.Errorf("intent loader is required")
	}
	if params.Verifier == nil {
		return nil, fmt.Errorf("signature verifier is required")
	}
	return &Service{
		cfg:      params.Config,
		repo:     params.Repo,
		intents:  params.Intents,
		verifier: params.Verifier,
		dropper:  params.Dropper,
		events:   params.Events,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RegisterJob starts watching conditions for a signed delegated intent. The
// intent's constraints are snapshotted onto the job row so the watch enforces
// what the user signed, not whatever the mandate row says later.
func (s *Service) RegisterJob(ctx context.Context, userID, intentMandateID string) (*models.MonitoringJob, error) {
	intent, err := s.intents.GetIntent(ctx, intentMandateID)
	if err != nil {
		return nil, err
	}
	if intent.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "intent belongs to a different user")
	}
	if intent.Scenario != enums.ScenarioDelegated {
		return nil, pkgerrors.New(pkgerrors.CodeStructural, "only delegated intents can be monitored")
	}
	if intent.Signature == nil {
		return nil, pkgerrors.New(pkgerrors.CodeChain, "intent must be signed before monitoring starts")
	}
	if err := s.verifier.Verify(intent.SigningPayload(), *intent.Signature); err != nil {
		return nil, err
	}
	now := s.now()
	if intent.Expired(now) {
		return nil, pkgerrors.New(pkgerrors.CodeExpired, "intent mandate has expired")
	}

	constraints, err := json.Marshal(intent.Constraints)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStructural, err, "serializing intent constraints")
	}
	job := &models.MonitoringJob{
		ID:              NewJobID(),
		IntentMandateID: intent.ID,
		UserID:          userID,
		ProductQuery:    intent.ProductQuery,
		Constraints:     constraints,
		MaxTotalCents:   intent.MaxTotalCents,
		IntervalSeconds: int(s.cfg.Interval().Seconds()),
		Status:          enums.JobStatusActive,
		ExpiresAt:       intent.ExpiresAt.UTC(),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}

	if s.dropper != nil {
		target := s.dropper.MaxUnitPriceCents(intent.MaxTotalCents)
		s.dropper.RegisterPriceDrop(ctx, intent.ProductQuery, target)
	}
	if s.events != nil {
		_ = s.events.Emit(ctx, outbox.DomainEvent{
			EventType:     enums.EventMonitoringStarted,
			AggregateType: enums.AggregateMonitoringJob,
			AggregateID:   job.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: enums.SignerRoleUser.String()},
			Data: map[string]any{
				"job_id":           job.ID,
				"intent_id":        intent.ID,
				"product_query":    job.ProductQuery,
				"max_total_cents":  job.MaxTotalCents,
				"interval_seconds": job.IntervalSeconds,
				"expires_at":       job.ExpiresAt,
			},
			Version: 1,
		})
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithJobID(ctx, job.ID), "monitoring job registered")
	}
	return job, nil
}

// ListByUser returns a user's monitoring jobs.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.MonitoringJob, error) {
	return s.repo.ListByUser(ctx, userID)
}

// GetByID loads one job, enforcing ownership.
func (s *Service) GetByID(ctx context.Context, userID, jobID string) (*models.MonitoringJob, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "job belongs to a different user")
	}
	return job, nil
}

// Cancel stops an active job. The running scheduler notices the terminal
// status at its next tick; an in-flight check is allowed to finish.
func (s *Service) Cancel(ctx context.Context, userID, jobID string) (*models.MonitoringJob, error) {
	job, err := s.GetByID(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.MarkCancelled(ctx, jobID, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("job is already %s", job.Status))
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithJobID(ctx, jobID), "monitoring job cancelled")
	}
	return s.repo.GetByID(ctx, jobID)
}
