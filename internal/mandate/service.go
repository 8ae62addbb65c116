package mandate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/ghostcart-backend/internal/signature"
	dbpkg "github.com/angelmondragon/ghostcart-backend/pkg/db"
	"github.com/angelmondragon/ghostcart-backend/pkg/db/models"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
	"github.com/angelmondragon/ghostcart-backend/pkg/logger"
	"github.com/angelmondragon/ghostcart-backend/pkg/outbox"
)

const (
	minIntentTTL = time.Hour
	maxIntentTTL = 30 * 24 * time.Hour
)

// Signer is the slice of the signature service this package needs.
type Signer interface {
	Sign(doc any, identity string, role enums.SignerRole) (signature.Envelope, error)
	Verify(doc any, env signature.Envelope) error
}

// EventEmitter queues domain events inside the caller's transaction.
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams wires the mandate service.
type ServiceParams struct {
	Client *dbpkg.Client
	Repo   *Repo
	Signer Signer
	Events EventEmitter
	Logger *logger.Logger
}

// Service owns mandate creation, signing, and retrieval.
type Service struct {
	client *dbpkg.Client
	repo   *Repo
	signer Signer
	events EventEmitter
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("mandate repo is required")
	}
	if params.Signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	return &Service{
		client: params.Client,
		repo:   params.Repo,
		signer: params.Signer,
		events: params.Events,
		logg:   params.Logger,
		now:    time.Now,
	}, nil
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateIntentInput carries the caller-facing fields of a new intent.
type CreateIntentInput struct {
	UserID        string
	Scenario      enums.Scenario
	ProductQuery  string
	Constraints   *Constraints
	MaxTotalCents int64
	ExpiresAt     *time.Time
}

// CreateIntent builds, validates, and persists an unsigned intent mandate.
// Delegated intents must expire between one hour and thirty days out.
func (s *Service) CreateIntent(ctx context.Context, input CreateIntentInput) (IntentMandate, error) {
	m := IntentMandate{
		ID:            NewIntentID(),
		MandateType:   enums.MandateTypeIntent,
		UserID:        input.UserID,
		Scenario:      input.Scenario,
		ProductQuery:  input.ProductQuery,
		Constraints:   input.Constraints,
		MaxTotalCents: input.MaxTotalCents,
		ExpiresAt:     input.ExpiresAt,
	}
	if err := m.Validate(); err != nil {
		return IntentMandate{}, err
	}
	if m.Scenario == enums.ScenarioDelegated {
		now := s.now()
		if m.ExpiresAt.Before(now.Add(minIntentTTL)) {
			return IntentMandate{}, pkgerrors.New(pkgerrors.CodeStructural, "intent expiration must be at least one hour out")
		}
		if m.ExpiresAt.After(now.Add(maxIntentTTL)) {
			return IntentMandate{}, pkgerrors.New(pkgerrors.CodeStructural, "intent expiration cannot exceed thirty days")
		}
	}
	rec, err := RecordFromIntent(m)
	if err != nil {
		return IntentMandate{}, err
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return IntentMandate{}, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithMandateID(ctx, m.ID), "intent mandate created")
	}
	return m, nil
}

// SignIntent attaches the user's signature to an existing intent. Signing is
// what turns a delegated intent into a usable pre-authorization.
func (s *Service) SignIntent(ctx context.Context, intentID, userID string) (IntentMandate, error) {
	rec, err := s.repo.GetByID(ctx, intentID)
	if err != nil {
		return IntentMandate{}, err
	}
	m, err := IntentFromRecord(rec)
	if err != nil {
		return IntentMandate{}, err
	}
	if m.UserID != userID {
		return IntentMandate{}, pkgerrors.New(pkgerrors.CodeForbidden, "intent belongs to a different user")
	}
	if m.Signature != nil {
		return IntentMandate{}, pkgerrors.New(pkgerrors.CodeConflict, "intent is already signed")
	}
	if m.Expired(s.now()) {
		return IntentMandate{}, pkgerrors.New(pkgerrors.CodeExpired, "intent mandate has expired")
	}

	env, err := s.signer.Sign(m.SigningPayload(), userID, enums.SignerRoleUser)
	if err != nil {
		return IntentMandate{}, err
	}
	m.Signature = &env

	payload, err := json.Marshal(m)
	if err != nil {
		return IntentMandate{}, pkgerrors.Wrap(pkgerrors.CodeStructural, err, "serializing signed intent")
	}
	rec.Payload = payload
	applyEnvelope(rec, m.Signature)

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Save(rec).Error; err != nil {
			return err
		}
		if s.events == nil {
			return nil
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventIntentSigned,
			AggregateType: enums.AggregateMandate,
			AggregateID:   m.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: enums.SignerRoleUser.String()},
			Data: map[string]any{
				"mandate_id": m.ID,
				"scenario":   m.Scenario,
			},
			Version: 1,
		})
	})
	if err != nil {
		return IntentMandate{}, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithMandateID(ctx, m.ID), "intent mandate signed")
	}
	return m, nil
}

// Get returns the raw stored record for any mandate type.
func (s *Service) Get(ctx context.Context, id string) (*models.MandateRecord, error) {
	return s.repo.GetByID(ctx, id)
}

// GetIntent loads and rehydrates an intent mandate.
func (s *Service) GetIntent(ctx context.Context, id string) (IntentMandate, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return IntentMandate{}, err
	}
	return IntentFromRecord(rec)
}

// ListByUser returns stored mandates for a user, optionally filtered by type.
func (s *Service) ListByUser(ctx context.Context, userID string, mandateType enums.MandateType) ([]models.MandateRecord, error) {
	return s.repo.ListByUser(ctx, userID, mandateType)
}
