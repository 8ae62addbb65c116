package mandate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/ghostcart-backend/internal/signature"

	dbpkg "github.com/angelmondragon/ghostcart-backend/pkg/db"
	"github.com/angelmondragon/ghostcart-backend/pkg/db/models"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
)

// Repo persists mandate records. The signed document lives in the payload
// column; the indexed columns are projections for querying.
type Repo struct {
	client *dbpkg.Client
}

func NewRepo(client *dbpkg.Client) (*Repo, error) {
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	return &Repo{client: client}, nil
}

func (r *Repo) Create(ctx context.Context, rec *models.MandateRecord) error {
	return r.CreateTx(r.client.DB().WithContext(ctx), rec)
}

func (r *Repo) CreateTx(tx *gorm.DB, rec *models.MandateRecord) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(rec).Error
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.MandateRecord, error) {
	var rec models.MandateRecord
	err := r.client.DB().WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("mandate %s not found", id))
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string, mandateType enums.MandateType) ([]models.MandateRecord, error) {
	var recs []models.MandateRecord
	q := r.client.DB().WithContext(ctx).Where("user_id = ?", userID)
	if mandateType != "" {
		q = q.Where("mandate_type = ?", mandateType)
	}
	err := q.Order("created_at DESC").Find(&recs).Error
	return recs, err
}

// Save overwrites the full record, used after attaching a signature.
func (r *Repo) Save(ctx context.Context, rec *models.MandateRecord) error {
	return r.client.DB().WithContext(ctx).Save(rec).Error
}

// LinkTransactionTx stamps the winning transaction onto the mandate rows of a
// completed chain inside the caller's transaction.
func (r *Repo) LinkTransactionTx(tx *gorm.DB, transactionID string, mandateIDs ...string) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if len(mandateIDs) == 0 {
		return nil
	}
	return tx.Model(&models.MandateRecord{}).
		Where("id IN ?", mandateIDs).
		Update("transaction_id", transactionID).Error
}

// RecordFromIntent projects an intent mandate into its storage shape.
func RecordFromIntent(m IntentMandate) (*models.MandateRecord, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStructural, err, "serializing intent mandate")
	}
	rec := &models.MandateRecord{
		ID:          m.ID,
		MandateType: enums.MandateTypeIntent,
		UserID:      m.UserID,
		Scenario:    m.Scenario,
		Payload:     payload,
		ExpiresAt:   m.ExpiresAt,
	}
	applyEnvelope(rec, m.Signature)
	return rec, nil
}

// RecordFromCart projects a cart mandate into its storage shape.
func RecordFromCart(m CartMandate, userID string, scenario enums.Scenario) (*models.MandateRecord, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStructural, err, "serializing cart mandate")
	}
	rec := &models.MandateRecord{
		ID:          m.ID,
		MandateType: enums.MandateTypeCart,
		UserID:      userID,
		Scenario:    scenario,
		Payload:     payload,
		ExpiresAt:   m.ExpiresAt,
	}
	applyEnvelope(rec, m.Signature)
	return rec, nil
}

// RecordFromPayment projects a payment mandate into its storage shape.
func RecordFromPayment(m PaymentMandate, userID string, scenario enums.Scenario) (*models.MandateRecord, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStructural, err, "serializing payment mandate")
	}
	rec := &models.MandateRecord{
		ID:          m.ID,
		MandateType: enums.MandateTypePayment,
		UserID:      userID,
		Scenario:    scenario,
		Payload:     payload,
	}
	applyEnvelope(rec, m.Signature)
	return rec, nil
}

func applyEnvelope(rec *models.MandateRecord, env *signature.Envelope) {
	if env == nil {
		return
	}
	rec.SignerIdentity = env.SignerIdentity
	rec.SignerRole = env.SignerRole
	rec.Algorithm = env.Algorithm
	rec.Signature = env.Signature
	if ts, err := time.Parse(time.RFC3339Nano, env.Timestamp); err == nil {
		rec.SignedAt = &ts
	}
}

// IntentFromRecord rehydrates the domain document from storage.
func IntentFromRecord(rec *models.MandateRecord) (IntentMandate, error) {
	var m IntentMandate
	if rec.MandateType != enums.MandateTypeIntent {
		return m, pkgerrors.New(pkgerrors.CodeStructural, fmt.Sprintf("mandate %s is not an intent", rec.ID))
	}
	if err := json.Unmarshal(rec.Payload, &m); err != nil {
		return m, pkgerrors.Wrap(pkgerrors.CodeStructural, err, "deserializing intent mandate")
	}
	return m, nil
}

// CartFromRecord rehydrates the domain document from storage.
func CartFromRecord(rec *models.MandateRecord) (CartMandate, error) {
	var m CartMandate
	if rec.MandateType != enums.MandateTypeCart {
		return m, pkgerrors.New(pkgerrors.CodeStructural, fmt.Sprintf("mandate %s is not a cart", rec.ID))
	}
	if err := json.Unmarshal(rec.Payload, &m); err != nil {
		return m, pkgerrors.Wrap(pkgerrors.CodeStructural, err, "deserializing cart mandate")
	}
	return m, nil
}

// PaymentFromRecord rehydrates the domain document from storage.
func PaymentFromRecord(rec *models.MandateRecord) (PaymentMandate, error) {
	var m PaymentMandate
	if rec.MandateType != enums.MandateTypePayment {
		return m, pkgerrors.New(pkgerrors.CodeStructural, fmt.Sprintf("mandate %s is not a payment", rec.ID))
	}
	if err := json.Unmarshal(rec.Payload, &m); err != nil {
		return m, pkgerrors.Wrap(pkgerrors.CodeStructural, err, "deserializing payment mandate")
	}
	return m, nil
}
