package transactions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/ghostcart-backend/pkg/db"
	"github.com/angelmondragon/ghostcart-backend/pkg/db/models"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
)

// UniqueAuthorizedConstraint is the partial unique index backing the
// at-most-once guarantee.
const UniqueAuthorizedConstraint = "ux_transactions_intent_authorized"

// Repo persists purchase outcomes.
type Repo struct {
	client *dbpkg.Client
}

func NewRepo(client *dbpkg.Client) (*Repo, error) {
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	return &Repo{client: client}, nil
}

// NewTransactionID mints a txn_-prefixed identifier.
func NewTransactionID() string {
	return "txn_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateTx inserts a transaction inside the caller's transaction. A unique
// violation on the authorized index means another attempt already won.
func (r *Repo) CreateTx(tx *gorm.DB, txn *models.Transaction) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if err := tx.Create(txn).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, UniqueAuthorizedConstraint) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "intent already has an authorized transaction")
		}
		return err
	}
	return nil
}

// GetByID loads one transaction.
func (r *Repo) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.client.DB().WithContext(ctx).First(&txn, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("transaction %s not found", id))
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListByUser returns a user's transactions, newest first.
func (r *Repo) ListByUser(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var txns []models.Transaction
	err := r.client.DB().WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

// HasAuthorizedForIntent reports whether an authorized transaction already
// exists for the intent. This is the cheap pre-check; the partial unique
// index is the authoritative guard.
func (r *Repo) HasAuthorizedForIntent(ctx context.Context, intentMandateID string) (bool, error) {
	var count int64
	err := r.client.DB().WithContext(ctx).
		Model(&models.Transaction{}).
		Where("intent_mandate_id = ? AND status = ?", intentMandateID, enums.TransactionStatusAuthorized).
		Count(&count).Error
	return count > 0, err
}
