package transactions

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/ghostcart-backend/pkg/config"
	dbpkg "github.com/angelmondragon/ghostcart-backend/pkg/db"
	"github.com/angelmondragon/ghostcart-backend/pkg/db/models"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
)

func newTestRepo(t *testing.T) (*Repo, *dbpkg.Client) {
	t.Helper()
	client, err := dbpkg.New(context.Background(), config.DBConfig{
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, config.FeatureFlagsConfig{UseSQLite: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.DB().AutoMigrate(&models.Transaction{}))
	require.NoError(t, client.DB().Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_transactions_intent_authorized
		 ON transactions (intent_mandate_id)
		 WHERE status = 'authorized' AND intent_mandate_id <> ''`,
	).Error)

	repo, err := NewRepo(client)
	require.NoError(t, err)
	return repo, client
}

func txnFor(intentID string, status enums.TransactionStatus) *models.Transaction {
	return &models.Transaction{
		ID:               NewTransactionID(),
		IntentMandateID:  intentID,
		CartMandateID:    "cart_0000000000000000000000000000test",
		PaymentMandateID: "payment_00000000000000000000000test",
		UserID:           "user_demo_001",
		Status:           status,
		AmountCents:      5967,
		Currency:         enums.CurrencyUSD,
	}
}

func TestSecondAuthorizedForIntentViolatesIndex(t *testing.T) {
	repo, client := newTestRepo(t)
	ctx := context.Background()
	intentID := "intent_000000000000000000000000test"

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return repo.CreateTx(tx, txnFor(intentID, enums.TransactionStatusAuthorized))
	})
	require.NoError(t, err)

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		return repo.CreateTx(tx, txnFor(intentID, enums.TransactionStatusAuthorized))
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	already, err := repo.HasAuthorizedForIntent(ctx, intentID)
	require.NoError(t, err)
	assert.True(t, already)
}

func TestDeclinedAttemptsDoNotConsumeTheIndex(t *testing.T) {
	repo, client := newTestRepo(t)
	ctx := context.Background()
	intentID := "intent_000000000000000000000000test"

	for i := 0; i < 3; i++ {
		err := client.WithTx(ctx, func(tx *gorm.DB) error {
			return repo.CreateTx(tx, txnFor(intentID, enums.TransactionStatusDeclined))
		})
		require.NoError(t, err)
	}

	already, err := repo.HasAuthorizedForIntent(ctx, intentID)
	require.NoError(t, err)
	assert.False(t, already)

	// The intent can still be fulfilled after declines.
	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		return repo.CreateTx(tx, txnFor(intentID, enums.TransactionStatusAuthorized))
	})
	require.NoError(t, err)
}

func TestAuthorizedImmediatePurchasesAreUnlimited(t *testing.T) {
	repo, client := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := client.WithTx(ctx, func(tx *gorm.DB) error {
			return repo.CreateTx(tx, txnFor("", enums.TransactionStatusAuthorized))
		})
		require.NoError(t, err, "transactions without an intent are exempt from the index")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.GetByID(context.Background(), "txn_missing")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestListByUserNewestFirst(t *testing.T) {
	repo, client := newTestRepo(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		txn := txnFor(fmt.Sprintf("intent_%032d", i), enums.TransactionStatusAuthorized)
		err := client.WithTx(ctx, func(tx *gorm.DB) error { return repo.CreateTx(tx, txn) })
		require.NoError(t, err)
		ids = append(ids, txn.ID)
	}

	txns, err := repo.ListByUser(ctx, "user_demo_001", 2)
	require.NoError(t, err)
	assert.Len(t, txns, 2)
}
