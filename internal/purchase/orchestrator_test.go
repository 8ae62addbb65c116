package purchase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ghostcart-backend/internal/chain"
	"github.com/angelmondragon/ghostcart-backend/internal/credentials"
	"github.com/angelmondragon/ghostcart-backend/internal/mandate"
	"github.com/angelmondragon/ghostcart-backend/internal/merchant"
	"github.com/angelmondragon/ghostcart-backend/internal/processor"
	"github.com/angelmondragon/ghostcart-backend/internal/signature"
	"github.com/angelmondragon/ghostcart-backend/internal/transactions"
	"github.com/angelmondragon/ghostcart-backend/pkg/config"
	dbpkg "github.com/angelmondragon/ghostcart-backend/pkg/db"
	"github.com/angelmondragon/ghostcart-backend/pkg/db/models"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
)

func newTestClient(t *testing.T) *dbpkg.Client {
	t.Helper()
	client, err := dbpkg.New(context.Background(), config.DBConfig{
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, config.FeatureFlagsConfig{UseSQLite: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.DB().AutoMigrate(
		&models.MandateRecord{},
		&models.Transaction{},
		&models.OutboxEvent{},
	))
	require.NoError(t, client.DB().Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_transactions_intent_authorized
		 ON transactions (intent_mandate_id)
		 WHERE status = 'authorized' AND intent_mandate_id <> ''`,
	).Error)
	return client
}

func newTestSigner(t *testing.T) *signature.Service {
	t.Helper()
	keyring, err := signature.NewKeyring(signature.AlgorithmHMACSHA256, map[enums.SignerRole]signature.KeyPair{
		enums.SignerRoleUser:         {Private: []byte("user-secret")},
		enums.SignerRoleAgent:        {Private: []byte("agent-secret")},
		enums.SignerRolePaymentAgent: {Private: []byte("payment-secret")},
	})
	require.NoError(t, err)
	svc, err := signature.NewService(keyring)
	require.NoError(t, err)
	return svc
}

type orchestratorFixture struct {
	orchestrator *Orchestrator
	client       *dbpkg.Client
	signer       *signature.Service
	txns         *transactions.Repo
	mandates     *mandate.Repo
	merchant     *merchant.Service
	creds        *credentials.StaticProvider
}

func newOrchestratorFixture(t *testing.T, proc processor.Authorizer) *orchestratorFixture {
	t.Helper()
	client := newTestClient(t)
	signer := newTestSigner(t)
	validator, err := chain.NewValidator(signer)
	require.NoError(t, err)
	txns, err := transactions.NewRepo(client)
	require.NoError(t, err)
	mandates, err := mandate.NewRepo(client)
	require.NoError(t, err)
	creds := credentials.NewStaticProvider()
	if proc == nil {
		proc = processor.NewMock(config.ProcessorConfig{AlwaysApprove: true})
	}

	orchestrator, err := NewOrchestrator(OrchestratorParams{
		Client:      client,
		Validator:   validator,
		Signer:      signer,
		Credentials: creds,
		Processor:   proc,
		Txns:        txns,
		Mandates:    mandates,
	})
	require.NoError(t, err)

	shop := merchant.NewService(config.MerchantConfig{
		ID:                "merchant_ghostcart_demo",
		Name:              "GhostCart Demo Store",
		TaxBasisPoints:    800,
		ShippingCents:     1000,
		PriceDropDelay:    30 * time.Second,
		CartValidityHours: 24,
	}, nil)

	return &orchestratorFixture{
		orchestrator: orchestrator,
		client:       client,
		signer:       signer,
		txns:         txns,
		mandates:     mandates,
		merchant:     shop,
		creds:        creds,
	}
}

// delegatedChain persists a signed intent and returns it with a consistent
// agent-signed cart for the demo desk lamp.
func (f *orchestratorFixture) delegatedChain(t *testing.T, userID string) (mandate.IntentMandate, mandate.CartMandate) {
	t.Helper()
	expires := time.Now().Add(48 * time.Hour)
	intent := mandate.IntentMandate{
		ID:           mandate.NewIntentID(),
		MandateType:  enums.MandateTypeIntent,
		UserID:       userID,
		Scenario:     enums.ScenarioDelegated,
		ProductQuery: "desk lamp",
		Constraints: &mandate.Constraints{
			MaxPriceCents:   10000,
			MaxDeliveryDays: 3,
			Currency:        enums.CurrencyUSD,
		},
		MaxTotalCents: 10000,
		ExpiresAt:     &expires,
	}
	env, err := f.signer.Sign(intent.SigningPayload(), userID, enums.SignerRoleUser)
	require.NoError(t, err)
	intent.Signature = &env

	rec, err := mandate.RecordFromIntent(intent)
	require.NoError(t, err)
	require.NoError(t, f.mandates.Create(context.Background(), rec))

	cart, err := f.merchant.BuildCart(context.Background(), "prod_lamp_001", 1, intent.ID, "")
	require.NoError(t, err)
	cartEnv, err := f.signer.Sign(cart.SigningPayload(), "gc_shopping_agent", enums.SignerRoleAgent)
	require.NoError(t, err)
	cart.Signature = &cartEnv
	return intent, cart
}

func (f *orchestratorFixture) userCart(t *testing.T, userID string) mandate.CartMandate {
	t.Helper()
	cart, err := f.merchant.BuildCart(context.Background(), "prod_lamp_001", 1, "", "")
	require.NoError(t, err)
	env, err := f.signer.Sign(cart.SigningPayload(), userID, enums.SignerRoleUser)
	require.NoError(t, err)
	cart.Signature = &env
	return cart
}

func TestExecuteDelegatedCommitsFullChain(t *testing.T) {
	f := newOrchestratorFixture(t, nil)
	intent, cart := f.delegatedChain(t, "user_demo_001")

	result, err := f.orchestrator.Execute(context.Background(), Input{
		UserID:   "user_demo_001",
		Scenario: enums.ScenarioDelegated,
		Intent:   &intent,
		Cart:     cart,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	txn := result.Transaction
	assert.Equal(t, enums.TransactionStatusAuthorized, txn.Status)
	assert.Equal(t, intent.ID, txn.IntentMandateID)
	assert.Equal(t, cart.ID, txn.CartMandateID)
	assert.Equal(t, cart.Total.GrandTotalCents, txn.AmountCents)
	assert.False(t, txn.HumanPresent)
	require.NotNil(t, txn.AuthorizationCode)
	assert.Contains(t, *txn.AuthorizationCode, "auth_")

	payment := result.Payment
	assert.Equal(t, cart.ID, payment.References.CartMandateID)
	assert.Equal(t, intent.ID, payment.References.IntentMandateID)
	assert.True(t, payment.HumanNotPresent)
	require.NotNil(t, payment.Signature)
	assert.Equal(t, enums.SignerRolePaymentAgent, payment.Signature.SignerRole)

	stored, err := f.txns.GetByID(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusAuthorized, stored.Status)

	// Every chain document now points at the committed transaction.
	for _, id := range []string{intent.ID, cart.ID, payment.ID} {
		rec, err := f.mandates.GetByID(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, rec.TransactionID, "mandate %s should be linked", id)
		assert.Equal(t, txn.ID, *rec.TransactionID)
	}
}

func TestExecuteDelegatedSecondAttemptConflicts(t *testing.T) {
	f := newOrchestratorFixture(t, nil)
	intent, cart := f.delegatedChain(t, "user_demo_001")

	_, err := f.orchestrator.Execute(context.Background(), Input{
		UserID:   "user_demo_001",
		Scenario: enums.ScenarioDelegated,
		Intent:   &intent,
		Cart:     cart,
	})
	require.NoError(t, err)

	_, err = f.orchestrator.Execute(context.Background(), Input{
		UserID:   "user_demo_001",
		Scenario: enums.ScenarioDelegated,
		Intent:   &intent,
		Cart:     cart,
	})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	txns, err := f.txns.ListByUser(context.Background(), "user_demo_001", 10)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestExecuteDeclineRecordsDeclinedTransaction(t *testing.T) {
	f := newOrchestratorFixture(t, processor.NewMock(config.ProcessorConfig{}))
	f.creds.WithUser("user_broke_001", []credentials.Method{
		{Token: "tok_decline", Type: "visa", LastFour: "0002", ExpiryMonth: 12, ExpiryYear: 2027, IsDefault: true},
	})
	intent, cart := f.delegatedChain(t, "user_broke_001")

	_, err := f.orchestrator.Execute(context.Background(), Input{
		UserID:   "user_broke_001",
		Scenario: enums.ScenarioDelegated,
		Intent:   &intent,
		Cart:     cart,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDeclined, pkgerrors.CodeOf(err))

	// The decline is part of the audit trail, not a rollback.
	txns, err := f.txns.ListByUser(context.Background(), "user_broke_001", 10)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, enums.TransactionStatusDeclined, txns[0].Status)
	require.NotNil(t, txns[0].DeclineReason)
	assert.Equal(t, "insufficient_funds", *txns[0].DeclineReason)

	// A declined attempt does not consume the intent.
	already, err := f.txns.HasAuthorizedForIntent(context.Background(), intent.ID)
	require.NoError(t, err)
	assert.False(t, already)
}

func TestExecuteWithoutWalletRecordsNothing(t *testing.T) {
	f := newOrchestratorFixture(t, nil)
	intent, cart := f.delegatedChain(t, "user_demo_001")

	_, err := f.orchestrator.Execute(context.Background(), Input{
		UserID:   "user_unknown_404",
		Scenario: enums.ScenarioDelegated,
		Intent:   &intent,
		Cart:     cart,
	})
	assert.Equal(t, pkgerrors.CodeCredentials, pkgerrors.CodeOf(err))

	txns, err := f.txns.ListByUser(context.Background(), "user_unknown_404", 10)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestExecuteTamperedCartRecordsNothing(t *testing.T) {
	f := newOrchestratorFixture(t, nil)
	intent, cart := f.delegatedChain(t, "user_demo_001")
	cart.Total.GrandTotalCents -= 500

	_, err := f.orchestrator.Execute(context.Background(), Input{
		UserID:   "user_demo_001",
		Scenario: enums.ScenarioDelegated,
		Intent:   &intent,
		Cart:     cart,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Terminal(pkgerrors.CodeOf(err)))

	txns, err := f.txns.ListByUser(context.Background(), "user_demo_001", 10)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestExecuteImmediateUserSignedCart(t *testing.T) {
	f := newOrchestratorFixture(t, nil)
	cart := f.userCart(t, "user_demo_002")

	result, err := f.orchestrator.Execute(context.Background(), Input{
		UserID:       "user_demo_002",
		Scenario:     enums.ScenarioImmediate,
		Cart:         cart,
		HumanPresent: true,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.TransactionStatusAuthorized, result.Transaction.Status)
	assert.True(t, result.Transaction.HumanPresent)
	assert.Empty(t, result.Transaction.IntentMandateID)
	assert.False(t, result.Payment.HumanNotPresent)
	assert.Empty(t, result.Payment.References.IntentMandateID)
}

func TestExecuteImmediateTwiceBothSucceed(t *testing.T) {
	f := newOrchestratorFixture(t, nil)

	for i := 0; i < 2; i++ {
		cart := f.userCart(t, "user_demo_002")
		_, err := f.orchestrator.Execute(context.Background(), Input{
			UserID:       "user_demo_002",
			Scenario:     enums.ScenarioImmediate,
			Cart:         cart,
			HumanPresent: true,
		})
		require.NoError(t, err, "immediate purchases are not limited per intent")
	}
}

func TestExecuteDelegatedWithoutIntentFails(t *testing.T) {
	f := newOrchestratorFixture(t, nil)
	cart := f.userCart(t, "user_demo_001")

	_, err := f.orchestrator.Execute(context.Background(), Input{
		UserID:   "user_demo_001",
		Scenario: enums.ScenarioDelegated,
		Cart:     cart,
	})
	assert.Equal(t, pkgerrors.CodeChain, pkgerrors.CodeOf(err))
}
