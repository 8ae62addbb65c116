package mandate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ghostcart-backend/internal/signature"
	"github.com/angelmondragon/ghostcart-backend/pkg/config"
	dbpkg "github.com/angelmondragon/ghostcart-backend/pkg/db"
	"github.com/angelmondragon/ghostcart-backend/pkg/db/models"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
	"github.com/angelmondragon/ghostcart-backend/pkg/outbox"
)

var serviceBase = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func newServiceFixture(t *testing.T) (*Service, *dbpkg.Client) {
	t.Helper()
	client, err := dbpkg.New(context.Background(), config.DBConfig{
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, config.FeatureFlagsConfig{UseSQLite: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(&models.MandateRecord{}, &models.OutboxEvent{}))

	keyring, err := signature.NewKeyring(signature.AlgorithmHMACSHA256, map[enums.SignerRole]signature.KeyPair{
		enums.SignerRoleUser:         {Private: []byte("user-secret")},
		enums.SignerRoleAgent:        {Private: []byte("agent-secret")},
		enums.SignerRolePaymentAgent: {Private: []byte("payment-secret")},
	})
	require.NoError(t, err)
	signer, err := signature.NewService(keyring)
	require.NoError(t, err)

	repo, err := NewRepo(client)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Client: client,
		Repo:   repo,
		Signer: signer,
		Events: outbox.NewService(outbox.NewRepository(client.DB()), nil),
	})
	require.NoError(t, err)
	return svc.WithClock(func() time.Time { return serviceBase }), client
}

func delegatedInput(userID string, expires time.Time) CreateIntentInput {
	return CreateIntentInput{
		UserID:       userID,
		Scenario:     enums.ScenarioDelegated,
		ProductQuery: "wireless headphones",
		Constraints: &Constraints{
			MaxPriceCents:   20000,
			MaxDeliveryDays: 7,
			Currency:        enums.CurrencyUSD,
		},
		MaxTotalCents: 20000,
		ExpiresAt:     &expires,
	}
}

func TestCreateIntentPersistsUnsigned(t *testing.T) {
	svc, _ := newServiceFixture(t)

	intent, err := svc.CreateIntent(context.Background(), delegatedInput("user_demo_001", serviceBase.Add(48*time.Hour)))
	require.NoError(t, err)
	assert.Contains(t, intent.ID, "intent_")
	assert.Nil(t, intent.Signature)

	stored, err := svc.GetIntent(context.Background(), intent.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.ID, stored.ID)
	assert.Equal(t, "wireless headphones", stored.ProductQuery)
	assert.Nil(t, stored.Signature)
}

func TestCreateIntentEnforcesExpiryWindow(t *testing.T) {
	svc, _ := newServiceFixture(t)

	_, err := svc.CreateIntent(context.Background(), delegatedInput("user_demo_001", serviceBase.Add(30*time.Minute)))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStructural, pkgerrors.CodeOf(err))

	_, err = svc.CreateIntent(context.Background(), delegatedInput("user_demo_001", serviceBase.Add(31*24*time.Hour)))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStructural, pkgerrors.CodeOf(err))
}

func TestCreateIntentImmediateNeedsNoExpiry(t *testing.T) {
	svc, _ := newServiceFixture(t)

	intent, err := svc.CreateIntent(context.Background(), CreateIntentInput{
		UserID:       "user_demo_001",
		Scenario:     enums.ScenarioImmediate,
		ProductQuery: "desk lamp",
	})
	require.NoError(t, err)
	assert.Nil(t, intent.ExpiresAt)
}

func TestCreateIntentDelegatedRequiresConstraints(t *testing.T) {
	svc, _ := newServiceFixture(t)

	input := delegatedInput("user_demo_001", serviceBase.Add(48*time.Hour))
	input.Constraints = nil
	_, err := svc.CreateIntent(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStructural, pkgerrors.CodeOf(err))
}

func TestSignIntentEmitsSignedEvent(t *testing.T) {
	svc, client := newServiceFixture(t)
	intent, err := svc.CreateIntent(context.Background(), delegatedInput("user_demo_001", serviceBase.Add(48*time.Hour)))
	require.NoError(t, err)

	signed, err := svc.SignIntent(context.Background(), intent.ID, "user_demo_001")
	require.NoError(t, err)
	require.NotNil(t, signed.Signature)
	assert.Equal(t, "user_demo_001", signed.Signature.SignerIdentity)

	var events []models.OutboxEvent
	require.NoError(t, client.DB().Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventIntentSigned, events[0].EventType)
	assert.Equal(t, intent.ID, events[0].AggregateID)
}

func TestSignIntentTwiceConflicts(t *testing.T) {
	svc, _ := newServiceFixture(t)
	intent, err := svc.CreateIntent(context.Background(), delegatedInput("user_demo_001", serviceBase.Add(48*time.Hour)))
	require.NoError(t, err)

	_, err = svc.SignIntent(context.Background(), intent.ID, "user_demo_001")
	require.NoError(t, err)

	_, err = svc.SignIntent(context.Background(), intent.ID, "user_demo_001")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestSignIntentRejectsForeignUser(t *testing.T) {
	svc, _ := newServiceFixture(t)
	intent, err := svc.CreateIntent(context.Background(), delegatedInput("user_demo_001", serviceBase.Add(48*time.Hour)))
	require.NoError(t, err)

	_, err = svc.SignIntent(context.Background(), intent.ID, "user_demo_002")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}

func TestSignIntentRejectsExpired(t *testing.T) {
	svc, _ := newServiceFixture(t)
	intent, err := svc.CreateIntent(context.Background(), delegatedInput("user_demo_001", serviceBase.Add(2*time.Hour)))
	require.NoError(t, err)

	svc.WithClock(func() time.Time { return serviceBase.Add(3 * time.Hour) })
	_, err = svc.SignIntent(context.Background(), intent.ID, "user_demo_001")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeExpired, pkgerrors.CodeOf(err))
}

func TestListByUserFiltersByType(t *testing.T) {
	svc, _ := newServiceFixture(t)
	_, err := svc.CreateIntent(context.Background(), delegatedInput("user_demo_001", serviceBase.Add(48*time.Hour)))
	require.NoError(t, err)
	_, err = svc.CreateIntent(context.Background(), delegatedInput("user_demo_002", serviceBase.Add(48*time.Hour)))
	require.NoError(t, err)

	records, err := svc.ListByUser(context.Background(), "user_demo_001", enums.MandateTypeIntent)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = svc.ListByUser(context.Background(), "user_demo_001", "")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = svc.ListByUser(context.Background(), "user_demo_001", enums.MandateTypeCart)
	require.NoError(t, err)
	assert.Empty(t, records)
}
