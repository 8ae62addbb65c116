package signature

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
)

func testKeyring(t *testing.T) *Keyring {
	t.Helper()
	keyring, err := NewKeyring(AlgorithmHMACSHA256, map[enums.SignerRole]KeyPair{
		enums.SignerRoleUser:         {Private: []byte("user-secret")},
		enums.SignerRoleAgent:        {Private: []byte("agent-secret")},
		enums.SignerRolePaymentAgent: {Private: []byte("payment-secret")},
	})
	require.NoError(t, err)
	return keyring
}

func testService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(testKeyring(t))
	require.NoError(t, err)
	return svc
}

type sampleDoc struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Note   string `json:"note,omitempty"`
}

func TestSignVerifyRoundTrip(t *testing.T) {
	svc := testService(t)
	doc := sampleDoc{ID: "intent_abc", Amount: 17500}

	env, err := svc.Sign(doc, "user_001", enums.SignerRoleUser)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmHMACSHA256, env.Algorithm)
	assert.Equal(t, "user_001", env.SignerIdentity)

	require.NoError(t, svc.Verify(doc, env))
}

func TestVerifyFailsOnTamperedDocument(t *testing.T) {
	svc := testService(t)
	doc := sampleDoc{ID: "intent_abc", Amount: 17500}

	env, err := svc.Sign(doc, "user_001", enums.SignerRoleUser)
	require.NoError(t, err)

	doc.Amount = 17501
	err = svc.Verify(doc, env)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeSignature, pkgerrors.CodeOf(err))
}

func TestVerifyFailsAcrossRoles(t *testing.T) {
	svc := testService(t)
	doc := sampleDoc{ID: "cart_xyz", Amount: 9900}

	env, err := svc.Sign(doc, "shopping_agent_1", enums.SignerRoleAgent)
	require.NoError(t, err)

	// Re-labelling the envelope to another role selects that role's key,
	// which cannot verify the agent's signature.
	env.SignerRole = enums.SignerRoleUser
	err = svc.Verify(doc, env)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeSignature, pkgerrors.CodeOf(err))
}

func TestVerifyFailsClosedOnUnknownAlgorithm(t *testing.T) {
	svc := testService(t)
	doc := sampleDoc{ID: "intent_abc", Amount: 100}

	env, err := svc.Sign(doc, "user_001", enums.SignerRoleUser)
	require.NoError(t, err)

	env.Algorithm = "HMAC-MD5"
	err = svc.Verify(doc, env)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeSignature, pkgerrors.CodeOf(err))
}

func TestVerifyFailsOnIncompleteEnvelope(t *testing.T) {
	svc := testService(t)
	doc := sampleDoc{ID: "intent_abc", Amount: 100}

	err := svc.Verify(doc, Envelope{Algorithm: AlgorithmHMACSHA256})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeSignature, pkgerrors.CodeOf(err))
}

func TestCanonicalizeStableAcrossFieldOrder(t *testing.T) {
	a := map[string]any{"b": 2, "a": 1, "nested": map[string]any{"y": true, "x": "v"}}
	b := map[string]any{"nested": map[string]any{"x": "v", "y": true}, "a": 1, "b": 2}

	ca, err := Canonicalize(a)
	require.NoError(t, err)
	cb, err := Canonicalize(b)
	require.NoError(t, err)
	assert.Equal(t, string(ca), string(cb))
}

func TestEd25519RoundTrip(t *testing.T) {
	userKey, err := GenerateEd25519KeyPair()
	require.NoError(t, err)
	agentKey, err := GenerateEd25519KeyPair()
	require.NoError(t, err)
	paymentKey, err := GenerateEd25519KeyPair()
	require.NoError(t, err)

	keyring, err := NewKeyring(AlgorithmEd25519, map[enums.SignerRole]KeyPair{
		enums.SignerRoleUser:         userKey,
		enums.SignerRoleAgent:        agentKey,
		enums.SignerRolePaymentAgent: paymentKey,
	})
	require.NoError(t, err)

	svc, err := NewService(keyring)
	require.NoError(t, err)

	doc := sampleDoc{ID: "payment_123", Amount: 18900}
	env, err := svc.Sign(doc, "cp_processor", enums.SignerRolePaymentAgent)
	require.NoError(t, err)
	require.NoError(t, svc.Verify(doc, env))

	doc.Amount++
	require.Error(t, svc.Verify(doc, env))
}

func TestSignatureProperties(t *testing.T) {
	svc := testService(t)
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	properties := gopter.NewProperties(params)

	properties.Property("signed documents always verify", prop.ForAll(
		func(id string, amount int64) bool {
			doc := sampleDoc{ID: id, Amount: amount}
			env, err := svc.Sign(doc, "user_001", enums.SignerRoleUser)
			if err != nil {
				return false
			}
			return svc.Verify(doc, env) == nil
		},
		gen.AlphaString(),
		gen.Int64(),
	))

	properties.Property("any amount change breaks verification", prop.ForAll(
		func(id string, amount int64, delta int64) bool {
			if delta == 0 {
				return true
			}
			doc := sampleDoc{ID: id, Amount: amount}
			env, err := svc.Sign(doc, "user_001", enums.SignerRoleUser)
			if err != nil {
				return false
			}
			doc.Amount = amount + delta
			return svc.Verify(doc, env) != nil
		},
		gen.AlphaString(),
		gen.Int64Range(-1<<40, 1<<40),
		gen.Int64Range(-1000, 1000),
	))

	properties.TestingRun(t)
}

func TestSignUsesInjectedClock(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := testService(t).WithClock(func() time.Time { return fixed })

	env, err := svc.Sign(sampleDoc{ID: "x"}, "user_001", enums.SignerRoleUser)
	require.NoError(t, err)
	assert.Equal(t, "2026-05-01T12:00:00Z", env.Timestamp)
}
