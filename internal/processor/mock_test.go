package processor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ghostcart-backend/pkg/config"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
)

func TestDeclineTokensAlwaysDecline(t *testing.T) {
	m := NewMock(config.ProcessorConfig{})
	ctx := context.Background()

	cases := map[string]string{
		"tok_decline":         "insufficient_funds",
		"tok_decline_fraud":   "fraud_suspected",
		"tok_decline_expired": "card_expired",
		"tok_decline_invalid": "invalid_card",
	}
	for token, reason := range cases {
		res, err := m.Authorize(ctx, AuthorizeRequest{
			PaymentToken: token,
			AmountCents:  10000,
			Currency:     enums.CurrencyUSD,
		})
		require.NoError(t, err)
		assert.Equal(t, enums.TransactionStatusDeclined, res.Status)
		assert.Equal(t, reason, res.DeclineReason)
		assert.Empty(t, res.AuthorizationCode)
	}
}

func TestAuthorizationIsDeterministicPerTokenAndAmount(t *testing.T) {
	m := NewMock(config.ProcessorConfig{})
	ctx := context.Background()

	req := AuthorizeRequest{PaymentToken: "tok_visa_4242", AmountCents: 17500, Currency: enums.CurrencyUSD}
	first, err := m.Authorize(ctx, req)
	require.NoError(t, err)
	second, err := m.Authorize(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
}

func TestApprovalRateRoughlyNinetyPercent(t *testing.T) {
	m := NewMock(config.ProcessorConfig{})
	ctx := context.Background()

	approved := 0
	total := 500
	for i := 0; i < total; i++ {
		res, err := m.Authorize(ctx, AuthorizeRequest{
			PaymentToken: "tok_visa_4242",
			AmountCents:  int64(1000 + i),
			Currency:     enums.CurrencyUSD,
		})
		require.NoError(t, err)
		if res.Status == enums.TransactionStatusAuthorized {
			approved++
			assert.True(t, strings.HasPrefix(res.AuthorizationCode, "auth_"))
			assert.Len(t, res.AuthorizationCode, len("auth_")+12)
		}
	}
	rate := float64(approved) / float64(total)
	assert.Greater(t, rate, 0.8)
	assert.Less(t, rate, 1.0)
}

func TestAlwaysApproveSkipsDeclines(t *testing.T) {
	m := NewMock(config.ProcessorConfig{AlwaysApprove: true})
	ctx := context.Background()

	res, err := m.Authorize(ctx, AuthorizeRequest{
		PaymentToken: "tok_decline",
		AmountCents:  10000,
		Currency:     enums.CurrencyUSD,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusAuthorized, res.Status)
}

func TestAuthCodeVariesWithTime(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	current := base
	m := NewMock(config.ProcessorConfig{AlwaysApprove: true}).WithClock(func() time.Time { return current })
	ctx := context.Background()

	req := AuthorizeRequest{PaymentToken: "tok_visa_4242", AmountCents: 100, Currency: enums.CurrencyUSD}
	first, err := m.Authorize(ctx, req)
	require.NoError(t, err)

	current = base.Add(time.Second)
	second, err := m.Authorize(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.AuthorizationCode, second.AuthorizationCode)
}

func TestFactorySelectsBackend(t *testing.T) {
	p, err := New(config.ProcessorConfig{Kind: "mock"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Mock{}, p)

	_, err = New(config.ProcessorConfig{Kind: "square"}, nil)
	require.Error(t, err, "square without credentials must fail")

	_, err = New(config.ProcessorConfig{Kind: "stripe"}, nil)
	require.Error(t, err)
}
