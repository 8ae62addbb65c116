package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/angelmondragon/ghostcart-backend/pkg/config"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
)

// declineTokens trigger specific decline scenarios for testing.
var declineTokens = map[string]string{
	"tok_decline":         "insufficient_funds",
	"tok_decline_fraud":   "fraud_suspected",
	"tok_decline_expired": "card_expired",
	"tok_decline_invalid": "invalid_card",
}

var softDeclineReasons = []string{"insufficient_funds", "do_not_honor", "generic_decline"}

// Mock simulates a payment processor: decline tokens behave predictably and
// everything else approves at roughly a 90% rate, deterministic per
// token+amount so tests can rely on outcomes.
type Mock struct {
	alwaysApprove bool
	now           func() time.Time
}

func NewMock(cfg config.ProcessorConfig) *Mock {
	return &Mock{
		alwaysApprove: cfg.AlwaysApprove,
		now:           time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (m *Mock) WithClock(now func() time.Time) *Mock {
	m.now = now
	return m
}

func (m *Mock) Authorize(ctx context.Context, req AuthorizeRequest) (AuthorizeResult, error) {
	processedAt := m.now().UTC()

	if !m.alwaysApprove {
		if reason, ok := declineTokens[req.PaymentToken]; ok {
			return AuthorizeResult{
				Status:        enums.TransactionStatusDeclined,
				DeclineReason: reason,
				ProcessedAt:   processedAt,
			}, nil
		}

		// Deterministic ~90% approval from a hash of token, amount, and
		// currency: decline only when the bucket lands on zero.
		hashValue := approvalHash(req.PaymentToken, req.AmountCents, req.Currency)
		if hashValue%10 == 0 {
			return AuthorizeResult{
				Status:        enums.TransactionStatusDeclined,
				DeclineReason: softDeclineReasons[hashValue%uint64(len(softDeclineReasons))],
				ProcessedAt:   processedAt,
			}, nil
		}
	}

	return AuthorizeResult{
		Status:            enums.TransactionStatusAuthorized,
		AuthorizationCode: authCode(req.PaymentToken, processedAt),
		ProcessedAt:       processedAt,
	}, nil
}

func approvalHash(token string, amountCents int64, currency enums.Currency) uint64 {
	input := token + ":" + strconv.FormatInt(amountCents, 10) + ":" + currency.String()
	sum := sha256.Sum256([]byte(input))
	value, _ := strconv.ParseUint(hex.EncodeToString(sum[:])[:8], 16, 64)
	return value
}

func authCode(token string, processedAt time.Time) string {
	sum := sha256.Sum256([]byte(token + ":" + processedAt.Format(time.RFC3339Nano)))
	return fmt.Sprintf("auth_%s", hex.EncodeToString(sum[:])[:12])
}
