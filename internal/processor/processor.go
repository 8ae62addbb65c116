package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/ghostcart-backend/pkg/config"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	"github.com/angelmondragon/ghostcart-backend/pkg/logger"
)

// AuthorizeRequest is what the processor sees: a token and an amount, never
// product or merchant detail.
type AuthorizeRequest struct {
	PaymentToken    string
	AmountCents     int64
	Currency        enums.Currency
	ReferenceID     string
	HumanNotPresent bool
}

// AuthorizeResult reports the processor's decision. A decline is a result,
// not an error; errors are reserved for the processor being unreachable.
type AuthorizeResult struct {
	Status            enums.TransactionStatus
	AuthorizationCode string
	DeclineReason     string
	ProcessedAt       time.Time
}

// Authorizer is the payment-processor boundary.
type Authorizer interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (AuthorizeResult, error)
}

// New selects the processor backend from configuration.
func New(cfg config.ProcessorConfig, logg *logger.Logger) (Authorizer, error) {
	switch cfg.Kind {
	case "mock", "":
		return NewMock(cfg), nil
	case "square":
		return NewSquare(cfg, logg)
	default:
		return nil, fmt.Errorf("unknown processor kind %q", cfg.Kind)
	}
}
