package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/angelmondragon/ghostcart-backend/pkg/config"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
	"github.com/angelmondragon/ghostcart-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

// Square authorizes payments against the Square Payments API. The mandate
// token is passed through as the payment source; amounts stay in cents.
type Square struct {
	sdk        *sqclient.Client
	locationID string
	logg       *logger.Logger
}

func NewSquare(cfg config.ProcessorConfig, logg *logger.Logger) (*Square, error) {
	token := strings.TrimSpace(cfg.SquareToken)
	if token == "" {
		return nil, errors.New("square access token is required")
	}
	baseURL, ok := baseURLs[cfg.SquareEnv]
	if !ok {
		return nil, fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)
	}
	if strings.TrimSpace(cfg.SquareLocationID) == "" {
		return nil, errors.New("square location id is required")
	}
	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURL),
		sqoption.WithToken(token),
	)
	return &Square{
		sdk:        sdk,
		locationID: cfg.SquareLocationID,
		logg:       logg,
	}, nil
}

func (s *Square) Authorize(ctx context.Context, req AuthorizeRequest) (AuthorizeResult, error) {
	idempotencyKey := req.ReferenceID
	if idempotencyKey == "" {
		idempotencyKey = fmt.Sprintf("payment-%s", uuid.NewString())
	}

	currency := sq.Currency(req.Currency.String())
	paymentReq := &sq.CreatePaymentRequest{
		IdempotencyKey: idempotencyKey,
		LocationID:     ptrString(s.locationID),
		SourceID:       req.PaymentToken,
		AmountMoney: &sq.Money{
			Amount:   &req.AmountCents,
			Currency: &currency,
		},
	}
	if req.ReferenceID != "" {
		paymentReq.ReferenceID = ptrString(req.ReferenceID)
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"amount_cents": req.AmountCents,
			"reference_id": req.ReferenceID,
		}), "square payment requested")
	}

	resp, err := s.sdk.Payments.Create(ctx, paymentReq)
	if err != nil {
		return AuthorizeResult{}, s.mapError(err)
	}

	payment := resp.GetPayment()
	result := AuthorizeResult{ProcessedAt: time.Now().UTC()}
	switch stringValue(payment.GetStatus()) {
	case "APPROVED", "COMPLETED":
		result.Status = enums.TransactionStatusAuthorized
		result.AuthorizationCode = stringValue(payment.GetID())
	default:
		result.Status = enums.TransactionStatusDeclined
		result.DeclineReason = stringValue(payment.GetStatus())
	}
	return result, nil
}

func (s *Square) mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "square payment timed out")
	}
	var apiErr *sqcore.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 402 || apiErr.StatusCode == 400 {
			return pkgerrors.Wrap(pkgerrors.CodeDeclined, err, "square declined the payment")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "square payment failed")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "square payment failed")
}

func ptrString(v string) *string { return &v }

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
