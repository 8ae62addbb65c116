package purchase

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/ghostcart-backend/internal/credentials"
	"github.com/angelmondragon/ghostcart-backend/internal/mandate"
	"github.com/angelmondragon/ghostcart-backend/internal/processor"
	"github.com/angelmondragon/ghostcart-backend/internal/signature"
	"github.com/angelmondragon/ghostcart-backend/internal/transactions"
	dbpkg "github.com/angelmondragon/ghostcart-backend/pkg/db"
	"github.com/angelmondragon/ghostcart-backend/pkg/db/models"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
	"github.com/angelmondragon/ghostcart-backend/pkg/logger"
	"github.com/angelmondragon/ghostcart-backend/pkg/outbox"
)

// PaymentAgentIdentity is the signer identity of the payment-processing role.
const PaymentAgentIdentity = "cp_processor"

// ChainValidator re-checks the mandate chain at execution time.
type ChainValidator interface {
	ValidateImmediate(cart mandate.CartMandate, now time.Time) error
	ValidateDelegated(intent mandate.IntentMandate, cart mandate.CartMandate, now time.Time) error
	ValidatePayment(payment mandate.PaymentMandate, cart mandate.CartMandate) error
}

// Signer produces the payment mandate's signature.
type Signer interface {
	Sign(doc any, identity string, role enums.SignerRole) (signature.Envelope, error)
}

// TransactionStore records purchase outcomes.
type TransactionStore interface {
	CreateTx(tx *gorm.DB, txn *models.Transaction) error
	HasAuthorizedForIntent(ctx context.Context, intentMandateID string) (bool, error)
}

// MandateStore persists the cart and payment documents of a completed chain.
type MandateStore interface {
	CreateTx(tx *gorm.DB, rec *models.MandateRecord) error
	LinkTransactionTx(tx *gorm.DB, transactionID string, mandateIDs ...string) error
}

// EventEmitter queues domain events inside the commit transaction.
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Input is one purchase attempt. Delegated attempts carry the signed intent;
// immediate attempts only the user-signed cart.
type Input struct {
	UserID       string
	Scenario     enums.Scenario
	Intent       *mandate.IntentMandate
	Cart         mandate.CartMandate
	HumanPresent bool
}

// Result is the committed outcome of a successful attempt.
type Result struct {
	Transaction *models.Transaction
	Payment     mandate.PaymentMandate
}

// OrchestratorParams wires the orchestrator.
type OrchestratorParams struct {
	Client      *dbpkg.Client
	Validator   ChainValidator
	Signer      Signer
	Credentials credentials.Provider
	Processor   processor.Authorizer
	Txns        TransactionStore
	Mandates    MandateStore
	Events      EventEmitter
	Logger      *logger.Logger
}

// Orchestrator sequences a purchase: re-validate the chain, fetch
// credentials, mint and sign the payment mandate, authorize with the
// processor, and commit the transaction record atomically.
type Orchestrator struct {
	client      *dbpkg.Client
	validator   ChainValidator
	signer      Signer
	credentials credentials.Provider
	processor   processor.Authorizer
	txns        TransactionStore
	mandates    MandateStore
	events      EventEmitter
	logg        *logger.Logger
	now         func() time.Time
}

func NewOrchestrator(params OrchestratorParams) (*Orchestrator, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if params.Validator == nil {
		return nil, fmt.Errorf("chain validator is required")
	}
	if params.Signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if params.Credentials == nil {
		return nil, fmt.Errorf("credentials provider is required")
	}
	if params.Processor == nil {
		return nil, fmt.Errorf("payment processor is required")
	}
	if params.Txns == nil {
		return nil, fmt.Errorf("transaction store is required")
	}
	if params.Mandates == nil {
		return nil, fmt.Errorf("mandate store is required")
	}
	return &Orchestrator{
		client:      params.Client,
		validator:   params.Validator,
		signer:      params.Signer,
		credentials: params.Credentials,
		processor:   params.Processor,
		txns:        params.Txns,
		mandates:    params.Mandates,
		events:      params.Events,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

// WithClock overrides the time source, for tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Execute runs one purchase attempt. The chain is re-validated from scratch
// here regardless of what the caller already checked: time has passed and
// documents may have been tampered with in between.
func (o *Orchestrator) Execute(ctx context.Context, input Input) (*Result, error) {
	now := o.now()

	switch input.Scenario {
	case enums.ScenarioDelegated:
		if input.Intent == nil {
			return nil, pkgerrors.New(pkgerrors.CodeChain, "delegated purchase requires an intent mandate")
		}
		if err := o.validator.ValidateDelegated(*input.Intent, input.Cart, now); err != nil {
			return nil, err
		}
		already, err := o.txns.HasAuthorizedForIntent(ctx, input.Intent.ID)
		if err != nil {
			return nil, err
		}
		if already {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "intent already has an authorized transaction")
		}
	case enums.ScenarioImmediate:
		if err := o.validator.ValidateImmediate(input.Cart, now); err != nil {
			return nil, err
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStructural, fmt.Sprintf("unknown scenario %q", input.Scenario))
	}

	method, err := o.credentials.DefaultMethod(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	payment, err := o.buildPayment(input, method, now)
	if err != nil {
		return nil, err
	}
	if err := o.validator.ValidatePayment(payment, input.Cart); err != nil {
		return nil, err
	}

	txnID := transactions.NewTransactionID()
	authResult, err := o.processor.Authorize(ctx, processor.AuthorizeRequest{
		PaymentToken:    method.Token,
		AmountCents:     payment.AmountCents,
		Currency:        payment.Currency,
		ReferenceID:     txnID,
		HumanNotPresent: payment.HumanNotPresent,
	})
	if err != nil {
		// Processor unreachable: nothing was recorded, safe to retry.
		return nil, err
	}

	txn := &models.Transaction{
		ID:               txnID,
		IntentMandateID:  payment.References.IntentMandateID,
		CartMandateID:    input.Cart.ID,
		PaymentMandateID: payment.ID,
		UserID:           input.UserID,
		Status:           authResult.Status,
		AmountCents:      payment.AmountCents,
		Currency:         payment.Currency,
		HumanPresent:     input.HumanPresent,
	}
	if authResult.AuthorizationCode != "" {
		txn.AuthorizationCode = &authResult.AuthorizationCode
	}
	if authResult.DeclineReason != "" {
		txn.DeclineReason = &authResult.DeclineReason
	}

	if err := o.commit(ctx, input, payment, txn); err != nil {
		return nil, err
	}

	if authResult.Status == enums.TransactionStatusDeclined {
		if o.logg != nil {
			o.logg.Warn(o.logg.WithFields(ctx, map[string]any{
				"transaction_id": txn.ID,
				"decline_reason": authResult.DeclineReason,
			}), "purchase declined by processor")
		}
		return nil, pkgerrors.New(pkgerrors.CodeDeclined,
			fmt.Sprintf("payment declined: %s", authResult.DeclineReason))
	}

	if o.logg != nil {
		o.logg.Info(o.logg.WithFields(ctx, map[string]any{
			"transaction_id": txn.ID,
			"amount_cents":   txn.AmountCents,
		}), "purchase authorized")
	}
	return &Result{Transaction: txn, Payment: payment}, nil
}

func (o *Orchestrator) buildPayment(input Input, method credentials.Method, now time.Time) (mandate.PaymentMandate, error) {
	refs := mandate.PaymentReferences{CartMandateID: input.Cart.ID}
	if input.Intent != nil {
		refs.IntentMandateID = input.Intent.ID
	}
	payment := mandate.PaymentMandate{
		ID:          mandate.NewPaymentID(),
		MandateType: enums.MandateTypePayment,
		References:  refs,
		AmountCents: input.Cart.Total.GrandTotalCents,
		Currency:    input.Cart.Total.Currency,
		Credentials: mandate.PaymentCredentials{
			PaymentToken:      method.Token,
			PaymentMethodType: method.Type,
			LastFourDigits:    method.LastFour,
			ExpirationMonth:   method.ExpiryMonth,
			ExpirationYear:    method.ExpiryYear,
		},
		HumanNotPresent: !input.HumanPresent,
		CreatedAt:       now.UTC(),
	}
	env, err := o.signer.Sign(payment.SigningPayload(), PaymentAgentIdentity, enums.SignerRolePaymentAgent)
	if err != nil {
		return mandate.PaymentMandate{}, err
	}
	payment.Signature = &env
	return payment, nil
}

// commit writes the cart and payment documents plus the transaction row in
// one database transaction. This is the only place a purchase becomes real.
func (o *Orchestrator) commit(ctx context.Context, input Input, payment mandate.PaymentMandate, txn *models.Transaction) error {
	cartRec, err := mandate.RecordFromCart(input.Cart, input.UserID, input.Scenario)
	if err != nil {
		return err
	}
	paymentRec, err := mandate.RecordFromPayment(payment, input.UserID, input.Scenario)
	if err != nil {
		return err
	}

	return o.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := o.mandates.CreateTx(tx, cartRec); err != nil {
			return err
		}
		if err := o.mandates.CreateTx(tx, paymentRec); err != nil {
			return err
		}
		if err := o.txns.CreateTx(tx, txn); err != nil {
			return err
		}
		linked := []string{input.Cart.ID, payment.ID}
		if input.Intent != nil {
			linked = append(linked, input.Intent.ID)
		}
		if err := o.mandates.LinkTransactionTx(tx, txn.ID, linked...); err != nil {
			return err
		}
		if o.events == nil {
			return nil
		}
		eventType := enums.EventPurchaseAuthorized
		if txn.Status == enums.TransactionStatusDeclined {
			eventType = enums.EventPurchaseDeclined
		}
		return o.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   txn.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: enums.SignerRolePaymentAgent.String()},
			Data: map[string]any{
				"transaction_id": txn.ID,
				"amount_cents":   txn.AmountCents,
				"status":         txn.Status,
			},
			Version: 1,
		})
	})
}
