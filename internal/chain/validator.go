package chain

import (
	"fmt"
	"time"

	"github.com/angelmondragon/ghostcart-backend/internal/mandate"
	"github.com/angelmondragon/ghostcart-backend/internal/signature"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
)

// Verifier is the slice of the signature service the validator needs.
type Verifier interface {
	Verify(doc any, env signature.Envelope) error
}

// Validator checks mandate chains. All methods are pure over their inputs
// and the supplied instant, so callers re-evaluate the full chain on every
// transaction attempt rather than trusting an earlier result.
type Validator struct {
	verifier Verifier
}

func NewValidator(verifier Verifier) (*Validator, error) {
	if verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}
	return &Validator{verifier: verifier}, nil
}

// ValidateImmediate checks the human-present chain: the cart itself carries
// the user's authorization.
func (v *Validator) ValidateImmediate(cart mandate.CartMandate, now time.Time) error {
	if err := cart.Validate(); err != nil {
		return err
	}
	if cart.Signature == nil {
		return pkgerrors.New(pkgerrors.CodeChain, "immediate cart must carry the user's signature")
	}
	if cart.Signature.SignerRole != enums.SignerRoleUser {
		return pkgerrors.New(pkgerrors.CodeChain,
			fmt.Sprintf("immediate cart signed by role %q, expected user", cart.Signature.SignerRole))
	}
	if err := v.verifier.Verify(cart.SigningPayload(), *cart.Signature); err != nil {
		return err
	}
	if cart.Expired(now) {
		return pkgerrors.New(pkgerrors.CodeExpired, "cart mandate has expired")
	}
	return nil
}

// ValidateDelegated checks the human-not-present chain: a user-signed intent
// pre-authorizes an agent-signed cart. The first failing predicate aborts.
func (v *Validator) ValidateDelegated(intent mandate.IntentMandate, cart mandate.CartMandate, now time.Time) error {
	if err := intent.Validate(); err != nil {
		return err
	}
	if err := cart.Validate(); err != nil {
		return err
	}

	if intent.Signature == nil {
		return pkgerrors.New(pkgerrors.CodeChain, "delegated intent must be signed by the user")
	}
	if intent.Signature.SignerRole != enums.SignerRoleUser {
		return pkgerrors.New(pkgerrors.CodeChain,
			fmt.Sprintf("intent signed by role %q, expected user", intent.Signature.SignerRole))
	}
	if intent.Signature.SignerIdentity != intent.UserID {
		return pkgerrors.New(pkgerrors.CodeChain, "intent signer does not match intent user")
	}
	if err := v.verifier.Verify(intent.SigningPayload(), *intent.Signature); err != nil {
		return err
	}
	if intent.Expired(now) {
		return pkgerrors.New(pkgerrors.CodeExpired, "intent mandate has expired")
	}

	if cart.References.IntentMandateID != intent.ID {
		return pkgerrors.New(pkgerrors.CodeChain,
			fmt.Sprintf("cart references intent %q, expected %q", cart.References.IntentMandateID, intent.ID))
	}
	if cart.Signature == nil {
		return pkgerrors.New(pkgerrors.CodeChain, "delegated cart must be signed by the agent")
	}
	if cart.Signature.SignerRole != enums.SignerRoleAgent {
		return pkgerrors.New(pkgerrors.CodeChain,
			fmt.Sprintf("delegated cart signed by role %q, expected agent", cart.Signature.SignerRole))
	}
	if err := v.verifier.Verify(cart.SigningPayload(), *cart.Signature); err != nil {
		return err
	}
	if cart.Expired(now) {
		return pkgerrors.New(pkgerrors.CodeExpired, "cart mandate has expired")
	}

	return checkConstraints(intent, cart)
}

// ValidatePayment checks the payment leg against its cart.
func (v *Validator) ValidatePayment(payment mandate.PaymentMandate, cart mandate.CartMandate) error {
	if err := payment.Validate(); err != nil {
		return err
	}
	if payment.References.CartMandateID != cart.ID {
		return pkgerrors.New(pkgerrors.CodeChain,
			fmt.Sprintf("payment references cart %q, expected %q", payment.References.CartMandateID, cart.ID))
	}
	if payment.AmountCents != cart.Total.GrandTotalCents {
		return pkgerrors.New(pkgerrors.CodeChain,
			fmt.Sprintf("payment amount %d does not equal cart total %d", payment.AmountCents, cart.Total.GrandTotalCents))
	}
	if payment.Signature == nil {
		return pkgerrors.New(pkgerrors.CodeChain, "payment mandate must be signed by the payment agent")
	}
	if payment.Signature.SignerRole != enums.SignerRolePaymentAgent {
		return pkgerrors.New(pkgerrors.CodeChain,
			fmt.Sprintf("payment signed by role %q, expected payment_agent", payment.Signature.SignerRole))
	}
	return v.verifier.Verify(payment.SigningPayload(), *payment.Signature)
}

// checkConstraints enforces the intent's spending and delivery limits on the
// cart. The grand total (not the sticker price) is what counts against the
// user's pre-authorized ceiling.
func checkConstraints(intent mandate.IntentMandate, cart mandate.CartMandate) error {
	if intent.MaxTotalCents > 0 && cart.Total.GrandTotalCents > intent.MaxTotalCents {
		return pkgerrors.New(pkgerrors.CodeConstraints,
			fmt.Sprintf("cart total %d exceeds authorized max %d", cart.Total.GrandTotalCents, intent.MaxTotalCents))
	}
	if intent.Constraints == nil {
		return nil
	}
	for _, item := range cart.Items {
		if item.UnitPriceCents > intent.Constraints.MaxPriceCents {
			return pkgerrors.New(pkgerrors.CodeConstraints,
				fmt.Sprintf("item %s price %d exceeds max price %d", item.ProductID, item.UnitPriceCents, intent.Constraints.MaxPriceCents))
		}
	}
	if cart.DeliveryEstimateDays > intent.Constraints.MaxDeliveryDays {
		return pkgerrors.New(pkgerrors.CodeConstraints,
			fmt.Sprintf("delivery estimate %d days exceeds max %d", cart.DeliveryEstimateDays, intent.Constraints.MaxDeliveryDays))
	}
	if cart.Total.Currency != intent.Constraints.Currency {
		return pkgerrors.New(pkgerrors.CodeConstraints,
			fmt.Sprintf("cart currency %q does not match intent currency %q", cart.Total.Currency, intent.Constraints.Currency))
	}
	return nil
}
