package mandate

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/ghostcart-backend/internal/signature"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
)

// Constraints bound what a delegated agent may buy on the user's behalf.
type Constraints struct {
	MaxPriceCents   int64          `json:"max_price_cents"`
	MaxDeliveryDays int            `json:"max_delivery_days"`
	Currency        enums.Currency `json:"currency"`
}

func (c Constraints) Validate() error {
	if c.MaxPriceCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeStructural, "constraints max_price_cents must be positive")
	}
	if c.MaxDeliveryDays <= 0 || c.MaxDeliveryDays > 30 {
		return pkgerrors.New(pkgerrors.CodeStructural, "constraints max_delivery_days must be in 1..30")
	}
	if !c.Currency.IsValid() {
		return pkgerrors.New(pkgerrors.CodeStructural, fmt.Sprintf("unsupported currency %q", c.Currency))
	}
	return nil
}

// LineItem is a single product line in a cart.
type LineItem struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
}

func (l LineItem) Validate() error {
	if l.ProductID == "" {
		return pkgerrors.New(pkgerrors.CodeStructural, "line item product_id is required")
	}
	if l.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeStructural, "line item quantity must be positive")
	}
	if l.UnitPriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeStructural, "line item unit price cannot be negative")
	}
	if expected := int64(l.Quantity) * l.UnitPriceCents; l.LineTotalCents != expected {
		return pkgerrors.New(pkgerrors.CodeStructural,
			fmt.Sprintf("line total %d != quantity(%d) x unit price(%d)", l.LineTotalCents, l.Quantity, l.UnitPriceCents))
	}
	return nil
}

// Total is the cart amount breakdown. All amounts are integer minor units.
type Total struct {
	SubtotalCents   int64          `json:"subtotal_cents"`
	TaxCents        int64          `json:"tax_cents"`
	ShippingCents   int64          `json:"shipping_cents"`
	GrandTotalCents int64          `json:"grand_total_cents"`
	Currency        enums.Currency `json:"currency"`
}

func (t Total) Validate() error {
	if t.SubtotalCents < 0 || t.TaxCents < 0 || t.ShippingCents < 0 {
		return pkgerrors.New(pkgerrors.CodeStructural, "total components cannot be negative")
	}
	if expected := t.SubtotalCents + t.TaxCents + t.ShippingCents; t.GrandTotalCents != expected {
		return pkgerrors.New(pkgerrors.CodeStructural,
			fmt.Sprintf("grand total %d != subtotal+tax+shipping(%d)", t.GrandTotalCents, expected))
	}
	return nil
}

// MerchantInfo identifies the selling merchant.
type MerchantInfo struct {
	MerchantID   string `json:"merchant_id"`
	MerchantName string `json:"merchant_name"`
	MerchantURL  string `json:"merchant_url"`
}

// References links a cart back to the intent that authorized it.
type References struct {
	IntentMandateID string `json:"intent_mandate_id,omitempty"`
}

// PaymentReferences links a payment mandate to its cart and (for delegated
// flows) the originating intent.
type PaymentReferences struct {
	CartMandateID   string `json:"cart_mandate_id"`
	IntentMandateID string `json:"intent_mandate_id,omitempty"`
}

// PaymentCredentials carries tokenized payment data, never raw card numbers.
type PaymentCredentials struct {
	PaymentToken      string `json:"payment_token"`
	PaymentMethodType string `json:"payment_method_type"`
	LastFourDigits    string `json:"last_four_digits"`
	ExpirationMonth   int    `json:"expiration_month"`
	ExpirationYear    int    `json:"expiration_year"`
}

func (p PaymentCredentials) Validate() error {
	if !strings.HasPrefix(p.PaymentToken, "tok_") {
		return pkgerrors.New(pkgerrors.CodeStructural, "payment token must be tokenized (tok_ prefix)")
	}
	if len(p.LastFourDigits) != 4 {
		return pkgerrors.New(pkgerrors.CodeStructural, "last four digits must be exactly 4 characters")
	}
	if p.ExpirationMonth < 1 || p.ExpirationMonth > 12 {
		return pkgerrors.New(pkgerrors.CodeStructural, "credential expiration month out of range")
	}
	return nil
}

// IntentMandate captures what the user wants bought and under which limits.
// In the immediate flow the signature is optional context; in the delegated
// flow it is the user's pre-authorization and mandatory.
type IntentMandate struct {
	ID            string              `json:"mandate_id"`
	MandateType   enums.MandateType   `json:"mandate_type"`
	UserID        string              `json:"user_id"`
	Scenario      enums.Scenario      `json:"scenario"`
	ProductQuery  string              `json:"product_query"`
	Constraints   *Constraints        `json:"constraints,omitempty"`
	MaxTotalCents int64               `json:"max_total_cents,omitempty"`
	ExpiresAt     *time.Time          `json:"expires_at,omitempty"`
	Signature     *signature.Envelope `json:"signature,omitempty"`
}

func (m IntentMandate) Validate() error {
	if !strings.HasPrefix(m.ID, "intent_") {
		return pkgerrors.New(pkgerrors.CodeStructural, "intent mandate id must carry intent_ prefix")
	}
	if m.MandateType != enums.MandateTypeIntent {
		return pkgerrors.New(pkgerrors.CodeStructural, "mandate_type must be intent")
	}
	if m.UserID == "" {
		return pkgerrors.New(pkgerrors.CodeStructural, "intent user_id is required")
	}
	if !m.Scenario.IsValid() {
		return pkgerrors.New(pkgerrors.CodeStructural, fmt.Sprintf("unknown scenario %q", m.Scenario))
	}
	if strings.TrimSpace(m.ProductQuery) == "" {
		return pkgerrors.New(pkgerrors.CodeStructural, "intent product_query is required")
	}
	if m.Scenario == enums.ScenarioDelegated {
		if m.Constraints == nil {
			return pkgerrors.New(pkgerrors.CodeStructural, "delegated intent requires constraints")
		}
		if m.ExpiresAt == nil {
			return pkgerrors.New(pkgerrors.CodeStructural, "delegated intent requires an expiration")
		}
		if m.MaxTotalCents <= 0 {
			return pkgerrors.New(pkgerrors.CodeStructural, "delegated intent requires a positive max total")
		}
	}
	if m.Constraints != nil {
		if err := m.Constraints.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Expired reports whether the intent has passed its expiration at the given
// instant. Intents without an expiration never expire.
func (m IntentMandate) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && !now.Before(*m.ExpiresAt)
}

// SigningPayload returns the document covered by the signature: everything
// except the signature block itself.
func (m IntentMandate) SigningPayload() IntentMandate {
	m.Signature = nil
	return m
}

// CartMandate is the concrete offer: items, totals, merchant, and delivery.
type CartMandate struct {
	ID                   string              `json:"mandate_id"`
	MandateType          enums.MandateType   `json:"mandate_type"`
	Items                []LineItem          `json:"items"`
	Total                Total               `json:"total"`
	MerchantInfo         MerchantInfo        `json:"merchant_info"`
	DeliveryEstimateDays int                 `json:"delivery_estimate_days"`
	References           References          `json:"references"`
	ExpiresAt            *time.Time          `json:"expires_at,omitempty"`
	Signature            *signature.Envelope `json:"signature,omitempty"`
}

func (c CartMandate) Validate() error {
	if !strings.HasPrefix(c.ID, "cart_") {
		return pkgerrors.New(pkgerrors.CodeStructural, "cart mandate id must carry cart_ prefix")
	}
	if c.MandateType != enums.MandateTypeCart {
		return pkgerrors.New(pkgerrors.CodeStructural, "mandate_type must be cart")
	}
	if len(c.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeStructural, "cart requires at least one item")
	}
	var subtotal int64
	for _, item := range c.Items {
		if err := item.Validate(); err != nil {
			return err
		}
		subtotal += item.LineTotalCents
	}
	if err := c.Total.Validate(); err != nil {
		return err
	}
	if c.Total.SubtotalCents != subtotal {
		return pkgerrors.New(pkgerrors.CodeStructural,
			fmt.Sprintf("subtotal %d != sum of line items(%d)", c.Total.SubtotalCents, subtotal))
	}
	if c.MerchantInfo.MerchantID == "" {
		return pkgerrors.New(pkgerrors.CodeStructural, "cart merchant_id is required")
	}
	if c.DeliveryEstimateDays < 0 {
		return pkgerrors.New(pkgerrors.CodeStructural, "delivery estimate cannot be negative")
	}
	return nil
}

// Expired reports whether the cart offer has lapsed.
func (c CartMandate) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// SigningPayload returns the cart document without its signature block.
func (c CartMandate) SigningPayload() CartMandate {
	c.Signature = nil
	return c
}

// PaymentMandate authorizes moving money for a specific cart. Always signed
// by the payment-agent identity.
type PaymentMandate struct {
	ID              string              `json:"mandate_id"`
	MandateType     enums.MandateType   `json:"mandate_type"`
	References      PaymentReferences   `json:"references"`
	AmountCents     int64               `json:"amount_cents"`
	Currency        enums.Currency      `json:"currency"`
	Credentials     PaymentCredentials  `json:"payment_credentials"`
	HumanNotPresent bool                `json:"human_not_present"`
	CreatedAt       time.Time           `json:"timestamp"`
	Signature       *signature.Envelope `json:"signature,omitempty"`
}

func (p PaymentMandate) Validate() error {
	if !strings.HasPrefix(p.ID, "payment_") {
		return pkgerrors.New(pkgerrors.CodeStructural, "payment mandate id must carry payment_ prefix")
	}
	if p.MandateType != enums.MandateTypePayment {
		return pkgerrors.New(pkgerrors.CodeStructural, "mandate_type must be payment")
	}
	if p.References.CartMandateID == "" {
		return pkgerrors.New(pkgerrors.CodeStructural, "payment must reference a cart mandate")
	}
	if p.AmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeStructural, "payment amount must be positive")
	}
	if !p.Currency.IsValid() {
		return pkgerrors.New(pkgerrors.CodeStructural, fmt.Sprintf("unsupported currency %q", p.Currency))
	}
	return p.Credentials.Validate()
}

// SigningPayload returns the payment document without its signature block.
func (p PaymentMandate) SigningPayload() PaymentMandate {
	p.Signature = nil
	return p
}

// ID generators. Prefix identifies the document type at a glance; the suffix
// is opaque.

func NewIntentID() string {
	return "intent_" + idSuffix()
}

func NewCartID() string {
	return "cart_" + idSuffix()
}

func NewPaymentID() string {
	return "payment_" + idSuffix()
}

func idSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
