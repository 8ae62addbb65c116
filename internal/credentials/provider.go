package credentials

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
)

// Method is a tokenized payment method. Raw card data never appears here.
type Method struct {
	Token          string `json:"token"`
	Type           string `json:"type"`
	LastFour       string `json:"last_four"`
	ExpiryMonth    int    `json:"expiry_month"`
	ExpiryYear     int    `json:"expiry_year"`
	CardholderName string `json:"cardholder_name"`
	BillingZip     string `json:"billing_zip"`
	IsDefault      bool   `json:"is_default"`
}

// Provider hands out tokenized payment methods for a user.
type Provider interface {
	Methods(ctx context.Context, userID string) ([]Method, error)
	DefaultMethod(ctx context.Context, userID string) (Method, error)
}

// StaticProvider is the demo wallet: a fixed per-user registry.
type StaticProvider struct {
	registry map[string][]Method
}

// NewStaticProvider builds the demo registry.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{registry: map[string][]Method{
		"user_demo_001": {
			{Token: "tok_visa_4242", Type: "visa", LastFour: "4242", ExpiryMonth: 12, ExpiryYear: 2027, CardholderName: "Jane Smith", BillingZip: "94102", IsDefault: true},
			{Token: "tok_mc_5555", Type: "mastercard", LastFour: "5555", ExpiryMonth: 8, ExpiryYear: 2026, CardholderName: "Jane Smith", BillingZip: "94102"},
		},
		"user_demo_002": {
			{Token: "tok_amex_3782", Type: "amex", LastFour: "3782", ExpiryMonth: 3, ExpiryYear: 2028, CardholderName: "Alex Johnson", BillingZip: "10001", IsDefault: true},
			{Token: "tok_visa_1111", Type: "visa", LastFour: "1111", ExpiryMonth: 6, ExpiryYear: 2025, CardholderName: "Alex Johnson", BillingZip: "10001"},
			{Token: "tok_mc_7777", Type: "mastercard", LastFour: "7777", ExpiryMonth: 11, ExpiryYear: 2027, CardholderName: "Alex Johnson", BillingZip: "10001"},
		},
		"user_demo_003": {
			{Token: "tok_visa_9999", Type: "visa", LastFour: "9999", ExpiryMonth: 4, ExpiryYear: 2026, CardholderName: "Chris Lee", BillingZip: "60601", IsDefault: true},
		},
	}}
}

// WithUser adds or replaces a user's wallet, for tests.
func (p *StaticProvider) WithUser(userID string, methods []Method) *StaticProvider {
	p.registry[userID] = methods
	return p
}

// Methods returns every tokenized method for the user.
func (p *StaticProvider) Methods(ctx context.Context, userID string) ([]Method, error) {
	methods, ok := p.registry[userID]
	if !ok || len(methods) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeCredentials, fmt.Sprintf("no payment methods available for user %s", userID))
	}
	return methods, nil
}

// DefaultMethod returns the user's default method, falling back to the first
// one when no default is flagged.
func (p *StaticProvider) DefaultMethod(ctx context.Context, userID string) (Method, error) {
	methods, err := p.Methods(ctx, userID)
	if err != nil {
		return Method{}, err
	}
	for _, m := range methods {
		if m.IsDefault {
			return m, nil
		}
	}
	return methods[0], nil
}
