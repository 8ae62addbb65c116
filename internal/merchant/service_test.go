package merchant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ghostcart-backend/pkg/config"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
)

func testConfig() config.MerchantConfig {
	return config.MerchantConfig{
		ID:                "merchant_ghostcart_demo",
		Name:              "GhostCart Demo Store",
		TaxBasisPoints:    800,
		ShippingCents:     1000,
		PriceDropDelay:    30 * time.Second,
		CartValidityHours: 24,
	}
}

func TestSearchFiltersByQueryAndPrice(t *testing.T) {
	svc := NewService(testConfig(), nil)
	ctx := context.Background()

	results := svc.Search(ctx, "coffee", 0, "")
	require.Len(t, results, 1)
	assert.Equal(t, "prod_coffee_001", results[0].ID)

	results = svc.Search(ctx, "", 10000, "Kitchen")
	for _, p := range results {
		assert.LessOrEqual(t, p.PriceCents, int64(10000))
		assert.Equal(t, "Kitchen", p.Category)
	}

	results = svc.Search(ctx, "no such gadget", 0, "")
	assert.Empty(t, results)
}

func TestBestOfferPicksCheapestMatch(t *testing.T) {
	svc := NewService(testConfig(), nil)
	ctx := context.Background()

	offer, err := svc.BestOffer(ctx, "headphones", 0)
	require.NoError(t, err)
	// Both Sony headphones and AirPods mention noise canceling; only the
	// Sony product name contains "headphones".
	assert.Equal(t, "prod_headphones_001", offer.Product.ID)

	_, err = svc.BestOffer(ctx, "headphones", 1000)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestPriceDropAppliesAfterDelay(t *testing.T) {
	current := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(testConfig(), nil).WithClock(func() time.Time { return current })
	ctx := context.Background()

	svc.RegisterPriceDrop(ctx, "coffee maker", 5000)

	// Before the delay elapses the catalog price holds.
	offer, err := svc.BestOffer(ctx, "coffee maker", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(6900), offer.PriceCents)

	// The query only matches within budget after the drop applies.
	_, err = svc.BestOffer(ctx, "coffee maker", 5000)
	require.Error(t, err)

	current = current.Add(31 * time.Second)
	offer, err = svc.BestOffer(ctx, "coffee maker", 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), offer.PriceCents)
}

func TestQuoteComputesTaxAndShipping(t *testing.T) {
	svc := NewService(testConfig(), nil)
	ctx := context.Background()

	line, total, err := svc.Quote(ctx, "prod_coffee_001", 1, "")
	require.NoError(t, err)
	assert.Equal(t, int64(6900), line.LineTotalCents)
	assert.Equal(t, int64(6900), total.SubtotalCents)
	assert.Equal(t, int64(552), total.TaxCents, "8 percent of 6900")
	assert.Equal(t, int64(1000), total.ShippingCents)
	assert.Equal(t, int64(8452), total.GrandTotalCents)

	_, _, err = svc.Quote(ctx, "prod_coffee_001", 0, "")
	require.Error(t, err)

	_, _, err = svc.Quote(ctx, "prod_missing", 1, "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestTaxRoundingHalfUp(t *testing.T) {
	// 1 cent at 8 percent is 0.08 cents, rounds to 0; 7 cents is 0.56, rounds to 1.
	assert.Equal(t, int64(0), taxCents(1, 800))
	assert.Equal(t, int64(1), taxCents(7, 800))
	assert.Equal(t, int64(8), taxCents(100, 800))
}

func TestBuildCartIsStructurallyValid(t *testing.T) {
	svc := NewService(testConfig(), nil)
	ctx := context.Background()

	cart, err := svc.BuildCart(ctx, "prod_coffee_001", 2, "intent_abc", "coffee maker")
	require.NoError(t, err)
	require.NoError(t, cart.Validate())
	assert.Equal(t, "intent_abc", cart.References.IntentMandateID)
	assert.Equal(t, enums.MandateTypeCart, cart.MandateType)
	require.NotNil(t, cart.ExpiresAt)
	assert.True(t, cart.ExpiresAt.After(time.Now().Add(23*time.Hour)))
}
