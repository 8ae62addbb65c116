package monitoring

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ghostcart-backend/internal/mandate"
	"github.com/angelmondragon/ghostcart-backend/internal/merchant"
	"github.com/angelmondragon/ghostcart-backend/pkg/db/models"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
)

func evalJob(t *testing.T, query string, maxTotalCents int64, c mandate.Constraints) (models.MonitoringJob, mandate.Constraints) {
	t.Helper()
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	return models.MonitoringJob{
		ID:              NewJobID(),
		IntentMandateID: mandate.NewIntentID(),
		UserID:          "user_demo_001",
		ProductQuery:    query,
		Constraints:     raw,
		MaxTotalCents:   maxTotalCents,
		Status:          enums.JobStatusActive,
	}, c
}

func TestEvaluateMetWhenAllPredicatesHold(t *testing.T) {
	shop := merchant.NewService(testMerchantConfig(), nil)
	job, constraints := evalJob(t, "desk lamp", 10000, mandate.Constraints{
		MaxPriceCents:   10000,
		MaxDeliveryDays: 3,
		Currency:        enums.CurrencyUSD,
	})

	ev, err := evaluate(context.Background(), shop, job, constraints)
	require.NoError(t, err)
	assert.True(t, ev.Met)
	assert.Equal(t, "prod_lamp_001", ev.Offer.Product.ID)
	// 4599 + 368 tax + 1000 shipping
	assert.Equal(t, int64(5967), ev.ProjectedTotalCents)
	assert.Empty(t, ev.Reason())
}

func TestEvaluateConcatenatesEveryFailingPredicate(t *testing.T) {
	shop := merchant.NewService(testMerchantConfig(), nil)
	job, constraints := evalJob(t, "air fryer", 10000, mandate.Constraints{
		MaxPriceCents:   10000,
		MaxDeliveryDays: 3,
		Currency:        enums.CurrencyUSD,
	})

	ev, err := evaluate(context.Background(), shop, job, constraints)
	require.NoError(t, err)
	assert.False(t, ev.Met)
	assert.True(t, ev.ProductFound)
	require.Len(t, ev.Reasons, 4)

	reason := ev.Reason()
	assert.Contains(t, reason, "cart total")
	assert.Contains(t, reason, "unit price")
	assert.Contains(t, reason, "delivery 5d exceeds max 3d")
	assert.Contains(t, reason, "out of stock")
}

func TestEvaluateReportsMissingProduct(t *testing.T) {
	shop := merchant.NewService(testMerchantConfig(), nil)
	job, constraints := evalJob(t, "unicorn saddle", 10000, mandate.Constraints{
		MaxPriceCents:   10000,
		MaxDeliveryDays: 3,
		Currency:        enums.CurrencyUSD,
	})

	ev, err := evaluate(context.Background(), shop, job, constraints)
	require.NoError(t, err)
	assert.False(t, ev.Met)
	assert.False(t, ev.ProductFound)
	assert.Equal(t, "product_not_found", ev.Reason())
}

func TestEvaluatePicksCheapestMatch(t *testing.T) {
	shop := merchant.NewService(testMerchantConfig(), nil)
	// "noise" matches both the AirPods and the Sony headphones; the cheaper
	// AirPods must win.
	job, constraints := evalJob(t, "noise", 30000, mandate.Constraints{
		MaxPriceCents:   30000,
		MaxDeliveryDays: 7,
		Currency:        enums.CurrencyUSD,
	})

	ev, err := evaluate(context.Background(), shop, job, constraints)
	require.NoError(t, err)
	assert.True(t, ev.Met)
	assert.Equal(t, "prod_airpods_001", ev.Offer.Product.ID)
}
