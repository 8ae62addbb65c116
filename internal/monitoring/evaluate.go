package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/ghostcart-backend/internal/mandate"
	"github.com/angelmondragon/ghostcart-backend/internal/merchant"
	"github.com/angelmondragon/ghostcart-backend/pkg/db/models"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
)

// ConditionChecker is the slice of the merchant this package needs: find the
// current best offer for a query, project what a cart for it would cost, and
// assemble that cart once conditions hold.
type ConditionChecker interface {
	BestOffer(ctx context.Context, query string, maxPriceCents int64) (merchant.Offer, error)
	Quote(ctx context.Context, productID string, quantity int, queryForPricing string) (mandate.LineItem, mandate.Total, error)
	BuildCart(ctx context.Context, productID string, quantity int, intentID, queryForPricing string) (mandate.CartMandate, error)
}

// Evaluation is the outcome of one condition check against the current offer.
type Evaluation struct {
	Met                 bool
	ProductFound        bool
	Offer               merchant.Offer
	ProjectedTotalCents int64
	Reasons             []string
}

// Reason flattens the failing predicates into one observable string.
func (e Evaluation) Reason() string {
	if e.Met {
		return ""
	}
	if !e.ProductFound {
		return "product_not_found"
	}
	if len(e.Reasons) == 0 {
		return "conditions not met"
	}
	return strings.Join(e.Reasons, ", ")
}

// evaluate runs every purchase predicate against the cheapest current offer.
// The budget applies to the projected cart total, not the sticker price, so
// the offer is priced through the merchant's own quote math. All predicates
// are evaluated even after one fails; the caller wants the full reason list.
func evaluate(ctx context.Context, checker ConditionChecker, job models.MonitoringJob, constraints mandate.Constraints) (Evaluation, error) {
	offer, err := checker.BestOffer(ctx, job.ProductQuery, 0)
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
			return Evaluation{}, nil
		}
		return Evaluation{}, err
	}

	_, total, err := checker.Quote(ctx, offer.Product.ID, 1, job.ProductQuery)
	if err != nil {
		return Evaluation{}, err
	}

	ev := Evaluation{
		ProductFound:        true,
		Offer:               offer,
		ProjectedTotalCents: total.GrandTotalCents,
	}
	if total.GrandTotalCents > job.MaxTotalCents {
		ev.Reasons = append(ev.Reasons, fmt.Sprintf(
			"cart total %d exceeds max %d", total.GrandTotalCents, job.MaxTotalCents))
	}
	if offer.PriceCents > constraints.MaxPriceCents {
		ev.Reasons = append(ev.Reasons, fmt.Sprintf(
			"unit price %d exceeds max %d", offer.PriceCents, constraints.MaxPriceCents))
	}
	if offer.DeliveryEstimateDays > constraints.MaxDeliveryDays {
		ev.Reasons = append(ev.Reasons, fmt.Sprintf(
			"delivery %dd exceeds max %dd", offer.DeliveryEstimateDays, constraints.MaxDeliveryDays))
	}
	if offer.StockStatus != enums.StockStatusInStock {
		ev.Reasons = append(ev.Reasons, "out of stock")
	}
	ev.Met = len(ev.Reasons) == 0
	return ev, nil
}

// jobConstraints rehydrates the constraint snapshot taken at registration.
func jobConstraints(job models.MonitoringJob) (mandate.Constraints, error) {
	var c mandate.Constraints
	if err := json.Unmarshal(job.Constraints, &c); err != nil {
		return mandate.Constraints{}, pkgerrors.Wrap(pkgerrors.CodeStructural, err, "parsing job constraints")
	}
	return c, nil
}

// timedOut distinguishes a merchant that answered slowly from one that
// answered negatively.
func timedOut(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx.Err() == context.DeadlineExceeded {
		return true
	}
	return pkgerrors.CodeOf(err) == pkgerrors.CodeTimeout
}
