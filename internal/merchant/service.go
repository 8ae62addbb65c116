package merchant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/ghostcart-backend/internal/mandate"
	"github.com/angelmondragon/ghostcart-backend/pkg/config"
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ghostcart-backend/pkg/errors"
	"github.com/angelmondragon/ghostcart-backend/pkg/logger"
)

// Offer is what a condition check sees: the current price and availability
// of the best catalog match for a query.
type Offer struct {
	Product              Product
	PriceCents           int64
	DeliveryEstimateDays int
	StockStatus          enums.StockStatus
}

type priceDrop struct {
	targetPriceCents int64
	activatedAt      time.Time
}

// Service is the demo merchant: an in-memory catalog with deterministic
// pricing and an optional scheduled price drop used to exercise the
// monitoring flow end to end.
type Service struct {
	cfg     config.MerchantConfig
	logg    *logger.Logger
	now     func() time.Time
	catalog []Product

	mu    sync.RWMutex
	drops map[string]priceDrop
}

func NewService(cfg config.MerchantConfig, logg *logger.Logger) *Service {
	return &Service{
		cfg:     cfg,
		logg:    logg,
		now:     time.Now,
		catalog: defaultCatalog,
		drops:   make(map[string]priceDrop),
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithCatalog swaps the inventory, for tests.
func (s *Service) WithCatalog(catalog []Product) *Service {
	s.catalog = catalog
	return s
}

// Info returns the merchant identity stamped onto carts.
func (s *Service) Info() mandate.MerchantInfo {
	return mandate.MerchantInfo{
		MerchantID:   s.cfg.ID,
		MerchantName: s.cfg.Name,
		MerchantURL:  "https://demo.ghostcart.com",
	}
}

// Search filters the catalog by free-text query, price ceiling, and
// category. Scheduled price drops apply before the price filter so a product
// can become a match once its price falls.
func (s *Service) Search(ctx context.Context, query string, maxPriceCents int64, category string) []Product {
	results := make([]Product, 0, len(s.catalog))
	for _, p := range s.catalog {
		if query != "" && !matchesQuery(p, query) {
			continue
		}
		p.PriceCents = s.effectivePrice(ctx, p, query)
		if maxPriceCents > 0 && p.PriceCents > maxPriceCents {
			continue
		}
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		results = append(results, p)
	}
	return results
}

// GetProduct returns a single product by ID at its current effective price.
func (s *Service) GetProduct(ctx context.Context, productID string) (Product, error) {
	for _, p := range s.catalog {
		if p.ID == productID {
			p.PriceCents = s.effectivePrice(ctx, p, p.Name)
			return p, nil
		}
	}
	return Product{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", productID))
}

// BestOffer is the condition-check entry point: the cheapest in-budget match
// for a query, or a not-found error when nothing qualifies.
func (s *Service) BestOffer(ctx context.Context, query string, maxPriceCents int64) (Offer, error) {
	matches := s.Search(ctx, query, maxPriceCents, "")
	if len(matches) == 0 {
		return Offer{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no product matches %q", query))
	}
	best := matches[0]
	for _, p := range matches[1:] {
		if p.PriceCents < best.PriceCents {
			best = p
		}
	}
	return Offer{
		Product:              best,
		PriceCents:           best.PriceCents,
		DeliveryEstimateDays: best.DeliveryEstimateDays,
		StockStatus:          best.StockStatus,
	}, nil
}

// RegisterPriceDrop schedules a demo price drop for products matching the
// query. The drop takes effect after the configured delay.
func (s *Service) RegisterPriceDrop(ctx context.Context, productQuery string, targetPriceCents int64) {
	s.mu.Lock()
	s.drops[strings.ToLower(productQuery)] = priceDrop{
		targetPriceCents: targetPriceCents,
		activatedAt:      s.now(),
	}
	s.mu.Unlock()
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"product_query": productQuery,
			"target_cents":  targetPriceCents,
			"delay":         s.cfg.PriceDropDelay.String(),
		}), "demo price drop registered")
	}
}

func (s *Service) effectivePrice(ctx context.Context, p Product, query string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.drops) == 0 {
		return p.PriceCents
	}
	queryLower := strings.ToLower(query)
	nameLower := strings.ToLower(p.Name)
	descLower := strings.ToLower(p.Description)
	for dropQuery, drop := range s.drops {
		if !strings.Contains(queryLower, dropQuery) &&
			!strings.Contains(nameLower, dropQuery) &&
			!strings.Contains(descLower, dropQuery) {
			continue
		}
		if s.now().Sub(drop.activatedAt) < s.cfg.PriceDropDelay {
			continue
		}
		if p.PriceCents > drop.targetPriceCents {
			return drop.targetPriceCents
		}
	}
	return p.PriceCents
}

// Quote prices a line for the product at its current effective price and
// computes the cart total breakdown: percentage tax on the subtotal plus a
// flat shipping fee.
func (s *Service) Quote(ctx context.Context, productID string, quantity int, queryForPricing string) (mandate.LineItem, mandate.Total, error) {
	if quantity <= 0 {
		return mandate.LineItem{}, mandate.Total{}, pkgerrors.New(pkgerrors.CodeStructural, "quantity must be positive")
	}
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return mandate.LineItem{}, mandate.Total{}, err
	}
	if queryForPricing != "" {
		product.PriceCents = s.effectivePrice(ctx, product, queryForPricing)
	}

	line := mandate.LineItem{
		ProductID:      product.ID,
		ProductName:    product.Name,
		Quantity:       quantity,
		UnitPriceCents: product.PriceCents,
		LineTotalCents: int64(quantity) * product.PriceCents,
	}

	subtotal := line.LineTotalCents
	tax := taxCents(subtotal, s.cfg.TaxBasisPoints)
	total := mandate.Total{
		SubtotalCents:   subtotal,
		TaxCents:        tax,
		ShippingCents:   s.cfg.ShippingCents,
		GrandTotalCents: subtotal + tax + s.cfg.ShippingCents,
		Currency:        enums.CurrencyUSD,
	}
	return line, total, nil
}

// BuildCart assembles an unsigned cart mandate around one quoted line.
func (s *Service) BuildCart(ctx context.Context, productID string, quantity int, intentID, queryForPricing string) (mandate.CartMandate, error) {
	line, total, err := s.Quote(ctx, productID, quantity, queryForPricing)
	if err != nil {
		return mandate.CartMandate{}, err
	}
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return mandate.CartMandate{}, err
	}
	expires := s.now().Add(time.Duration(s.cfg.CartValidityHours) * time.Hour)
	return mandate.CartMandate{
		ID:                   mandate.NewCartID(),
		MandateType:          enums.MandateTypeCart,
		Items:                []mandate.LineItem{line},
		Total:                total,
		MerchantInfo:         s.Info(),
		DeliveryEstimateDays: product.DeliveryEstimateDays,
		References:           mandate.References{IntentMandateID: intentID},
		ExpiresAt:            &expires,
	}, nil
}

// MaxUnitPriceCents inverts the quote math: the highest single-quantity unit
// price whose cart total still fits the given budget.
func (s *Service) MaxUnitPriceCents(budgetCents int64) int64 {
	if budgetCents <= s.cfg.ShippingCents {
		return 0
	}
	return decimal.NewFromInt(budgetCents - s.cfg.ShippingCents).
		Mul(decimal.NewFromInt(10000)).
		Div(decimal.NewFromInt(10000 + s.cfg.TaxBasisPoints)).
		Floor().
		IntPart()
}

// taxCents computes basis-point tax on a subtotal with half-up rounding.
func taxCents(subtotalCents int64, basisPoints int64) int64 {
	return decimal.NewFromInt(subtotalCents).
		Mul(decimal.NewFromInt(basisPoints)).
		Div(decimal.NewFromInt(10000)).
		Round(0).
		IntPart()
}

func matchesQuery(p Product, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Description), q)
}
