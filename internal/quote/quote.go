package quote

import (
	"context"
	"errors"
	"fmt"

	"pricing-bot/internal/catalog"
	"pricing-bot/internal/pricing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Mode selects how the per-channel price is obtained.
type Mode int

const (
	// ModeMargin solves each channel for the minimum price at a target margin.
	ModeMargin Mode = iota
	// ModePrice evaluates every channel at one fixed price.
	ModePrice
	// ModeMarkup prices the direct store by markup over cost and the
	// marketplaces by target margin, using the same percentage for both.
	ModeMarkup
)

func (m Mode) String() string {
	switch m {
	case ModePrice:
		return "price"
	case ModeMarkup:
		return "markup"
	default:
		return "margin"
	}
}

// marginTolerance is how far, in percentage points, a re-validated margin
// may drift from the target and still count as exact.
var marginTolerance = decimal.New(1, -6)

var ErrInvalidRequest = errors.New("invalid quote request")

type ProductFinder interface {
	Find(ctx context.Context, sku string) (catalog.Product, bool, error)
}

type Request struct {
	SKU string
	// Cost replaces the catalog unit cost when set.
	Cost     decimal.NullDecimal
	Listing  pricing.ListingType
	Mode     Mode
	Percent  decimal.Decimal
	Price    decimal.Decimal
	Discount decimal.Decimal
}

// Line is the outcome for one channel. Err is set instead of Result when the
// channel cannot reach the requested margin. Exact reports that ListPrice was
// derived without approximation; it is always false in ModePrice.
type Line struct {
	Channel   string
	Name      string
	ListPrice decimal.Decimal
	Result    pricing.Result
	Exact     bool
	Err       error
}

type Quote struct {
	Product  catalog.Product
	Cost     decimal.Decimal
	Mode     Mode
	Percent  decimal.Decimal
	Price    decimal.Decimal
	Discount decimal.Decimal
	Listing  pricing.ListingType
	Lines    []Line
}

type Service struct {
	engine   *pricing.Engine
	products ProductFinder
	logger   *zap.Logger
}

func NewService(engine *pricing.Engine, products ProductFinder, logger *zap.Logger) *Service {
	return &Service{
		engine:   engine,
		products: products,
		logger:   logger,
	}
}

func (s *Service) Engine() *pricing.Engine {
	return s.engine
}

// ForSKU looks the product up and quotes it on every channel.
// ok is false when the sku is not in the catalog.
func (s *Service) ForSKU(ctx context.Context, req Request) (q Quote, ok bool, err error) {
	p, found, err := s.products.Find(ctx, req.SKU)
	if err != nil {
		return Quote{}, false, fmt.Errorf("find product: %w", err)
	}
	if !found {
		return Quote{}, false, nil
	}

	q, err = s.ForProduct(p, req)
	if err != nil {
		return Quote{}, false, err
	}
	return q, true, nil
}

// ForProduct quotes p on every channel in table order.
func (s *Service) ForProduct(p catalog.Product, req Request) (Quote, error) {
	if err := validate(req); err != nil {
		return Quote{}, err
	}

	cost := p.UnitCost
	if req.Cost.Valid {
		cost = req.Cost.Decimal
	}

	q := Quote{
		Product:  p,
		Cost:     cost,
		Mode:     req.Mode,
		Percent:  req.Percent,
		Price:    req.Price,
		Discount: req.Discount,
		Listing:  req.Listing,
	}

	opts := pricing.Options{Listing: req.Listing}
	for _, id := range s.engine.ListChannels() {
		rule, err := s.engine.Rule(id)
		if err != nil {
			return Quote{}, err
		}
		q.Lines = append(q.Lines, s.line(rule, cost, req, opts))
	}

	return q, nil
}

func (s *Service) line(rule pricing.ChannelRule, cost decimal.Decimal, req Request, opts pricing.Options) Line {
	model := s.engine.CostModel()
	l := Line{Channel: rule.ID, Name: rule.Name}

	switch {
	case req.Mode == ModePrice:
		l.ListPrice = req.Price
	case req.Mode == ModeMarkup && rule.Kind == pricing.KindDirect:
		l.ListPrice = pricing.MarkupPrice(cost, req.Percent)
		l.Exact = true
	default:
		seed, err := pricing.MinimumPrice(cost, req.Percent, rule, model)
		if err != nil {
			s.logger.Debug("Channel cannot reach margin",
				zap.String("channel", rule.ID),
				zap.String("margin", req.Percent.String()),
				zap.Error(err))
			l.Err = err
			return l
		}
		l.ListPrice = seed

		check := pricing.Evaluate(cost, seed, rule, model, opts)
		l.Exact = check.MarginPercent.Sub(req.Percent).Abs().LessThanOrEqual(marginTolerance)
	}

	price := l.ListPrice
	if req.Discount.IsPositive() {
		price = pricing.DiscountedPrice(price, req.Discount)
	}
	l.Result = pricing.Evaluate(cost, price, rule, model, opts)

	return l
}

func validate(req Request) error {
	if req.Cost.Valid && req.Cost.Decimal.IsNegative() {
		return fmt.Errorf("%w: negative cost", ErrInvalidRequest)
	}
	if req.Discount.IsNegative() || req.Discount.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: discount must be in [0, 100)", ErrInvalidRequest)
	}
	if req.Mode == ModeMarkup && req.Percent.IsNegative() {
		return fmt.Errorf("%w: negative markup", ErrInvalidRequest)
	}
	return nil
}

// Best returns the line with the highest profit among those that resolved.
func (q Quote) Best() (Line, bool) {
	var (
		best  Line
		found bool
	)
	for _, l := range q.Lines {
		if l.Err != nil {
			continue
		}
		if !found || l.Result.Profit.GreaterThan(best.Result.Profit) {
			best = l
			found = true
		}
	}
	return best, found
}
