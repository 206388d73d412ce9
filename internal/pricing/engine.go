package pricing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Result is the full cost breakdown of selling at Price on one channel.
type Result struct {
	Channel        string
	Price          decimal.Decimal
	CommissionRate decimal.Decimal
	Commission     decimal.Decimal
	Shipping       decimal.Decimal
	Tax            decimal.Decimal
	Storage        decimal.Decimal
	ExtraFee       decimal.Decimal
	FixedCost      decimal.Decimal
	Operational    decimal.Decimal
	TotalCost      decimal.Decimal
	Profit         decimal.Decimal
	MarginPercent  decimal.Decimal
}

// Evaluate prices a sale of an item costing cost at price.
// A non-positive price yields a zero margin.
func Evaluate(cost, price decimal.Decimal, rule ChannelRule, model CostModel, opts Options) Result {
	fees := ResolveFees(rule, price, opts)

	r := Result{
		Channel:        rule.ID,
		Price:          price,
		CommissionRate: fees.CommissionRate,
		Commission:     fees.Commission,
		Shipping:       fees.Shipping,
		ExtraFee:       fees.ExtraFee,
		Tax:            price.Mul(model.TaxRate),
		Storage:        price.Mul(rule.StorageFeeRate),
		FixedCost:      model.FixedCostPerOrder,
		Operational:    model.OperationalCostPerOrder,
	}

	r.TotalCost = cost.
		Add(r.Commission).
		Add(r.Shipping).
		Add(r.Tax).
		Add(r.Storage).
		Add(r.FixedCost).
		Add(r.Operational).
		Add(r.ExtraFee)
	r.Profit = price.Sub(r.TotalCost)

	if price.IsPositive() {
		r.MarginPercent = r.Profit.Div(price).Mul(hundred)
	}
	return r
}

// MinimumPrice solves Evaluate for the price that yields targetMarginPercent.
// The solution is exact only when rule.Exact() holds; for tiered channels it
// is a seed to be checked with Evaluate.
func MinimumPrice(cost, targetMarginPercent decimal.Decimal, rule ChannelRule, model CostModel) (decimal.Decimal, error) {
	rate, flat := seedTerms(rule)

	rateSum := rate.Add(model.TaxRate).Add(targetMarginPercent.Div(hundred))
	denominator := decimal.NewFromInt(1).Sub(rateSum)
	if !denominator.IsPositive() {
		return decimal.Zero, &ConfigurationError{Channel: rule.ID, RateSum: rateSum}
	}

	numerator := cost.
		Add(model.FixedCostPerOrder).
		Add(model.OperationalCostPerOrder).
		Add(flat)
	return numerator.Div(denominator), nil
}

// MarkupPrice applies a plain markup over cost, the way the direct store
// quotes walk-in prices.
func MarkupPrice(cost, markupPercent decimal.Decimal) decimal.Decimal {
	return cost.Mul(decimal.NewFromInt(1).Add(markupPercent.Div(hundred)))
}

// DiscountedPrice applies a percentage discount to price.
func DiscountedPrice(price, discountPercent decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(1).Sub(discountPercent.Div(hundred)))
}

// Engine binds a channel table to a cost model.
type Engine struct {
	table *Table
	model CostModel
}

func NewEngine(table *Table, model CostModel) *Engine {
	return &Engine{table: table, model: model}
}

func (e *Engine) ListChannels() []string {
	return e.table.Channels()
}

func (e *Engine) CostModel() CostModel {
	return e.model
}

func (e *Engine) Rule(channelID string) (ChannelRule, error) {
	return e.table.Rule(channelID)
}

func (e *Engine) Evaluate(cost, price decimal.Decimal, channelID string, opts Options) (Result, error) {
	rule, err := e.table.Rule(channelID)
	if err != nil {
		return Result{}, err
	}
	return Evaluate(cost, price, rule, e.model, opts), nil
}

func (e *Engine) MinimumPrice(cost, targetMarginPercent decimal.Decimal, channelID string) (decimal.Decimal, error) {
	rule, err := e.table.Rule(channelID)
	if err != nil {
		return decimal.Zero, err
	}
	return MinimumPrice(cost, targetMarginPercent, rule, e.model)
}
