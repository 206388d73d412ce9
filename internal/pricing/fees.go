package pricing

import "github.com/shopspring/decimal"

// Options carries per-request choices that change fee resolution.
type Options struct {
	Listing ListingType
}

// FeeBreakdown is the channel-dependent part of the cost at one price.
type FeeBreakdown struct {
	CommissionRate decimal.Decimal
	Commission     decimal.Decimal
	Shipping       decimal.Decimal
	ExtraFee       decimal.Decimal
}

// ResolveFees computes commission, shipping and extra fee for rule at price.
func ResolveFees(rule ChannelRule, price decimal.Decimal, opts Options) FeeBreakdown {
	switch rule.Kind {
	case KindDirect:
		return FeeBreakdown{
			CommissionRate: rule.CommissionRate,
			Commission:     price.Mul(rule.CommissionRate),
			Shipping:       decimal.Zero,
			ExtraFee:       rule.ExtraFee,
		}
	case KindMercadoLivre:
		return resolveMercadoLivre(rule, price, opts)
	case KindShopee:
		if len(rule.Tiers) > 0 {
			return resolveTiered(rule, price)
		}
	}

	return FeeBreakdown{
		CommissionRate: rule.CommissionRate,
		Commission:     price.Mul(rule.CommissionRate),
		Shipping:       rule.Shipping.Amount(price),
		ExtraFee:       rule.ExtraFee,
	}
}

func resolveMercadoLivre(rule ChannelRule, price decimal.Decimal, opts Options) FeeBreakdown {
	rate := rule.Listing.PremiumRate
	if opts.Listing == ListingClassic {
		rate = rule.Listing.ClassicRate
	}

	extra := rule.ExtraFee
	if price.LessThan(rule.Listing.SmallTicketBelow) {
		extra = extra.Add(rule.Listing.SmallTicketFee)
	}

	return FeeBreakdown{
		CommissionRate: rate,
		Commission:     price.Mul(rate),
		Shipping:       rule.Shipping.Amount(price),
		ExtraFee:       extra,
	}
}

func resolveTiered(rule ChannelRule, price decimal.Decimal) FeeBreakdown {
	tier := rule.Tiers[len(rule.Tiers)-1]
	for _, t := range rule.Tiers {
		if t.UpTo.IsZero() || price.LessThanOrEqual(t.UpTo) {
			tier = t
			break
		}
	}

	return FeeBreakdown{
		CommissionRate: tier.CommissionRate,
		Commission:     price.Mul(tier.CommissionRate),
		Shipping:       rule.Shipping.Amount(price),
		ExtraFee:       rule.ExtraFee.Add(tier.ExtraFee),
	}
}

// seedTerms returns the price-proportional rate and the flat amount the
// inverse formula works with. Tiered channels contribute their representative
// tier's rate and fee, or CommissionRate alone when no tier is marked.
func seedTerms(rule ChannelRule) (rate, flat decimal.Decimal) {
	commission := rule.CommissionRate
	flat = rule.ExtraFee

	if rule.Kind == KindShopee {
		for _, t := range rule.Tiers {
			if t.Representative {
				commission = t.CommissionRate
				flat = flat.Add(t.ExtraFee)
				break
			}
		}
	}

	rate = commission.Add(rule.StorageFeeRate)
	if rule.Kind == KindDirect {
		return rate, flat
	}

	if rule.Shipping.Mode == ShippingFraction {
		rate = rate.Add(rule.Shipping.Value)
	} else {
		flat = flat.Add(rule.Shipping.Value)
	}
	return rate, flat
}
