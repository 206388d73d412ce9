package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind selects the fee function a channel uses.
type Kind int

const (
	// KindMarketplace resolves every fee straight from the rule table.
	KindMarketplace Kind = iota
	// KindDirect is the own store: table commission, never a shipping fee.
	KindDirect
	// KindMercadoLivre picks the commission by listing type and adds a small-ticket fee.
	KindMercadoLivre
	// KindShopee picks commission and extra fee by price bracket.
	KindShopee
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindMercadoLivre:
		return "mercado_livre"
	case KindShopee:
		return "shopee"
	default:
		return "marketplace"
	}
}

type ShippingMode int

const (
	ShippingFlat ShippingMode = iota
	ShippingFraction
)

// Shipping is either a flat currency amount or a fraction of the sale price.
type Shipping struct {
	Mode  ShippingMode
	Value decimal.Decimal
}

func FlatShipping(amount decimal.Decimal) Shipping {
	return Shipping{Mode: ShippingFlat, Value: amount}
}

func FractionShipping(rate decimal.Decimal) Shipping {
	return Shipping{Mode: ShippingFraction, Value: rate}
}

// LegacyShipping reads a fee written with the spreadsheet convention where
// values >= 1 are currency and values < 1 are a fraction of price.
// A flat fee below 1 cannot be expressed this way and comes back as a fraction.
func LegacyShipping(v decimal.Decimal) Shipping {
	if v.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return FlatShipping(v)
	}
	return FractionShipping(v)
}

// Amount returns the shipping charged at price.
func (s Shipping) Amount(price decimal.Decimal) decimal.Decimal {
	if s.Mode == ShippingFraction {
		return price.Mul(s.Value)
	}
	return s.Value
}

func (s Shipping) String() string {
	if s.Mode == ShippingFraction {
		return s.Value.Mul(decimal.NewFromInt(100)).String() + "%"
	}
	return s.Value.StringFixed(2)
}

// ListingType is the Mercado Livre listing tier chosen by the operator.
type ListingType string

const (
	ListingPremium ListingType = "premium"
	ListingClassic ListingType = "classic"
)

func ParseListingType(s string) (ListingType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "premium", "premio", "prêmio":
		return ListingPremium, nil
	case "classic", "classico", "clássico":
		return ListingClassic, nil
	default:
		return "", fmt.Errorf("unknown listing type %q", s)
	}
}

// ListingFees holds the Mercado Livre commission per listing type and the
// flat fee charged on sales below SmallTicketBelow.
type ListingFees struct {
	ClassicRate      decimal.Decimal
	PremiumRate      decimal.Decimal
	SmallTicketBelow decimal.Decimal
	SmallTicketFee   decimal.Decimal
}

// FeeTier applies to prices up to and including UpTo. A zero UpTo on the
// last tier means no upper bound. MinimumPrice seeds from the Representative
// tier's rate and fee.
type FeeTier struct {
	UpTo           decimal.Decimal
	CommissionRate decimal.Decimal
	ExtraFee       decimal.Decimal
	Representative bool
}

// ChannelRule is the fee structure of one sales channel.
type ChannelRule struct {
	ID   string
	Name string
	Kind Kind

	// CommissionRate is the table rate. For tiered channels it is the single
	// representative rate used by MinimumPrice.
	CommissionRate decimal.Decimal
	Shipping       Shipping
	StorageFeeRate decimal.Decimal
	ExtraFee       decimal.Decimal

	Listing ListingFees
	Tiers   []FeeTier
}

// Exact reports whether MinimumPrice solves the forward calculation exactly
// for this channel at every price.
func (r ChannelRule) Exact() bool {
	switch r.Kind {
	case KindMercadoLivre:
		return false
	case KindShopee:
		return len(r.Tiers) == 0
	default:
		return true
	}
}

func (r ChannelRule) clone() ChannelRule {
	if r.Tiers != nil {
		r.Tiers = append([]FeeTier(nil), r.Tiers...)
	}
	return r
}
