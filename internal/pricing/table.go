package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TierVersion names a revision of the Shopee bracket table.
type TierVersion string

const (
	// ShopeeTiersV1 is the earlier table: everything above 99.99 pays 26.
	ShopeeTiersV1 TierVersion = "v1"
	// ShopeeTiersV2 adds the 99.99-199.99 bracket. It is the default.
	ShopeeTiersV2 TierVersion = "v2"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ShopeeTiers returns a fresh copy of the bracket table for version.
func ShopeeTiers(version TierVersion) ([]FeeTier, error) {
	switch version {
	case ShopeeTiersV1:
		return []FeeTier{
			{UpTo: dec("79.99"), CommissionRate: dec("0.20"), ExtraFee: dec("4")},
			{UpTo: dec("99.99"), CommissionRate: dec("0.14"), ExtraFee: dec("16")},
			{CommissionRate: dec("0.14"), ExtraFee: dec("26"), Representative: true},
		}, nil
	case ShopeeTiersV2, "":
		return []FeeTier{
			{UpTo: dec("79.99"), CommissionRate: dec("0.20"), ExtraFee: dec("4")},
			{UpTo: dec("99.99"), CommissionRate: dec("0.14"), ExtraFee: dec("16")},
			{UpTo: dec("199.99"), CommissionRate: dec("0.14"), ExtraFee: dec("20"), Representative: true},
			{CommissionRate: dec("0.14"), ExtraFee: dec("26")},
		}, nil
	default:
		return nil, fmt.Errorf("unknown shopee tier version %q", version)
	}
}

// DefaultRules returns the channel table the store operates with.
func DefaultRules(version TierVersion) ([]ChannelRule, error) {
	tiers, err := ShopeeTiers(version)
	if err != nil {
		return nil, err
	}

	return []ChannelRule{
		{
			ID:             "loja",
			Name:           "Loja (venda direta)",
			Kind:           KindDirect,
			CommissionRate: dec("0.015"),
			StorageFeeRate: dec("0.018"),
		},
		{
			ID:             "mercado_livre",
			Name:           "Mercado Livre",
			Kind:           KindMercadoLivre,
			CommissionRate: dec("0.17"),
			Shipping:       FlatShipping(dec("23")),
			Listing: ListingFees{
				ClassicRate:      dec("0.12"),
				PremiumRate:      dec("0.17"),
				SmallTicketBelow: dec("79"),
				SmallTicketFee:   dec("6.75"),
			},
		},
		{
			ID:             "shopee",
			Name:           "Shopee",
			Kind:           KindShopee,
			CommissionRate: dec("0.14"),
			Tiers:          tiers,
		},
		{
			ID:             "amazon",
			Name:           "Amazon",
			Kind:           KindMarketplace,
			CommissionRate: dec("0.15"),
			Shipping:       FlatShipping(dec("23")),
		},
		{
			ID:             "magalu",
			Name:           "Magalu",
			Kind:           KindMarketplace,
			CommissionRate: dec("0.16"),
			Shipping:       FractionShipping(dec("0.05")),
		},
		{
			ID:             "americanas",
			Name:           "Americanas",
			Kind:           KindMarketplace,
			CommissionRate: dec("0.19"),
			Shipping:       FlatShipping(dec("23")),
		},
	}, nil
}

// OverrideShipping replaces the shipping fee of the channels named in fees.
// Values follow the spreadsheet convention read by LegacyShipping: 23 is a
// flat fee, 0.05 is 5% of the price.
func OverrideShipping(rules []ChannelRule, fees map[string]string) error {
	for id, raw := range fees {
		v, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("shipping for %q: invalid value %q", id, raw)
		}
		if v.IsNegative() {
			return fmt.Errorf("shipping for %q must not be negative: %s", id, v)
		}

		idx := -1
		for i := range rules {
			if normalizeChannelID(rules[i].ID) == normalizeChannelID(id) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return &NotFoundError{Channel: id}
		}
		if rules[idx].Kind == KindDirect {
			return fmt.Errorf("channel %q never charges shipping", rules[idx].ID)
		}
		rules[idx].Shipping = LegacyShipping(v)
	}
	return nil
}

// Table is a read-only lookup of channel rules.
type Table struct {
	rules map[string]ChannelRule
	order []string
}

func normalizeChannelID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func NewTable(rules ...ChannelRule) (*Table, error) {
	t := &Table{rules: make(map[string]ChannelRule, len(rules))}
	for _, r := range rules {
		id := normalizeChannelID(r.ID)
		if id == "" {
			return nil, fmt.Errorf("channel rule without id")
		}
		if _, dup := t.rules[id]; dup {
			return nil, fmt.Errorf("duplicate channel %q", id)
		}
		r.ID = id
		t.rules[id] = r.clone()
		t.order = append(t.order, id)
	}
	return t, nil
}

// DefaultTable builds the table from DefaultRules.
func DefaultTable(version TierVersion) (*Table, error) {
	rules, err := DefaultRules(version)
	if err != nil {
		return nil, err
	}
	return NewTable(rules...)
}

// Channels returns channel ids in table order.
func (t *Table) Channels() []string {
	return append([]string(nil), t.order...)
}

// Rule looks a channel up by id, case-insensitively.
func (t *Table) Rule(id string) (ChannelRule, error) {
	r, ok := t.rules[normalizeChannelID(id)]
	if !ok {
		return ChannelRule{}, &NotFoundError{Channel: id}
	}
	return r.clone(), nil
}
