package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func testModel(t *testing.T) CostModel {
	t.Helper()
	m, err := NewCostModel(
		[]decimal.Decimal{dec("0.04"), dec("0.06")},
		dec("3000"), 600,
		dec("2"),
	)
	if err != nil {
		t.Fatalf("NewCostModel failed: %v", err)
	}
	return m
}

func testTable(t *testing.T) *Table {
	t.Helper()
	table, err := DefaultTable(ShopeeTiersV2)
	if err != nil {
		t.Fatalf("DefaultTable failed: %v", err)
	}
	return table
}

func mustRule(t *testing.T, table *Table, id string) ChannelRule {
	t.Helper()
	r, err := table.Rule(id)
	if err != nil {
		t.Fatalf("Rule(%q) failed: %v", id, err)
	}
	return r
}

func TestEvaluateBreakdown(t *testing.T) {
	model := testModel(t)
	rule := mustRule(t, testTable(t), "amazon")

	r := Evaluate(dec("40"), dec("100"), rule, model, Options{})

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"commission", r.Commission, "15"},
		{"shipping", r.Shipping, "23"},
		{"tax", r.Tax, "10"},
		{"storage", r.Storage, "0"},
		{"fixed", r.FixedCost, "5"},
		{"operational", r.Operational, "2"},
		{"total", r.TotalCost, "95"},
		{"profit", r.Profit, "5"},
		{"margin", r.MarginPercent, "5"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s: got %s, want %s", c.name, c.got, c.want)
		}
	}
}

func TestEvaluateDirectStoreHasNoShipping(t *testing.T) {
	rule := mustRule(t, testTable(t), "loja")
	rule.Shipping = FlatShipping(dec("23"))

	r := Evaluate(dec("10"), dec("100"), rule, testModel(t), Options{})
	if !r.Shipping.IsZero() {
		t.Fatalf("expected no shipping on direct store, got %s", r.Shipping)
	}
	if !r.Commission.Equal(dec("1.5")) {
		t.Errorf("commission: got %s, want 1.5", r.Commission)
	}
	if !r.Storage.Equal(dec("1.8")) {
		t.Errorf("storage: got %s, want 1.8", r.Storage)
	}
}

func TestEvaluateFractionShipping(t *testing.T) {
	rule := mustRule(t, testTable(t), "magalu")

	r := Evaluate(dec("10"), dec("200"), rule, testModel(t), Options{})
	if !r.Shipping.Equal(dec("10")) {
		t.Fatalf("shipping: got %s, want 10", r.Shipping)
	}
}

func TestEvaluateZeroPrice(t *testing.T) {
	table := testTable(t)
	model := testModel(t)

	for _, id := range table.Channels() {
		t.Run(id, func(t *testing.T) {
			r := Evaluate(dec("10"), decimal.Zero, mustRule(t, table, id), model, Options{})
			if !r.MarginPercent.IsZero() {
				t.Fatalf("expected zero margin, got %s", r.MarginPercent)
			}
		})
	}
}

func TestEvaluateNegativePriceHasZeroMargin(t *testing.T) {
	r := Evaluate(dec("10"), dec("-5"), mustRule(t, testTable(t), "amazon"), testModel(t), Options{})
	if !r.MarginPercent.IsZero() {
		t.Fatalf("expected zero margin, got %s", r.MarginPercent)
	}
}

func TestShopeeTiers(t *testing.T) {
	rule := mustRule(t, testTable(t), "shopee")
	model := testModel(t)

	tests := []struct {
		price string
		rate  string
		extra string
	}{
		{"10", "0.20", "4"},
		{"79.99", "0.20", "4"},
		{"80.00", "0.14", "16"},
		{"99.99", "0.14", "16"},
		{"100", "0.14", "20"},
		{"199.99", "0.14", "20"},
		{"200.00", "0.14", "26"},
		{"1000", "0.14", "26"},
	}

	for _, tc := range tests {
		t.Run(tc.price, func(t *testing.T) {
			price := dec(tc.price)
			r := Evaluate(dec("10"), price, rule, model, Options{})
			if want := price.Mul(dec(tc.rate)); !r.Commission.Equal(want) {
				t.Errorf("commission: got %s, want %s", r.Commission, want)
			}
			if !r.ExtraFee.Equal(dec(tc.extra)) {
				t.Errorf("extra fee: got %s, want %s", r.ExtraFee, tc.extra)
			}
			if !r.Shipping.IsZero() {
				t.Errorf("shipping: got %s, want 0", r.Shipping)
			}
		})
	}
}

func TestShopeeLegacyTiers(t *testing.T) {
	table, err := DefaultTable(ShopeeTiersV1)
	if err != nil {
		t.Fatalf("DefaultTable failed: %v", err)
	}
	r := Evaluate(dec("10"), dec("150"), mustRule(t, table, "shopee"), testModel(t), Options{})
	if !r.ExtraFee.Equal(dec("26")) {
		t.Fatalf("extra fee: got %s, want 26", r.ExtraFee)
	}
}

func TestMercadoLivreListingType(t *testing.T) {
	rule := mustRule(t, testTable(t), "mercado_livre")
	model := testModel(t)
	price := dec("78.00")

	tests := []struct {
		name    string
		listing ListingType
		rate    string
	}{
		{"classic", ListingClassic, "0.12"},
		{"premium", ListingPremium, "0.17"},
		{"default is premium", "", "0.17"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := Evaluate(dec("10"), price, rule, model, Options{Listing: tc.listing})
			if want := price.Mul(dec(tc.rate)); !r.Commission.Equal(want) {
				t.Errorf("commission: got %s, want %s", r.Commission, want)
			}
			if !r.ExtraFee.Equal(dec("6.75")) {
				t.Errorf("extra fee: got %s, want 6.75", r.ExtraFee)
			}
			if !r.Shipping.Equal(dec("23")) {
				t.Errorf("shipping: got %s, want 23", r.Shipping)
			}
		})
	}
}

func TestMercadoLivreNoSmallTicketFeeFrom79(t *testing.T) {
	rule := mustRule(t, testTable(t), "mercado_livre")
	r := Evaluate(dec("10"), dec("79"), rule, testModel(t), Options{})
	if !r.ExtraFee.IsZero() {
		t.Fatalf("extra fee: got %s, want 0", r.ExtraFee)
	}
}

func TestMinimumPriceRoundTrip(t *testing.T) {
	table := testTable(t)
	model := testModel(t)
	tolerance := dec("0.000000001")

	for _, id := range table.Channels() {
		rule := mustRule(t, table, id)
		if !rule.Exact() {
			continue
		}
		for _, m := range []string{"-10", "0", "15", "30", "50"} {
			t.Run(id+"/"+m, func(t *testing.T) {
				price, err := MinimumPrice(dec("37.5"), dec(m), rule, model)
				if err != nil {
					t.Fatalf("MinimumPrice failed: %v", err)
				}
				r := Evaluate(dec("37.5"), price, rule, model, Options{})
				if diff := r.MarginPercent.Sub(dec(m)).Abs(); diff.GreaterThan(tolerance) {
					t.Fatalf("margin %s at price %s, want %s", r.MarginPercent, price, m)
				}
			})
		}
	}
}

func TestMinimumPriceSeedForTieredChannels(t *testing.T) {
	table := testTable(t)
	model := testModel(t)

	for _, id := range []string{"mercado_livre", "shopee"} {
		rule := mustRule(t, table, id)
		if rule.Exact() {
			t.Fatalf("%s should not be exact", id)
		}
		price, err := MinimumPrice(dec("50"), dec("20"), rule, model)
		if err != nil {
			t.Fatalf("MinimumPrice(%s) failed: %v", id, err)
		}
		if !price.IsPositive() {
			t.Fatalf("%s: expected positive seed price, got %s", id, price)
		}
	}
}

func TestShopeeSeedUsesRepresentativeTier(t *testing.T) {
	model := testModel(t)
	tolerance := dec("0.000000001")

	tests := []struct {
		version TierVersion
		fee     string
	}{
		{ShopeeTiersV2, "20"},
		{ShopeeTiersV1, "26"},
	}

	for _, tc := range tests {
		t.Run(string(tc.version), func(t *testing.T) {
			table, err := DefaultTable(tc.version)
			if err != nil {
				t.Fatalf("DefaultTable failed: %v", err)
			}
			rule := mustRule(t, table, "shopee")

			price, err := MinimumPrice(dec("50"), dec("30"), rule, model)
			if err != nil {
				t.Fatalf("MinimumPrice failed: %v", err)
			}
			// (50 + 5 + 2 + fee) / (1 - 0.14 - 0.1 - 0.3)
			want := dec("57").Add(dec(tc.fee)).Div(dec("0.46"))
			if !price.Equal(want) {
				t.Fatalf("seed: got %s, want %s", price, want)
			}

			r := Evaluate(dec("50"), price, rule, model, Options{})
			if diff := r.MarginPercent.Sub(dec("30")).Abs(); diff.GreaterThan(tolerance) {
				t.Fatalf("seed inside the representative bracket should be exact, margin %s", r.MarginPercent)
			}
		})
	}
}

func TestMinimumPriceUnsatisfiable(t *testing.T) {
	rule := ChannelRule{
		ID:             "greedy",
		CommissionRate: dec("0.5"),
		StorageFeeRate: dec("0.2"),
	}
	model := CostModel{TaxRate: dec("0.2")}

	price, err := MinimumPrice(dec("10"), dec("20"), rule, model)
	if err == nil {
		t.Fatalf("expected configuration error, got price %s", price)
	}

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigurationError, got %T: %v", err, err)
	}
	if cfgErr.Channel != "greedy" {
		t.Errorf("channel: got %q", cfgErr.Channel)
	}
	if !cfgErr.RateSum.Equal(dec("1.1")) {
		t.Errorf("rate sum: got %s, want 1.1", cfgErr.RateSum)
	}
}

func TestMinimumPriceExactlyOneIsUnsatisfiable(t *testing.T) {
	rule := ChannelRule{ID: "edge", CommissionRate: dec("0.5")}
	_, err := MinimumPrice(dec("10"), dec("50"), rule, CostModel{})

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigurationError, got %v", err)
	}
}

func TestMarginIncreasesWithPrice(t *testing.T) {
	table := testTable(t)
	model := testModel(t)

	for _, id := range table.Channels() {
		rule := mustRule(t, table, id)
		if rule.Kind == KindShopee {
			// bracket changes raise the extra fee faster than the commission drops
			continue
		}
		t.Run(id, func(t *testing.T) {
			prev := Evaluate(dec("25"), dec("1"), rule, model, Options{}).MarginPercent
			for p := int64(2); p <= 600; p += 3 {
				cur := Evaluate(dec("25"), decimal.NewFromInt(p), rule, model, Options{}).MarginPercent
				if !cur.GreaterThan(prev) {
					t.Fatalf("margin not increasing at price %d: %s <= %s", p, cur, prev)
				}
				prev = cur
			}
		})
	}
}

func TestMarkupAndDiscount(t *testing.T) {
	if got := MarkupPrice(dec("10"), dec("40")); !got.Equal(dec("14")) {
		t.Errorf("MarkupPrice: got %s, want 14", got)
	}
	if got := DiscountedPrice(dec("200"), dec("15")); !got.Equal(dec("170")) {
		t.Errorf("DiscountedPrice: got %s, want 170", got)
	}
}

func TestEngineUnknownChannel(t *testing.T) {
	e := NewEngine(testTable(t), testModel(t))

	_, err := e.Evaluate(dec("10"), dec("100"), "ebay", Options{})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Evaluate: expected *NotFoundError, got %v", err)
	}

	_, err = e.MinimumPrice(dec("10"), dec("20"), "ebay")
	if !errors.As(err, &nf) {
		t.Fatalf("MinimumPrice: expected *NotFoundError, got %v", err)
	}
}

func TestEngineEvaluate(t *testing.T) {
	e := NewEngine(testTable(t), testModel(t))

	r, err := e.Evaluate(dec("40"), dec("100"), "Amazon", Options{})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if r.Channel != "amazon" {
		t.Errorf("channel: got %q", r.Channel)
	}
	if !r.Profit.Equal(dec("5")) {
		t.Errorf("profit: got %s, want 5", r.Profit)
	}
}
