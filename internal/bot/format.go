package bot

import (
	"fmt"
	"strings"

	"pricing-bot/internal/catalog"
	"pricing-bot/internal/pricing"
	"pricing-bot/internal/quote"

	"github.com/shopspring/decimal"
)

// formatMoney renders v the Brazilian way: R$ 1.234,56.
func formatMoney(v decimal.Decimal) string {
	s := v.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	sign := ""
	if v.Round(2).IsNegative() {
		sign = "-"
	}
	return sign + "R$ " + b.String() + "," + frac
}

func formatPercent(v decimal.Decimal) string {
	return strings.Replace(v.Round(2).String(), ".", ",", 1) + "%"
}

func describeRequest(q quote.Quote) string {
	var s string
	switch q.Mode {
	case quote.ModePrice:
		s = "preço " + formatMoney(q.Price)
	case quote.ModeMarkup:
		s = "markup " + formatPercent(q.Percent) + " na loja, margem " + formatPercent(q.Percent) + " nos marketplaces"
	default:
		s = "margem alvo " + formatPercent(q.Percent)
	}
	if q.Discount.IsPositive() {
		s += ", desconto " + formatPercent(q.Discount)
	}
	return s + ", anúncio " + string(q.Listing)
}

func formatQuote(q quote.Quote) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📦 %s · %s\n", q.Product.SKU, q.Product.Name)
	if q.Product.Brand != "" {
		fmt.Fprintf(&b, "Marca: %s\n", q.Product.Brand)
	}
	fmt.Fprintf(&b, "Custo: %s · Estoque: %d\n", formatMoney(q.Cost), q.Product.StockQuantity)
	fmt.Fprintf(&b, "Modo: %s\n\n", describeRequest(q))

	for _, l := range q.Lines {
		if l.Err != nil {
			fmt.Fprintf(&b, "⚠️ %s: margem inatingível\n", l.Name)
			continue
		}

		r := l.Result
		fmt.Fprintf(&b, "%s: %s → lucro %s (%s)", l.Name, formatMoney(r.Price), formatMoney(r.Profit), formatPercent(r.MarginPercent))
		if q.Mode != quote.ModePrice && !l.Exact {
			b.WriteString(" ≈")
		}
		b.WriteByte('\n')
	}

	if best, ok := q.Best(); ok {
		fmt.Fprintf(&b, "\n🏆 Melhor canal: %s (%s)", best.Name, formatMoney(best.Result.Profit))
	}
	return b.String()
}

func formatBreakdown(r pricing.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Preço: %s\n", formatMoney(r.Price))
	fmt.Fprintf(&b, "Comissão (%s): %s\n", formatPercent(r.CommissionRate.Shift(2)), formatMoney(r.Commission))
	fmt.Fprintf(&b, "Frete: %s\n", formatMoney(r.Shipping))
	fmt.Fprintf(&b, "Impostos: %s\n", formatMoney(r.Tax))
	fmt.Fprintf(&b, "Armazenagem: %s\n", formatMoney(r.Storage))
	fmt.Fprintf(&b, "Taxa extra: %s\n", formatMoney(r.ExtraFee))
	fmt.Fprintf(&b, "Custo fixo: %s\n", formatMoney(r.FixedCost))
	fmt.Fprintf(&b, "Operacional: %s\n", formatMoney(r.Operational))
	fmt.Fprintf(&b, "Custo total: %s\n", formatMoney(r.TotalCost))
	fmt.Fprintf(&b, "Lucro: %s (%s)", formatMoney(r.Profit), formatPercent(r.MarginPercent))
	return b.String()
}

func formatChannel(rule pricing.ChannelRule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "• %s (%s)", rule.Name, rule.ID)

	switch rule.Kind {
	case pricing.KindMercadoLivre:
		fmt.Fprintf(&b, ": clássico %s, premium %s, taxa %s abaixo de %s",
			formatPercent(rule.Listing.ClassicRate.Shift(2)),
			formatPercent(rule.Listing.PremiumRate.Shift(2)),
			formatMoney(rule.Listing.SmallTicketFee),
			formatMoney(rule.Listing.SmallTicketBelow))
	case pricing.KindShopee:
		b.WriteString(": faixas")
		for _, t := range rule.Tiers {
			limit := "acima"
			if !t.UpTo.IsZero() {
				limit = "até " + formatMoney(t.UpTo)
			}
			fmt.Fprintf(&b, " [%s: %s + %s]", limit, formatPercent(t.CommissionRate.Shift(2)), formatMoney(t.ExtraFee))
		}
	default:
		fmt.Fprintf(&b, ": comissão %s", formatPercent(rule.CommissionRate.Shift(2)))
	}

	if rule.Kind != pricing.KindDirect {
		if rule.Shipping.Mode == pricing.ShippingFraction {
			fmt.Fprintf(&b, ", frete %s do preço", formatPercent(rule.Shipping.Value.Shift(2)))
		} else if rule.Shipping.Value.IsPositive() {
			fmt.Fprintf(&b, ", frete %s", formatMoney(rule.Shipping.Value))
		}
	}
	if rule.StorageFeeRate.IsPositive() {
		fmt.Fprintf(&b, ", armazenagem %s", formatPercent(rule.StorageFeeRate.Shift(2)))
	}
	return b.String()
}

func formatProducts(products []catalog.Product) string {
	var b strings.Builder
	for i, p := range products {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s · %s · %s · estoque %d", p.SKU, p.Name, formatMoney(p.UnitCost), p.StockQuantity)
	}
	return b.String()
}

// parseAmount reads a command argument in either Brazilian or plain notation.
func parseAmount(arg string) (decimal.Decimal, error) {
	arg = strings.TrimSuffix(strings.TrimSpace(arg), "%")
	if arg == "" {
		return decimal.Zero, fmt.Errorf("missing value")
	}
	return catalog.ParseNumber(arg)
}
