package catalog

import "github.com/shopspring/decimal"

// Product is one catalog line. The pricing code only reads it.
type Product struct {
	SKU           string          `db:"sku" json:"sku"`
	Name          string          `db:"name" json:"name"`
	Brand         string          `db:"brand" json:"brand,omitempty"`
	StockQuantity int64           `db:"stock_quantity" json:"stock_quantity"`
	UnitCost      decimal.Decimal `db:"unit_cost" json:"unit_cost"`
}
