package storage

import (
	"reflect"
	"sort"
	"strings"
	"testing"

	"pricing-bot/internal/catalog"

	"github.com/shopspring/decimal"
)

// selectedNames returns the result column names of productColumns.
func selectedNames(columns string) []string {
	var names []string
	for _, expr := range strings.Split(columns, ",") {
		expr = strings.TrimSpace(expr)
		if i := strings.LastIndex(strings.ToUpper(expr), " AS "); i >= 0 {
			expr = expr[i+len(" AS "):]
		}
		names = append(names, strings.TrimSpace(expr))
	}
	sort.Strings(names)
	return names
}

func TestProductColumnsMatchStruct(t *testing.T) {
	var tags []string
	typ := reflect.TypeOf(catalog.Product{})
	for i := 0; i < typ.NumField(); i++ {
		if tag := typ.Field(i).Tag.Get("db"); tag != "" {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)

	if got := selectedNames(productColumns); !reflect.DeepEqual(got, tags) {
		t.Fatalf("selected columns %v do not match Product db tags %v", got, tags)
	}
}

func TestProductColumnTypes(t *testing.T) {
	// lib/pq hands NUMERIC over as text and BIGINT as int64.
	var cost decimal.Decimal
	if err := cost.Scan([]byte("1250.4000")); err != nil {
		t.Fatalf("scan numeric: %v", err)
	}
	if !cost.Equal(decimal.RequireFromString("1250.4")) {
		t.Fatalf("cost: got %s", cost)
	}

	field, ok := reflect.TypeOf(catalog.Product{}).FieldByName("StockQuantity")
	if !ok || field.Type.Kind() != reflect.Int64 {
		t.Fatalf("stock_quantity must scan into int64, got %v", field.Type)
	}
}
