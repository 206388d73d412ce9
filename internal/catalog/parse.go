package catalog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

type Separator string

const (
	SeparatorTab    Separator = "tab"
	SeparatorSpaces Separator = "spaces"
)

type Encoding string

const (
	EncodingAuto        Encoding = "auto"
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1252 Encoding = "windows-1252"
	EncodingLatin1      Encoding = "iso-8859-1"
)

// Policy decides what happens to numeric fields that do not parse.
type Policy int

const (
	// PolicyLenient replaces bad numbers with zero and records an Issue.
	PolicyLenient Policy = iota
	// PolicyStrict fails the whole load on the first bad number.
	PolicyStrict
)

type Options struct {
	Separator Separator
	Encoding  Encoding
	Policy    Policy
}

// Issue describes a field that was coerced or a row that was skipped.
type Issue struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (i Issue) String() string {
	if i.Column == "" {
		return fmt.Sprintf("row %d: %s", i.Row, i.Reason)
	}
	return fmt.Sprintf("row %d, %s=%q: %s", i.Row, i.Column, i.Value, i.Reason)
}

var (
	utf8BOM       = []byte{0xEF, 0xBB, 0xBF}
	spacesSplitRe = regexp.MustCompile(`\t+| {2,}`)
	thousandsRe   = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)
)

// ParseText reads a delimited catalog export.
func ParseText(r io.Reader, opts Options) ([]Product, []Issue, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read catalog: %w", err)
	}

	text, err := decode(raw, opts.Encoding)
	if err != nil {
		return nil, nil, err
	}

	var rows [][]string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		rows = append(rows, splitLine(strings.TrimRight(scanner.Text(), "\r"), opts.Separator))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan catalog: %w", err)
	}

	return parseRows(rows, opts.Policy)
}

func decode(raw []byte, enc Encoding) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	var dec *encoding.Decoder
	switch enc {
	case EncodingUTF8:
		return string(raw), nil
	case EncodingWindows1252:
		dec = charmap.Windows1252.NewDecoder()
	case EncodingLatin1:
		dec = charmap.ISO8859_1.NewDecoder()
	case EncodingAuto, "":
		if utf8.Valid(raw) {
			return string(raw), nil
		}
		dec = charmap.Windows1252.NewDecoder()
	default:
		return "", fmt.Errorf("unsupported catalog encoding %q", enc)
	}

	out, err := dec.Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode catalog as %s: %w", enc, err)
	}
	return string(out), nil
}

func splitLine(line string, sep Separator) []string {
	var fields []string
	if sep == SeparatorSpaces {
		fields = spacesSplitRe.Split(strings.TrimSpace(line), -1)
	} else {
		fields = strings.Split(line, "\t")
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

type columns struct {
	sku, name, brand, qty, cost int
}

// positional is the column order of the ERP stock report.
var positional = columns{sku: 0, name: 1, brand: 2, qty: 3, cost: 4}

var headerAliases = map[string][]string{
	"sku":   {"produto", "codigo", "cod", "sku", "id", "referencia"},
	"name":  {"descricao", "nome", "description", "name", "produto descricao"},
	"brand": {"subgrupo", "sub-grupo", "marca", "brand", "grupo"},
	"qty":   {"qtde", "qtd", "quantidade", "estoque", "saldo", "stock", "stock quantity", "quantity"},
	"cost":  {"custo medio", "custo med", "custo", "preco custo", "cost", "unit cost", "average cost"},
}

func normalizeHeader(s string) string {
	s = fold(s)
	s = strings.Trim(s, ".:")
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, ".", " ")
	return strings.Join(strings.Fields(s), " ")
}

// detectColumns maps header cells to columns. ok is false when the row does
// not look like a header.
func detectColumns(fields []string) (columns, bool) {
	c := columns{sku: -1, name: -1, brand: -1, qty: -1, cost: -1}
	matched := 0
	for i, f := range fields {
		h := normalizeHeader(f)
		for key, aliases := range headerAliases {
			for _, a := range aliases {
				if h != a {
					continue
				}
				slot := c.slot(key)
				if *slot == -1 {
					*slot = i
					matched++
				}
			}
		}
	}
	return c, matched >= 2
}

func (c *columns) slot(key string) *int {
	switch key {
	case "sku":
		return &c.sku
	case "name":
		return &c.name
	case "brand":
		return &c.brand
	case "qty":
		return &c.qty
	default:
		return &c.cost
	}
}

func cell(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return fields[idx]
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// parseRows turns table rows into products. The first non-blank row is used
// as a header when it names at least two known columns; otherwise columns are
// taken positionally.
func parseRows(rows [][]string, policy Policy) ([]Product, []Issue, error) {
	cols := positional
	start := 0
	for start < len(rows) && isBlank(rows[start]) {
		start++
	}
	if start < len(rows) {
		if c, ok := detectColumns(rows[start]); ok {
			if c.sku == -1 {
				return nil, nil, errors.New("catalog header has no product identifier column")
			}
			cols = c
			start++
		}
	}

	return collectRows(rows[start:], start, cols, policy)
}

// collectRows builds products from data rows. offset is the number of rows
// preceding rows[0] in the source, for issue row numbers.
func collectRows(rows [][]string, offset int, cols columns, policy Policy) ([]Product, []Issue, error) {
	var (
		products []Product
		issues   []Issue
		seen     = make(map[string]bool)
	)
	for i, fields := range rows {
		if isBlank(fields) {
			continue
		}
		rowNum := offset + i + 1

		p, rowIssues, err := buildProduct(rowNum,
			cell(fields, cols.sku), cell(fields, cols.name), cell(fields, cols.brand),
			cell(fields, cols.qty), cell(fields, cols.cost), policy)
		if err != nil {
			return nil, nil, err
		}
		issues = append(issues, rowIssues...)
		if p.SKU == "" {
			continue
		}
		if seen[p.SKU] {
			issues = append(issues, Issue{Row: rowNum, Column: "sku", Value: p.SKU, Reason: "duplicate sku, keeping first"})
			continue
		}
		seen[p.SKU] = true
		products = append(products, p)
	}

	return products, issues, nil
}

// buildProduct validates one row. A row without sku comes back with an empty
// SKU and an issue.
func buildProduct(row int, sku, name, brand, qty, cost string, policy Policy) (Product, []Issue, error) {
	var issues []Issue

	sku = strings.TrimSpace(sku)
	if sku == "" {
		return Product{}, []Issue{{Row: row, Reason: "missing product identifier, row skipped"}}, nil
	}

	p := Product{
		SKU:   sku,
		Name:  strings.TrimSpace(name),
		Brand: strings.TrimSpace(brand),
	}

	q, issue, err := coerceQuantity(row, qty, policy)
	if err != nil {
		return Product{}, nil, err
	}
	if issue != nil {
		issues = append(issues, *issue)
	}
	p.StockQuantity = q.IntPart()

	c, issue, err := coerce(row, "unit_cost", cost, policy)
	if err != nil {
		return Product{}, nil, err
	}
	if issue != nil {
		issues = append(issues, *issue)
	}
	p.UnitCost = c

	return p, issues, nil
}

func coerce(row int, column, raw string, policy Policy) (decimal.Decimal, *Issue, error) {
	v, err := ParseNumber(raw)
	switch {
	case err != nil:
		return reject(row, column, raw, err.Error(), policy)
	case v.IsNegative():
		return reject(row, column, raw, "negative value", policy)
	}
	return v, nil, nil
}

// coerceQuantity is coerce for stock counts, which must be whole units.
func coerceQuantity(row int, raw string, policy Policy) (decimal.Decimal, *Issue, error) {
	v, issue, err := coerce(row, "stock_quantity", raw, policy)
	if err != nil || issue != nil {
		return v, issue, err
	}
	if !v.IsInteger() {
		return reject(row, "stock_quantity", raw, "fractional quantity", policy)
	}
	return v, nil, nil
}

func reject(row int, column, raw, reason string, policy Policy) (decimal.Decimal, *Issue, error) {
	if policy == PolicyStrict {
		return decimal.Zero, nil, fmt.Errorf("catalog row %d: %s=%q: %s", row, column, raw, reason)
	}
	return decimal.Zero, &Issue{Row: row, Column: column, Value: raw, Reason: reason + ", using 0"}, nil
}

// ParseNumber reads "1.234,56", "1234.56" and "R$ 12,90" style numbers.
// Dots grouping digits in threes ("1.200", "12.500.000") are thousands
// separators, so "1.200" is 1200.
func ParseNumber(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return decimal.Zero, errors.New("empty value")
	}
	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case thousandsRe.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.New("not a number")
	}
	return v, nil
}
