package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"pricing-bot/internal/quote"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Cotacao"

var columns = []string{
	"Canal", "Preco lista", "Preco venda", "Comissao %", "Comissao", "Frete",
	"Imposto", "Armazenagem", "Taxa extra", "Custo fixo", "Operacional",
	"Custo total", "Lucro", "Margem %", "Exato", "Erro",
}

// headerRows is the number of rows above the channel table.
const headerRows = 6

func build(q quote.Quote, at time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	f.SetCellValue(sheetName, "A1", "SKU")
	f.SetCellValue(sheetName, "B1", q.Product.SKU)
	f.SetCellValue(sheetName, "A2", "Produto")
	f.SetCellValue(sheetName, "B2", q.Product.Name)
	f.SetCellValue(sheetName, "A3", "Custo")
	f.SetCellValue(sheetName, "B3", q.Cost.InexactFloat64())
	f.SetCellValue(sheetName, "A4", "Modo")
	f.SetCellValue(sheetName, "B4", describeMode(q))
	f.SetCellValue(sheetName, "A5", "Gerado em")
	f.SetCellValue(sheetName, "B5", at.Format("2006-01-02 15:04"))

	for col, header := range columns {
		cell, _ := excelize.CoordinatesToCellName(col+1, headerRows+1)
		f.SetCellValue(sheetName, cell, header)
	}

	for i, l := range q.Lines {
		row := headerRows + 2 + i
		values := lineValues(l)
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellStyle(sheetName, "A1", "A5", style)
	last, _ := excelize.CoordinatesToCellName(len(columns), headerRows+1)
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", headerRows+1), last, style)
	f.SetColWidth(sheetName, "A", "A", 22)

	return f, nil
}

func describeMode(q quote.Quote) string {
	var s string
	switch q.Mode {
	case quote.ModePrice:
		s = "preco " + q.Price.StringFixed(2)
	case quote.ModeMarkup:
		s = "markup " + q.Percent.String() + "%"
	default:
		s = "margem " + q.Percent.String() + "%"
	}
	if q.Discount.IsPositive() {
		s += ", desconto " + q.Discount.String() + "%"
	}
	return s
}

func lineValues(l quote.Line) []interface{} {
	if l.Err != nil {
		values := make([]interface{}, len(columns))
		values[0] = l.Name
		values[len(values)-1] = l.Err.Error()
		return values
	}

	r := l.Result
	return []interface{}{
		l.Name,
		money(l.ListPrice),
		money(r.Price),
		money(r.CommissionRate.Shift(2)),
		money(r.Commission),
		money(r.Shipping),
		money(r.Tax),
		money(r.Storage),
		money(r.ExtraFee),
		money(r.FixedCost),
		money(r.Operational),
		money(r.TotalCost),
		money(r.Profit),
		money(r.MarginPercent),
		l.Exact,
		"",
	}
}

func money(v decimal.Decimal) float64 {
	return v.Round(2).InexactFloat64()
}

// Write renders q as an xlsx workbook into w.
func Write(w io.Writer, q quote.Quote, at time.Time) error {
	f, err := build(q, at)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

// Save writes q under dir and returns the file path.
func Save(dir string, q quote.Quote, at time.Time) (string, error) {
	f, err := build(q, at)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	filename := fmt.Sprintf("cotacao_%s_%s.xlsx", safeName(q.Product.SKU), at.Format("20060102_150405"))
	path := filepath.Join(dir, filename)

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}
	return path, nil
}

func safeName(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return "produto"
	}
	return string(out)
}
