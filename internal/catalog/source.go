package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pricing-bot/pkg/api"

	"go.uber.org/zap"
)

// Source loads the full product list.
type Source interface {
	Load(ctx context.Context) ([]Product, error)
}

// Fingerprinter is implemented by sources that can tell cheaply whether
// their data changed since the last load.
type Fingerprinter interface {
	Fingerprint() (string, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context) ([]Product, error)

func (f SourceFunc) Load(ctx context.Context) ([]Product, error) {
	return f(ctx)
}

// FileSource reads a tab/space separated export or an .xlsx workbook.
type FileSource struct {
	path   string
	opts   Options
	logger *zap.Logger
}

func NewFileSource(path string, opts Options, logger *zap.Logger) *FileSource {
	return &FileSource{path: path, opts: opts, logger: logger}
}

func (s *FileSource) Load(ctx context.Context) ([]Product, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	var (
		products []Product
		issues   []Issue
	)
	if strings.EqualFold(filepath.Ext(s.path), ".xlsx") {
		products, issues, err = ParseXLSX(f, s.opts.Policy)
	} else {
		products, issues, err = ParseText(f, s.opts)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}

	logIssues(s.logger, s.path, issues)
	return products, nil
}

func (s *FileSource) Fingerprint() (string, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%d", info.ModTime().UnixNano(), info.Size()), nil
}

// APISource reads the catalog from the ERP HTTP API.
type APISource struct {
	client *api.Client
	policy Policy
	logger *zap.Logger
}

func NewAPISource(client *api.Client, policy Policy, logger *zap.Logger) *APISource {
	return &APISource{client: client, policy: policy, logger: logger}
}

func (s *APISource) Load(ctx context.Context) ([]Product, error) {
	items, err := s.client.GetProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.SKU, it.Name, it.Brand, string(it.StockQuantity), string(it.UnitCost)})
	}

	products, issues, err := collectRows(rows, 0, positional, s.policy)
	if err != nil {
		return nil, err
	}

	logIssues(s.logger, "erp api", issues)
	return products, nil
}

func logIssues(logger *zap.Logger, source string, issues []Issue) {
	for _, is := range issues {
		logger.Warn("Catalog row coerced",
			zap.String("source", source),
			zap.Int("row", is.Row),
			zap.String("column", is.Column),
			zap.String("value", is.Value),
			zap.String("reason", is.Reason))
	}
}
