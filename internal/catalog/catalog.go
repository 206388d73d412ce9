package catalog

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Catalog memoizes a Source. The product list is loaded on first use and
// reused until Invalidate is called or the source fingerprint changes.
type Catalog struct {
	source Source
	logger *zap.Logger

	mu          sync.Mutex
	loaded      bool
	fingerprint string
	products    []Product
	bySKU       map[string]int
}

func New(source Source, logger *zap.Logger) *Catalog {
	return &Catalog{source: source, logger: logger}
}

// Invalidate drops the cached products so the next call reloads them.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loaded = false
	c.products = nil
	c.bySKU = nil
}

// Products returns a copy of the current product list.
func (c *Catalog) Products(ctx context.Context) ([]Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return append([]Product(nil), c.products...), nil
}

// Find looks a product up by exact sku. ok is false when it is not in the
// catalog, including when the catalog is empty.
func (c *Catalog) Find(ctx context.Context, sku string) (p Product, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return Product{}, false, err
	}
	idx, ok := c.bySKU[strings.TrimSpace(sku)]
	if !ok {
		return Product{}, false, nil
	}
	return c.products[idx], true, nil
}

// Search matches query against sku, name and brand ignoring case and
// accents. limit <= 0 means no limit.
func (c *Catalog) Search(ctx context.Context, query string, limit int) ([]Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	q := fold(query)
	if q == "" {
		return nil, nil
	}

	var out []Product
	for _, p := range c.products {
		if !strings.Contains(fold(p.SKU), q) &&
			!strings.Contains(fold(p.Name), q) &&
			!strings.Contains(fold(p.Brand), q) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (c *Catalog) ensureLoaded(ctx context.Context) error {
	fp, hasFP := c.currentFingerprint()
	if c.loaded && (!hasFP || fp == c.fingerprint) {
		return nil
	}

	if c.loaded {
		c.logger.Info("Catalog source changed, reloading")
	}

	products, err := c.source.Load(ctx)
	if err != nil {
		return err
	}

	bySKU := make(map[string]int, len(products))
	for i, p := range products {
		if _, dup := bySKU[p.SKU]; !dup {
			bySKU[p.SKU] = i
		}
	}

	c.products = products
	c.bySKU = bySKU
	c.fingerprint = fp
	c.loaded = true

	c.logger.Info("Catalog loaded", zap.Int("products", len(products)))
	return nil
}

func (c *Catalog) currentFingerprint() (string, bool) {
	f, ok := c.source.(Fingerprinter)
	if !ok {
		return "", false
	}
	fp, err := f.Fingerprint()
	if err != nil {
		c.logger.Warn("Failed to fingerprint catalog source", zap.Error(err))
		return "", false
	}
	return fp, true
}
