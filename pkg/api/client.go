package api

// ERP CATALOG CLIENT

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// Field keeps a JSON scalar as text. ERP exports send stock and cost either as
// numbers or as formatted strings, and the catalog decides how to parse them.
// JSON numbers are rewritten with a decimal comma so that 1.250 stays 1,25 and
// is never taken for thousands grouping.
type Field string

func (f *Field) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch {
	case s == "null":
		*f = ""
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*f = Field(str)
	default:
		v, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("invalid number %s: %w", s, err)
		}
		*f = Field(strings.Replace(v.String(), ".", ",", 1))
	}
	return nil
}

type Product struct {
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	Brand         string `json:"brand"`
	StockQuantity Field  `json:"stock_quantity"`
	UnitCost      Field  `json:"unit_cost"`
}

func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *Client) GetProducts(ctx context.Context) ([]Product, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		fmt.Sprintf("%s/api/products", c.baseURL),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var products []Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	c.logger.Debug("Fetched ERP catalog",
		zap.Int("products", len(products)),
		zap.Duration("took", time.Since(start)))

	return products, nil
}
