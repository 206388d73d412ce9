package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pricing-bot/internal/catalog"
	"pricing-bot/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStorage serves the product catalog from the products table.
// It never writes product rows.
type PostgresStorage struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func ConnString(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
	)
}

func NewPostgresStorage(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	const operation = "storage.NewPostgresStorage"

	var db *sqlx.DB

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to PostgreSQL...")

	err := backoff.RetryNotify(
		func() error {
			conn, err := sqlx.ConnectContext(ctx, "postgres", ConnString(cfg))
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			db = conn
			return nil
		},
		backoff.WithContext(retryPolicy, ctx),
		func(err error, duration time.Duration) {
			logger.Warn("PostgreSQL connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logger.Info("Successfully connected to PostgreSQL")
	return &PostgresStorage{db: db, logger: logger}, nil
}

// DB exposes the underlying handle for migrations.
func (s *PostgresStorage) DB() *sql.DB {
	return s.db.DB
}

const productColumns = `sku, name, COALESCE(brand, '') AS brand, stock_quantity, unit_cost`

// ListProducts returns the whole catalog ordered by sku.
func (s *PostgresStorage) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	const operation = "storage.ListProducts"

	query := `SELECT ` + productColumns + ` FROM products ORDER BY sku`

	var products []catalog.Product
	if err := s.db.SelectContext(ctx, &products, query); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return products, nil
}

func (s *PostgresStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
