package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pricing-bot/internal/bot"
	"pricing-bot/internal/catalog"
	"pricing-bot/internal/config"
	"pricing-bot/internal/pricing"
	"pricing-bot/internal/quote"
	"pricing-bot/internal/storage"
	"pricing-bot/pkg/api"
	"pricing-bot/pkg/logger"
	"pricing-bot/pkg/redis"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	zapLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	model, err := newCostModel(cfg.Costs)
	if err != nil {
		zapLogger.Fatal("Invalid cost model", zap.Error(err))
	}

	table, err := newChannelTable(cfg.Channels)
	if err != nil {
		zapLogger.Fatal("Invalid channel table", zap.Error(err))
	}
	engine := pricing.NewEngine(table, model)

	zapLogger.Info("Pricing engine ready",
		zap.Strings("channels", engine.ListChannels()),
		zap.String("tax_rate", model.TaxRate.String()),
		zap.String("fixed_per_order", model.FixedCostPerOrder.String()),
		zap.String("shopee_tiers", cfg.Channels.ShopeeTiers))

	source, closeSource, err := newCatalogSource(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to init catalog source", zap.Error(err))
	}
	defer closeSource()

	products := catalog.New(source, zapLogger)
	if all, err := products.Products(ctx); err != nil {
		zapLogger.Warn("Catalog not loaded at startup, will retry on demand", zap.Error(err))
	} else {
		zapLogger.Info("Catalog loaded", zap.Int("products", len(all)))
	}

	redisClient := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx); err != nil {
		zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	tgBot, err := bot.New(
		cfg.TelegramToken,
		bot.NewStateStorage(redisClient, redisClient.TTL()),
		quote.NewService(engine, products, zapLogger),
		products,
		zapLogger,
		cfg,
	)
	if err != nil {
		zapLogger.Fatal("Failed to create bot", zap.Error(err))
	}

	if err := tgBot.Start(ctx); err != nil {
		zapLogger.Fatal("Bot stopped with error", zap.Error(err))
	}

	zapLogger.Info("Bot shutdown gracefully")
}

func newCostModel(cfg config.CostConfig) (pricing.CostModel, error) {
	taxes := make([]decimal.Decimal, 0, len(cfg.TaxRates))
	for _, r := range cfg.TaxRates {
		taxes = append(taxes, decimal.NewFromFloat(r))
	}
	return pricing.NewCostModel(
		taxes,
		decimal.NewFromFloat(cfg.MonthlyFixed),
		cfg.MonthlyOrders,
		decimal.NewFromFloat(cfg.OperationalPerOrder),
	)
}

func newChannelTable(cfg config.ChannelConfig) (*pricing.Table, error) {
	rules, err := pricing.DefaultRules(pricing.TierVersion(cfg.ShopeeTiers))
	if err != nil {
		return nil, err
	}
	if err := pricing.OverrideShipping(rules, cfg.Shipping); err != nil {
		return nil, err
	}
	return pricing.NewTable(rules...)
}

func newCatalogSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (catalog.Source, func(), error) {
	policy := catalog.PolicyLenient
	if cfg.Catalog.Strict {
		policy = catalog.PolicyStrict
	}

	switch cfg.Catalog.Source {
	case "postgres":
		pg, err := storage.NewPostgresStorage(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.Migrate {
			if err := storage.RunMigrations(ctx, pg.DB(), logger); err != nil {
				pg.Close()
				return nil, nil, err
			}
		}
		closeFn := func() {
			if err := pg.Close(); err != nil {
				logger.Warn("Failed to close PostgreSQL", zap.Error(err))
			}
		}
		return catalog.SourceFunc(pg.ListProducts), closeFn, nil

	case "erp":
		client := api.NewClient(cfg.ERP.BaseURL, cfg.ERP.APIKey, cfg.ERP.Timeout, logger)
		return catalog.NewAPISource(client, policy, logger), func() {}, nil

	default:
		opts := catalog.Options{
			Separator: catalog.Separator(cfg.Catalog.Separator),
			Encoding:  catalog.Encoding(cfg.Catalog.Encoding),
			Policy:    policy,
		}
		return catalog.NewFileSource(cfg.Catalog.Path, opts, logger), func() {}, nil
	}
}
