package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	TelegramToken string `env:"TELEGRAM_TOKEN,required,notEmpty"`
	BotDebug      bool   `env:"BOT_DEBUG" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	ReportsDir    string `env:"REPORTS_DIR" envDefault:"reports"`

	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Database DatabaseConfig `envPrefix:"DB_"`
	Catalog  CatalogConfig  `envPrefix:"CATALOG_"`
	ERP      ERPConfig      `envPrefix:"ERP_"`
	Costs    CostConfig     `envPrefix:"COST_"`
	Channels ChannelConfig  `envPrefix:"CHANNEL_"`
}

type RedisConfig struct {
	Addr     string        `env:"ADDR" envDefault:"localhost:6379"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	TTL      time.Duration `env:"TTL" envDefault:"24h"`
}

type DatabaseConfig struct {
	Host            string        `env:"HOST"`
	Port            int           `env:"PORT" envDefault:"5432"`
	User            string        `env:"USER"`
	Password        string        `env:"PASSWORD"`
	Name            string        `env:"NAME"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"2"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME" envDefault:"2m"`
	Migrate         bool          `env:"MIGRATE" envDefault:"true"`
}

type CatalogConfig struct {
	// Source is one of file, postgres, erp.
	Source    string `env:"SOURCE" envDefault:"file"`
	Path      string `env:"PATH" envDefault:"data/estoque.txt"`
	Separator string `env:"SEPARATOR" envDefault:"tab"`
	Encoding  string `env:"ENCODING" envDefault:"auto"`
	Strict    bool   `env:"STRICT" envDefault:"false"`
}

type ERPConfig struct {
	BaseURL string        `env:"BASE_URL"`
	APIKey  string        `env:"API_KEY"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

type CostConfig struct {
	// TaxRates are summed into the cost model tax rate.
	TaxRates            []float64 `env:"TAX_RATES" envSeparator:"," envDefault:"0.04,0.0065,0.03"`
	MonthlyFixed        float64   `env:"MONTHLY_FIXED" envDefault:"3000"`
	MonthlyOrders       int       `env:"MONTHLY_ORDERS" envDefault:"600"`
	OperationalPerOrder float64   `env:"OPERATIONAL_PER_ORDER" envDefault:"2"`
	DefaultMargin       float64   `env:"DEFAULT_MARGIN" envDefault:"30"`
}

type ChannelConfig struct {
	ShopeeTiers string `env:"SHOPEE_TIERS" envDefault:"v2"`
	// Shipping overrides per channel, e.g. "amazon:19.9,magalu:0.05".
	// Values >= 1 are flat fees, values < 1 a fraction of price.
	Shipping map[string]string `env:"SHIPPING"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Catalog.Source {
	case "file":
		if c.Catalog.Path == "" {
			return fmt.Errorf("CATALOG_PATH is required for the file catalog")
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
			return fmt.Errorf("DB_HOST, DB_USER and DB_NAME are required for the postgres catalog")
		}
	case "erp":
		if c.ERP.BaseURL == "" {
			return fmt.Errorf("ERP_BASE_URL is required for the erp catalog")
		}
	default:
		return fmt.Errorf("unknown catalog source %q", c.Catalog.Source)
	}

	switch c.Catalog.Separator {
	case "tab", "spaces":
	default:
		return fmt.Errorf("unknown catalog separator %q", c.Catalog.Separator)
	}

	switch c.Catalog.Encoding {
	case "auto", "utf-8", "windows-1252", "iso-8859-1":
	default:
		return fmt.Errorf("unknown catalog encoding %q", c.Catalog.Encoding)
	}

	switch c.Channels.ShopeeTiers {
	case "v1", "v2":
	default:
		return fmt.Errorf("unknown shopee tier table %q", c.Channels.ShopeeTiers)
	}

	if c.Costs.MonthlyOrders <= 0 {
		return fmt.Errorf("COST_MONTHLY_ORDERS must be positive")
	}

	return nil
}
