package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ConfigurationError means the channel rates plus the target margin leave no
// room for a positive price.
type ConfigurationError struct {
	Channel string
	RateSum decimal.Decimal
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("pricing: channel %q cannot reach target margin: rates sum to %s (must be < 1)",
		e.Channel, e.RateSum.String())
}

// NotFoundError is returned for an unknown channel id.
type NotFoundError struct {
	Channel string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("pricing: channel %q not found", e.Channel)
}
