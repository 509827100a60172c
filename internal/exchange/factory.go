package exchange

import (
	"fmt"

	"github.com/autocoin/futures-trader/internal/config"
)

// New constructs the exchange backend named in the configuration
func New(cfg config.ExchangeConfig, category string) (Exchange, error) {
	switch cfg.Name {
	case "bybit":
		return NewBybit(cfg, category), nil
	default:
		return nil, fmt.Errorf("unsupported exchange: %q", cfg.Name)
	}
}
