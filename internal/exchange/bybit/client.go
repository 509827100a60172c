package bybit

import (
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// demoBaseURL is Bybit's demo trading environment (paper fills, real feed)
const demoBaseURL = "https://api-demo.bybit.com"

// Config holds the connection settings for the Bybit client
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool
}

// Client wraps the Bybit v5 unified trading API for linear futures
type Client struct {
	httpClient *bybit_api.Client
	cfg        Config
	retry      RetryConfig
	breaker    *CircuitBreaker
}

// NewClient creates a Bybit client pointed at the configured environment
func NewClient(cfg Config) *Client {
	var baseURL string
	switch {
	case cfg.Demo:
		baseURL = demoBaseURL
	case cfg.Testnet:
		baseURL = bybit_api.TESTNET
	default:
		baseURL = bybit_api.MAINNET
	}

	httpClient := bybit_api.NewBybitHttpClient(
		cfg.APIKey,
		cfg.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		retry:      DefaultRetryConfig(),
		breaker:    NewCircuitBreaker(5, 30*time.Second),
	}
}

// Environment describes which Bybit environment the client talks to
func (c *Client) Environment() string {
	switch {
	case c.cfg.Demo:
		return "demo"
	case c.cfg.Testnet:
		return "testnet"
	default:
		return "mainnet"
	}
}
