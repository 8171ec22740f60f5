package ecommerce

import (
	"errors"
	"time"
)

// Errors for marketplace configuration
var (
	ErrMarketplaceConfigMissingBaseURL = errors.New("marketplace: base URL is required")
	ErrMarketplaceConfigMissingToken   = errors.New("marketplace: API token is required")
)

// MarketplaceConfig holds configuration for the marketplace REST API
type MarketplaceConfig struct {
	// Code tags ingested orders with their source
	Code    string
	BaseURL string
	Token   string

	InventoryPath string
	OrdersPath    string
	PushPath      string

	Timeout           time.Duration
	MaxRetries        int
	RetryInterval     time.Duration
	RequestsPerSecond float64
}

// Validate validates the configuration and fills defaults
func (c *MarketplaceConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrMarketplaceConfigMissingBaseURL
	}
	if c.Token == "" {
		return ErrMarketplaceConfigMissingToken
	}
	if c.Code == "" {
		c.Code = "marketplace"
	}
	if c.InventoryPath == "" {
		c.InventoryPath = "/inventory"
	}
	if c.OrdersPath == "" {
		c.OrdersPath = "/orders"
	}
	if c.PushPath == "" {
		c.PushPath = "/inventory/stock"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}
