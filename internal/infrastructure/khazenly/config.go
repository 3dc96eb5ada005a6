// Package khazenly implements the outbound integration with the Khazenly
// logistics platform: OAuth token management, order payload construction and
// validation, order submission and status queries.
package khazenly

import (
	"errors"
	"strings"
	"time"
)

// API endpoint paths relative to the configured base URL.
const (
	tokenPath       = "/selfservice/services/oauth2/token"
	createOrderPath = "/services/apexrest/api/CreateOrder"
	orderStatusPath = "/services/apexrest/ExternalIntegrationWebService/orders/"
)

// Config holds configuration for the Khazenly API integration
type Config struct {
	// BaseURL is the Khazenly instance base URL (no trailing slash)
	BaseURL string
	// ClientID is the connected-app consumer key
	ClientID string
	// ClientSecret is the connected-app consumer secret
	ClientSecret string
	// RefreshToken is the long-lived OAuth refresh token
	RefreshToken string
	// StoreName is the store identifier registered with Khazenly
	StoreName string
	// OrderUserEmail is the integration user attributed on created orders
	OrderUserEmail string
	// TokenTimeout is the HTTP timeout for token requests
	TokenTimeout time.Duration
	// OrderTimeout is the HTTP timeout for order requests
	OrderTimeout time.Duration
}

// Errors for Khazenly configuration
var (
	ErrConfigMissingBaseURL      = errors.New("khazenly: base URL is required")
	ErrConfigMissingClientID     = errors.New("khazenly: client ID is required")
	ErrConfigMissingClientSecret = errors.New("khazenly: client secret is required")
	ErrConfigMissingRefreshToken = errors.New("khazenly: refresh token is required")
	ErrConfigMissingStoreName    = errors.New("khazenly: store name is required")
)

// NewConfig creates a new Khazenly configuration with default timeouts
func NewConfig(baseURL, clientID, clientSecret, refreshToken, storeName string) *Config {
	return &Config{
		BaseURL:      baseURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RefreshToken: refreshToken,
		StoreName:    storeName,
		TokenTimeout: 30 * time.Second,
		OrderTimeout: 60 * time.Second,
	}
}

// Validate validates the Khazenly configuration and normalizes defaults
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	if c.ClientID == "" {
		return ErrConfigMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrConfigMissingClientSecret
	}
	if c.RefreshToken == "" {
		return ErrConfigMissingRefreshToken
	}
	if c.StoreName == "" {
		return ErrConfigMissingStoreName
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.TokenTimeout <= 0 {
		c.TokenTimeout = 30 * time.Second
	}
	if c.OrderTimeout <= 0 {
		c.OrderTimeout = 60 * time.Second
	}
	return nil
}
