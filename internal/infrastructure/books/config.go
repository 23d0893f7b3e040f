package books

import (
	"errors"
	"time"
)

// Config contains configuration for the accounting system API
type Config struct {
	// BaseURL is the API root, e.g. https://books.example.com/api/v1
	BaseURL string
	// CompanyID scopes every request to one company file
	CompanyID string
	// Timeout bounds each HTTP request
	Timeout time.Duration
	// MaxRetries is the number of attempts for idempotent reads
	MaxRetries int
}

// Errors for configuration validation
var (
	ErrMissingBaseURL   = errors.New("books: missing base URL")
	ErrMissingCompanyID = errors.New("books: missing company ID")
)

// Validate validates the configuration and applies defaults
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	if c.CompanyID == "" {
		return ErrMissingCompanyID
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	return nil
}
