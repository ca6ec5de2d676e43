package config

import (
	"strings"
	"time"
)

// APIConfig describes the HR backend the client talks to.
type APIConfig struct {
	// BaseURL is the backend root; the auth endpoints hang off /auth.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080/api"`

	// Timeout bounds each request round-trip.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// Sanitize normalises the endpoint configuration.
func (c *APIConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}
