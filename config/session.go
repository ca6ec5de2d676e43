package config

import (
	"sort"
	"time"
)

// SessionConfig tunes the session lifecycle schedule. The defaults match
// the HR backend's token lifetime of one hour.
type SessionConfig struct {
	// StatusCheckInterval is how often the session is verified server-side.
	StatusCheckInterval time.Duration `env:"STATUS_CHECK_INTERVAL" envDefault:"5m"`

	// InactivityCheckInterval is how often idle time is evaluated.
	InactivityCheckInterval time.Duration `env:"INACTIVITY_CHECK_INTERVAL" envDefault:"1m"`

	// WarningCheckInterval is how often expiry warnings are evaluated.
	WarningCheckInterval time.Duration `env:"WARNING_CHECK_INTERVAL" envDefault:"30s"`

	// InactivityTimeout is the idle time after which the session ends.
	InactivityTimeout time.Duration `env:"INACTIVITY_TIMEOUT" envDefault:"30m"`

	// RefreshThreshold is the remaining token lifetime below which the
	// token is refreshed proactively.
	RefreshThreshold time.Duration `env:"REFRESH_THRESHOLD" envDefault:"10m"`

	// WarningThresholds are remaining-lifetime marks at which the user is
	// warned, each once per token.
	WarningThresholds []time.Duration `env:"WARNING_THRESHOLDS" envSeparator:";" envDefault:"10m;5m;2m"`
}

// Sanitize applies guardrails: positive intervals and thresholds sorted
// from largest to smallest.
func (c *SessionConfig) Sanitize() {
	if c.StatusCheckInterval <= 0 {
		c.StatusCheckInterval = 5 * time.Minute
	}
	if c.InactivityCheckInterval <= 0 {
		c.InactivityCheckInterval = time.Minute
	}
	if c.WarningCheckInterval <= 0 {
		c.WarningCheckInterval = 30 * time.Second
	}
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = 30 * time.Minute
	}
	if c.RefreshThreshold <= 0 {
		c.RefreshThreshold = 10 * time.Minute
	}

	thresholds := c.WarningThresholds[:0]
	for _, t := range c.WarningThresholds {
		if t > 0 {
			thresholds = append(thresholds, t)
		}
	}
	sort.Slice(thresholds, func(i, j int) bool { return thresholds[i] > thresholds[j] })
	c.WarningThresholds = thresholds
	if len(c.WarningThresholds) == 0 {
		c.WarningThresholds = []time.Duration{10 * time.Minute, 5 * time.Minute, 2 * time.Minute}
	}
}
