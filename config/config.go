package config

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - api.go: Backend API endpoint configuration
//   - session.go: Session lifecycle configuration
//   - storage.go: Session persistence backend configuration
//   - observability.go: Metrics configuration
type AppConfig struct {
	// Debug enables verbose logging.
	Debug bool `env:"DEBUG" envDefault:"false"`

	// API describes the HR backend endpoint.
	API APIConfig `envPrefix:"API_"`

	// Session configures the lifecycle schedule.
	Session SessionConfig `envPrefix:"SESSION_"`

	// Storage selects and configures the persistence backend.
	Storage StorageConfig `envPrefix:"STORAGE_"`
	Redis   RedisConfig   `envPrefix:"REDIS_"`

	// Observability configures metrics emission.
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.API.Sanitize()
	c.Session.Sanitize()
	c.Storage.Sanitize()
	c.Observability.Sanitize()
}
