package config

import (
	"fmt"
	"strings"
)

// StorageBackend selects where the session slice is persisted.
type StorageBackend string

const (
	// StorageBackendFile persists to a JSON file in the user config dir.
	StorageBackendFile StorageBackend = "file"
	// StorageBackendRedis persists to Redis (shared kiosk deployments).
	StorageBackendRedis StorageBackend = "redis"
	// StorageBackendMemory keeps the session in memory only.
	StorageBackendMemory StorageBackend = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for StorageBackend.
func (b *StorageBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch StorageBackend(v) {
	case StorageBackendFile, StorageBackendRedis, StorageBackendMemory:
		*b = StorageBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid StorageBackend: %q (valid options: file, redis, memory)", v)
	}
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend StorageBackend `env:"BACKEND" envDefault:"file"`

	// Path overrides the session file location for the file backend.
	// Empty means <user-config-dir>/hrdesk/session.json.
	Path string `env:"PATH"`
}

// Sanitize normalises the storage configuration.
func (c *StorageConfig) Sanitize() {
	if c.Backend == "" {
		c.Backend = StorageBackendFile
	}
	c.Path = strings.TrimSpace(c.Path)
}

// RedisConfig contains Redis connection settings for the redis backend.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`

	// KeyPrefix namespaces the session key so multiple clients can share
	// one Redis instance.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"hrdesk"`
}
