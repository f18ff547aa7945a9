package config

import (
	"fmt"
	"net/url"
	"time"
)

// DatabaseConfig configures the postgres backed delegate. It is mounted
// below the root as Mountpoint when Enabled.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled" env:"DB_ENABLED"`
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"vfs"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	Schema   string `yaml:"schema" env:"DB_SCHEMA" env-default:"public"`

	Volume     string        `yaml:"volume" env:"DB_VOLUME" env-default:"default"`
	Mountpoint string        `yaml:"mountpoint" env:"DB_MOUNTPOINT" env-default:"db"`
	Workers    int           `yaml:"workers" env:"DB_WORKERS" env-default:"4"`
	QueueSize  int           `yaml:"queue_size" env:"DB_QUEUE_SIZE" env-default:"64"`
	ChunkSize  int64         `yaml:"chunk_size" env:"DB_CHUNK_SIZE" env-default:"4096"`
	CacheTTL   time.Duration `yaml:"cache_ttl" env:"DB_CACHE_TTL" env-default:"30s"`
}

func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}
