// Package config loads process configuration from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is the full service configuration.
type Config struct {
	Port string `env:"PORT,default=8080"`

	DB   DB
	JWT  JWT
	Log  Log
	HTTP HTTP

	// MigrateOnStart applies pending schema migrations before serving.
	MigrateOnStart bool `env:"MIGRATE_ON_START,default=true"`
}

// DB holds PostgreSQL connection settings.
type DB struct {
	Host     string `env:"DB_HOST,default=localhost"`
	Port     string `env:"DB_PORT,default=5432"`
	User     string `env:"DB_USER,default=postgres"`
	Password string `env:"DB_PASSWORD,default=postgres"`
	Name     string `env:"DB_NAME,default=workshops"`
	SSLMode  string `env:"DB_SSLMODE,default=disable"`
	MaxConns int32  `env:"DB_MAX_CONNS,default=20"`
	MinConns int32  `env:"DB_MIN_CONNS,default=2"`
}

// JWT holds bearer token settings.
type JWT struct {
	Secret string        `env:"JWT_SECRET,required"`
	TTL    time.Duration `env:"JWT_TTL,default=24h"`
	Issuer string        `env:"JWT_ISSUER,default=workshop-enrollment"`
}

// Log holds logger settings.
type Log struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=json"`
}

// HTTP holds router-level settings.
type HTTP struct {
	// CORSOrigins is a comma separated list of allowed origins.
	CORSOrigins   string        `env:"CORS_ORIGINS,default=*"`
	AuthRateLimit float64       `env:"AUTH_RATE_LIMIT,default=5"`
	AuthRateBurst int           `env:"AUTH_RATE_BURST,default=10"`
	ReadTimeout   time.Duration `env:"HTTP_READ_TIMEOUT,default=15s"`
	WriteTimeout  time.Duration `env:"HTTP_WRITE_TIMEOUT,default=15s"`
}

// Load reads .env (when present) and decodes the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DB.MinConns > c.DB.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DB.MinConns, c.DB.MaxConns)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}
	return nil
}

// DSN builds a libpq-compatible connection string.
func (d DB) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// URL builds a postgres:// connection URL with the given scheme.
func (d DB) URL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

// Origins splits CORSOrigins into a list.
func (h HTTP) Origins() []string {
	var out []string
	for _, o := range strings.Split(h.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
