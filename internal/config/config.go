package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/maxviazov/contacts-service/internal/logger"
)

// Backend names accepted by contacts.backend.
const (
	BackendGraph    = "graph"
	BackendPostgres = "postgres"
)

type Config struct {
	App      AppConfig           `mapstructure:"app"`
	Logger   logger.LoggerConfig `mapstructure:"logger"`
	Auth     AuthConfig          `mapstructure:"auth"`
	Contacts ContactsConfig      `mapstructure:"contacts"`
	Graph    GraphConfig         `mapstructure:"graph"`
	Postgres PostgresConfig      `mapstructure:"postgres"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Version         string        `mapstructure:"version"`
	Env             string        `mapstructure:"env"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// SecureHeaders toggles the security headers middleware.
	SecureHeaders bool `mapstructure:"secure_headers"`
}

// AuthConfig points the re-authentication middleware at the external sign-in flow.
type AuthConfig struct {
	SignInURL string `mapstructure:"sign_in_url" validate:"omitempty,url"`
}

type ContactsConfig struct {
	Backend        string        `mapstructure:"backend" validate:"oneof=graph postgres"`
	PageSize       int           `mapstructure:"page_size" validate:"min=1,max=100"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// GraphConfig configures the Microsoft Graph contacts client.
// Either AccessToken or the TenantID/ClientID/ClientSecret triple must be set.
type GraphConfig struct {
	BaseURL      string   `mapstructure:"base_url" validate:"url"`
	TokenURL     string   `mapstructure:"token_url" validate:"omitempty,url"`
	TenantID     string   `mapstructure:"tenant_id"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	AccessToken  string   `mapstructure:"access_token"`
	Scopes       []string `mapstructure:"scopes"`
	// User selects the mailbox: "me" or a user id / principal name.
	User string `mapstructure:"user"`

	Timeout        time.Duration `mapstructure:"timeout"`
	RatePerSecond  float64       `mapstructure:"rate_per_second" validate:"gte=0"`
	RateBurst      int           `mapstructure:"rate_burst" validate:"gte=0"`
	MaxRetries     int           `mapstructure:"max_retries" validate:"gte=0"`
	RetryInitial   time.Duration `mapstructure:"retry_initial"`
	RetryMax       time.Duration `mapstructure:"retry_max"`
	BreakerTimeout time.Duration `mapstructure:"breaker_timeout"`
	BreakerRatio   float64       `mapstructure:"breaker_ratio" validate:"gte=0,lte=1"`
}

type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	DBName            string `mapstructure:"db"`
	SSLMode           string `mapstructure:"sslmode"`
	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   int    `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   int    `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod int    `mapstructure:"health_check_period"`
	// Migrate applies embedded migrations on startup.
	Migrate bool `mapstructure:"migrate"`
}

// Validate checks field formats and that the selected backend has its credentials.
func (c *Config) Validate() error {
	v := validator.New()
	for _, section := range []any{c.App, c.Auth, c.Contacts} {
		if err := v.Struct(section); err != nil {
			return fmt.Errorf("config validation error: %w", err)
		}
	}

	switch c.Contacts.Backend {
	case BackendGraph:
		if err := v.Struct(c.Graph); err != nil {
			return fmt.Errorf("graph config validation error: %w", err)
		}
		if c.Graph.AccessToken == "" && (c.Graph.TenantID == "" || c.Graph.ClientID == "" || c.Graph.ClientSecret == "") {
			return errors.New("graph: access_token or tenant_id, client_id and client_secret are required")
		}
		// app-only tokens have no signed-in user, so /me is rejected by Graph
		if c.Graph.AccessToken == "" && (c.Graph.User == "" || strings.EqualFold(c.Graph.User, "me")) {
			return errors.New("graph: user must name a mailbox (id or principal name) when using client credentials")
		}
	case BackendPostgres:
		if c.Postgres.User == "" || c.Postgres.Password == "" || c.Postgres.DBName == "" {
			return errors.New("postgres: user, password and db are required")
		}
	}
	return nil
}
