package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// secrets never live in the YAML file; they are bound to APP_* variables explicitly
// so Unmarshal sees them even when the file omits the key.
var secretKeys = []string{
	"graph.client_secret",
	"graph.access_token",
	"postgres.user",
	"postgres.password",
	"postgres.db",
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	setDefaults(v)
	for _, key := range secretKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var config Config
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "contacts-service")
	v.SetDefault("app.version", "0.0.1")
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.shutdown_timeout", 10*time.Second)
	v.SetDefault("app.secure_headers", true)

	v.SetDefault("auth.sign_in_url", "")

	v.SetDefault("contacts.backend", BackendGraph)
	v.SetDefault("contacts.page_size", 10)
	v.SetDefault("contacts.request_timeout", 15*time.Second)

	v.SetDefault("graph.base_url", "https://graph.microsoft.com/v1.0")
	v.SetDefault("graph.token_url", "")
	v.SetDefault("graph.tenant_id", "")
	v.SetDefault("graph.client_id", "")
	v.SetDefault("graph.scopes", []string{"https://graph.microsoft.com/.default"})
	v.SetDefault("graph.user", "me")
	v.SetDefault("graph.timeout", 10*time.Second)
	v.SetDefault("graph.rate_per_second", 10.0)
	v.SetDefault("graph.rate_burst", 5)
	v.SetDefault("graph.max_retries", 3)
	v.SetDefault("graph.retry_initial", 200*time.Millisecond)
	v.SetDefault("graph.retry_max", 5*time.Second)
	v.SetDefault("graph.breaker_timeout", 30*time.Second)
	v.SetDefault("graph.breaker_ratio", 0.6)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 1)
	v.SetDefault("postgres.max_conn_lifetime", 3600)
	v.SetDefault("postgres.max_conn_idle_time", 300)
	v.SetDefault("postgres.health_check_period", 30)
	v.SetDefault("postgres.migrate", true)
}
