// Package config holds the configuration sections every SentinelVNC service
// shares and the viper loading convention they all follow: defaults, then an
// optional YAML file, then <SERVICE>_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Addr returns the listen address for Port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// NATSConfig holds the optional broker connection.
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Enabled       bool          `mapstructure:"enabled"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// AuthConfig holds the shared secret for inbound calls. Empty disables the check.
type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// LoggingConfig selects level and handler format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Loader reads one service's configuration.
type Loader struct {
	service string
	v       *viper.Viper
}

// NewLoader returns a Loader for service with the shared defaults applied.
// Service-specific defaults are added through Default.
func NewLoader(service string, port int) *Loader {
	v := viper.New()

	v.SetDefault("server.port", port)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")

	v.SetDefault("auth.api_key", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	return &Loader{service: service, v: v}
}

// Default sets a default for key.
func (l *Loader) Default(key string, value interface{}) *Loader {
	l.v.SetDefault(key, value)
	return l
}

// EnvPrefix is the environment prefix for the service, e.g. RISKENGINE.
func (l *Loader) EnvPrefix() string {
	return strings.ToUpper(l.service)
}

// Load fills out. An explicit configPath must exist; without one, config.yaml
// is looked up in the working directory and /etc/sentinel/<service> and may
// be absent. Environment variables win over both, e.g. RESPOND_SERVER_PORT.
func (l *Loader) Load(configPath string, out interface{}) error {
	if configPath != "" {
		l.v.SetConfigFile(configPath)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath("/etc/sentinel/" + l.service)
	}

	l.v.SetEnvPrefix(l.EnvPrefix())
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := l.v.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}
