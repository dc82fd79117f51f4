// Package config loads risk engine configuration.
package config

import (
	"fmt"
	"time"

	commoncfg "github.com/sentinelvnc/sentinel/common/config"
)

type Config struct {
	Server      commoncfg.ServerConfig  `mapstructure:"server"`
	Correlation CorrelationConfig       `mapstructure:"correlation"`
	Publisher   PublisherConfig         `mapstructure:"publisher"`
	Database    DatabaseConfig          `mapstructure:"database"`
	NATS        commoncfg.NATSConfig    `mapstructure:"nats"`
	Auth        commoncfg.AuthConfig    `mapstructure:"auth"`
	Logging     commoncfg.LoggingConfig `mapstructure:"logging"`
}

// CorrelationConfig sizes the per-session window and names the weight table.
type CorrelationConfig struct {
	Window      time.Duration `mapstructure:"window"`
	WeightsFile string        `mapstructure:"weights_file"`
}

// PublisherConfig controls incident delivery to the response engine.
type PublisherConfig struct {
	ResponseURL string        `mapstructure:"response_url"`
	QueueSize   int           `mapstructure:"queue_size"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Type     string         `mapstructure:"type"` // memory or postgres
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Database   string `mapstructure:"database"`
	SSLMode    string `mapstructure:"sslmode"`
	Migrations string `mapstructure:"migrations"`
}

func (p PostgresConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

func Load(configPath string) (*Config, error) {
	loader := commoncfg.NewLoader("riskengine", 9000).
		Default("correlation.window", "30s").
		Default("correlation.weights_file", "risk_weights.yaml").
		Default("publisher.response_url", "http://localhost:9200/incoming-incident").
		Default("publisher.queue_size", 256).
		Default("publisher.timeout", "5s").
		Default("database.type", "memory").
		Default("database.postgres.host", "localhost").
		Default("database.postgres.port", 5432).
		Default("database.postgres.user", "sentinel").
		Default("database.postgres.password", "").
		Default("database.postgres.database", "sentinel_riskengine").
		Default("database.postgres.sslmode", "disable").
		Default("database.postgres.migrations", "file://migrations")

	var cfg Config
	if err := loader.Load(configPath, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Type {
	case "memory", "postgres":
	default:
		return fmt.Errorf("database.type must be memory or postgres, got %q", c.Database.Type)
	}
	if c.Correlation.Window <= 0 {
		return fmt.Errorf("correlation.window must be positive")
	}
	if c.Publisher.QueueSize <= 0 {
		return fmt.Errorf("publisher.queue_size must be positive")
	}
	return nil
}
