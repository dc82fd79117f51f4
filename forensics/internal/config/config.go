// Package config loads forensics service configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	commoncfg "github.com/sentinelvnc/sentinel/common/config"
)

type Config struct {
	Server  commoncfg.ServerConfig  `mapstructure:"server"`
	Storage StorageConfig           `mapstructure:"storage"`
	Ledger  LedgerConfig            `mapstructure:"ledger"`
	NATS    commoncfg.NATSConfig    `mapstructure:"nats"`
	Auth    commoncfg.AuthConfig    `mapstructure:"auth"`
	Logging commoncfg.LoggingConfig `mapstructure:"logging"`
}

// StorageConfig locates evidence bundles and the collectors' source trees.
type StorageConfig struct {
	DataRoot    string `mapstructure:"data_root"`
	SourcesRoot string `mapstructure:"sources_root"`
}

// LedgerConfig addresses the anchoring gateway. Empty URLs disable anchoring.
type LedgerConfig struct {
	AnchorURL string        `mapstructure:"anchor_url"`
	VerifyURL string        `mapstructure:"verify_url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

func Load(configPath string) (*Config, error) {
	// Captures copy files, so writes get more room than the shared default.
	loader := commoncfg.NewLoader("forensics", 9100).
		Default("server.write_timeout", "60s").
		Default("storage.data_root", "./data/forensics").
		Default("storage.sources_root", "./data/sources").
		Default("ledger.anchor_url", "").
		Default("ledger.verify_url", "").
		Default("ledger.api_key", "").
		Default("ledger.timeout", "5s")

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
	if strings.TrimSpace(c.Storage.DataRoot) == "" {
		return fmt.Errorf("storage.data_root is required")
	}
	if strings.TrimSpace(c.Storage.SourcesRoot) == "" {
		return fmt.Errorf("storage.sources_root is required")
	}
	if c.Ledger.Timeout <= 0 {
		return fmt.Errorf("ledger.timeout must be positive")
	}
	return nil
}
