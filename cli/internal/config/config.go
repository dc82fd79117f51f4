// Package config loads sentinelctl settings from ~/.sentinel/config.yaml
// and SENTINELCTL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	RiskEngineURL string          `mapstructure:"riskengine_url"`
	APIKey        string          `mapstructure:"api_key"`
	TokenSecret   string          `mapstructure:"token_secret"`
	Timeout       time.Duration   `mapstructure:"timeout"`
	Forensics     ForensicsConfig `mapstructure:"forensics"`
}

// ForensicsConfig locates evidence for local capture and verification.
type ForensicsConfig struct {
	DataRoot    string `mapstructure:"data_root"`
	SourcesRoot string `mapstructure:"sources_root"`
}

func Default() *Config {
	return &Config{
		RiskEngineURL: "http://localhost:9000",
		Timeout:       30 * time.Second,
		Forensics: ForensicsConfig{
			DataRoot:    "./data/forensics",
			SourcesRoot: "./data/sources",
		},
	}
}

// DefaultPath is $HOME/.sentinel/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".sentinel", "config.yaml"), nil
}

// Load reads cfgFile, or DefaultPath when empty. A missing file yields
// defaults plus environment overrides.
func Load(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		cfgFile = p
	}

	d := Default()
	v := viper.New()
	v.SetDefault("riskengine_url", d.RiskEngineURL)
	v.SetDefault("api_key", "")
	v.SetDefault("token_secret", "")
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("forensics.data_root", d.Forensics.DataRoot)
	v.SetDefault("forensics.sources_root", d.Forensics.SourcesRoot)

	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")

	// SENTINELCTL_RISKENGINE_URL, SENTINELCTL_FORENSICS_DATA_ROOT, ...
	v.SetEnvPrefix("SENTINELCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
