// Package config loads pipeline and service settings from an optional YAML
// file plus AVY_-prefixed environment overrides. The feature definition
// (windows, lags, derived features, imputation policies, physical ranges)
// ships with working defaults and can be replaced wholesale from the file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"avalanche-feature-etl/internal/domain"
	"avalanche-feature-etl/internal/feature"
)

// Config holds all service and pipeline settings.
type Config struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// DatabasePath is the SQLite file holding raw observations and the
	// written feature matrix.
	DatabasePath string `mapstructure:"database_path"`
	// Schedule is an optional cron expression; empty means run once.
	Schedule string `mapstructure:"schedule"`

	Zones   []domain.Zone            `mapstructure:"zones"`
	Ranges  map[string]feature.Range `mapstructure:"ranges"`
	Windows []feature.WindowSpec     `mapstructure:"windows"`
	Lags    []feature.LagSpec        `mapstructure:"lags"`
	Derived []feature.DeriveSpec     `mapstructure:"derived"`
	Impute  feature.Policies         `mapstructure:"impute"`
}

// Load reads configuration, applying defaults where unset. path may be empty,
// in which case only defaults and environment overrides apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("database_path", "data/avalanche.db")

	v.SetEnvPrefix("AVY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &domain.ConfigurationError{Field: path, Reason: fmt.Sprintf("read config: %v", err)}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &domain.ConfigurationError{Reason: fmt.Sprintf("decode config: %v", err)}
	}

	applyFeatureDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFeatureDefaults fills any feature-definition section the file left
// empty with the stock definition. Sections are all-or-nothing: a file that
// declares one window declares them all.
func applyFeatureDefaults(cfg *Config) {
	if len(cfg.Zones) == 0 {
		cfg.Zones = domain.DefaultZones()
	}
	if len(cfg.Ranges) == 0 {
		cfg.Ranges = DefaultRanges()
	}
	if len(cfg.Windows) == 0 {
		cfg.Windows = DefaultWindows()
	}
	if len(cfg.Lags) == 0 {
		cfg.Lags = DefaultLags()
	}
	if len(cfg.Derived) == 0 {
		cfg.Derived = DefaultDerived()
	}
	if len(cfg.Impute) == 0 {
		cfg.Impute = DefaultPolicies()
	}
}

// Validate checks every feature spec and the service settings.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return &domain.ConfigurationError{Field: "database_path", Reason: "required"}
	}
	if c.ShutdownTimeout <= 0 {
		return &domain.ConfigurationError{Field: "shutdown_timeout", Reason: "must be positive"}
	}

	seen := make(map[string]struct{})
	for _, z := range c.Zones {
		if z.ID == "" {
			return &domain.ConfigurationError{Field: "zones", Reason: "zone id required"}
		}
		if _, dup := seen[z.ID]; dup {
			return &domain.ConfigurationError{Field: "zones", Reason: fmt.Sprintf("duplicate zone %q", z.ID)}
		}
		seen[z.ID] = struct{}{}
	}

	for _, w := range c.Windows {
		if err := w.Validate(); err != nil {
			return err
		}
	}
	for _, l := range c.Lags {
		if err := l.Validate(); err != nil {
			return err
		}
	}
	for _, d := range c.Derived {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	for metric, r := range c.Ranges {
		if r.Min > r.Max {
			return &domain.ConfigurationError{Field: metric, Reason: "range min exceeds max"}
		}
	}
	return c.Impute.Validate()
}
