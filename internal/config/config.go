// Package config loads and validates the analysis configuration. Range
// violations are fatal at startup and never silently clamped.
package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/optionedge/internal/domain/decision"
	"github.com/sawpanic/optionedge/internal/domain/drift"
	"github.com/sawpanic/optionedge/internal/domain/jump"
	"github.com/sawpanic/optionedge/internal/domain/mispricing"
	"github.com/sawpanic/optionedge/internal/domain/pricing"
	"github.com/sawpanic/optionedge/internal/domain/regime"
	"github.com/sawpanic/optionedge/internal/domain/volatility"
	"github.com/sawpanic/optionedge/internal/errs"
)

// RunConfig holds batch execution options outside the analytical core.
type RunConfig struct {
	Workers      int     `yaml:"workers" default:"4" validate:"gte=1"`
	OutputDir    string  `yaml:"output_dir" default:"out/decisions"`
	MetricsAddr  string  `yaml:"metrics_addr"` // optional, e.g. ":9185"
	StoreDSN     string  `yaml:"store_dsn"`    // optional Postgres decision store
	RiskFreeRate float64 `yaml:"risk_free_rate" default:"0.04" validate:"gte=0"`
}

// Config is the full analysis configuration.
type Config struct {
	Jump       jump.Config       `yaml:"jump_detection"`
	Volatility volatility.Config `yaml:"volatility"`
	Drift      drift.Config      `yaml:"drift"`
	Regime     regime.Config     `yaml:"regime"`
	Pricing    pricing.Config    `yaml:"pricing"`
	Mispricing mispricing.Config `yaml:"mispricing"`
	Decision   decision.Config   `yaml:"decision"`
	Run        RunConfig         `yaml:"run"`
}

// Default returns the production configuration.
func Default() *Config {
	cfg := &Config{
		Jump:       jump.DefaultConfig(),
		Volatility: volatility.DefaultConfig(),
		Drift:      drift.DefaultConfig(),
		Regime:     regime.DefaultConfig(),
		Pricing:    pricing.DefaultConfig(),
		Mispricing: mispricing.DefaultConfig(),
		Decision:   decision.DefaultConfig(),
	}
	_ = defaults.Set(&cfg.Run)
	return cfg
}

// Load reads a YAML configuration file over the defaults and validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every parameter range. All violations surface as
// ConfigurationErrors.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return &errs.ConfigurationError{
				Field:  fe.Namespace(),
				Reason: fmt.Sprintf("failed %s constraint", fe.Tag()),
			}
		}
		return fmt.Errorf("validate config: %w", err)
	}

	// Hard risk limits beyond plain range tags.
	if err := c.Decision.Validate(); err != nil {
		return err
	}
	return nil
}
