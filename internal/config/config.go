// Package config provides configuration loading and validation for the cadence service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/jonathan/outreach-cadence/internal/cadence"
)

// Config is the service configuration. Values are layered: Default, then an optional JSON
// file, then environment variables.
type Config struct {
	DatabaseURL        string `json:"database_url,omitempty" env:"DATABASE_URL"`
	HTTPPort           int    `json:"http_port,omitempty" env:"HTTP_PORT" validate:"min=1,max=65535"`
	NATSURL            string `json:"nats_url,omitempty" env:"NATS_URL"`
	SweepSchedule      string `json:"sweep_schedule,omitempty" env:"SWEEP_SCHEDULE" validate:"required"`
	LogLevel           string `json:"log_level,omitempty" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat          string `json:"log_format,omitempty" env:"LOG_FORMAT" validate:"oneof=json console"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute,omitempty" env:"RATE_LIMIT_PER_MINUTE" validate:"min=1"`

	Cadence  CadenceConfig  `json:"cadence" envPrefix:"CADENCE_"`
	JWT      JWTConfig      `json:"-"`
	Password PasswordConfig `json:"-"`
}

// CadenceConfig carries the cadence tuning knobs.
type CadenceConfig struct {
	BaseDelayDays    int `json:"base_delay_days" env:"BASE_DELAY_DAYS"`
	EngagedDelayDays int `json:"engaged_delay_days" env:"ENGAGED_DELAY_DAYS"`
	MaxTouches       int `json:"max_touches" env:"MAX_TOUCHES"`
}

// Engine converts to the engine's config type.
func (c CadenceConfig) Engine() cadence.Config {
	return cadence.Config{
		BaseDelayDays:    c.BaseDelayDays,
		EngagedDelayDays: c.EngagedDelayDays,
		MaxTouches:       c.MaxTouches,
	}
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		HTTPPort:           8080,
		SweepSchedule:      "@every 2m",
		LogLevel:           "info",
		LogFormat:          "json",
		RateLimitPerMinute: 120,
		Cadence: CadenceConfig{
			BaseDelayDays:    cadence.DefaultConfig.BaseDelayDays,
			EngagedDelayDays: cadence.DefaultConfig.EngagedDelayDays,
			MaxTouches:       cadence.DefaultConfig.MaxTouches,
		},
		JWT: JWTConfig{
			ExpirationHours: 24,
		},
		Password: PasswordConfig{
			BcryptCost: 12,
		},
	}
}

// Load builds the configuration from defaults, the JSON file at path (skipped when path is
// empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return nil
}

// Validate checks that the configuration has valid values. JWT and password settings are
// validated separately by the commands that need them.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := c.Cadence.Engine().Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
