package cadence

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config holds the tunable cadence parameters.
type Config struct {
	BaseDelayDays    int `json:"base_delay_days" validate:"gte=0"`
	EngagedDelayDays int `json:"engaged_delay_days" validate:"gte=0"`
	MaxTouches       int `json:"max_touches" validate:"gte=1"`
}

// DefaultConfig is the production cadence.
var DefaultConfig = Config{
	BaseDelayDays:    3,
	EngagedDelayDays: 1,
	MaxTouches:       4,
}

// Validate checks the config values using struct tags.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid cadence config: %w", err)
	}
	return nil
}
