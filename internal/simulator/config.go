// Package simulator drives a running kiosk over HTTP the way visitors would
// and checks that the display reacts as it should.
package simulator

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Scenario names.
const (
	ScenarioRing       = "ring"
	ScenarioSelect     = "select"
	ScenarioOutOfRange = "out_of_range"
	ScenarioKeys       = "keys"
	ScenarioBurst      = "burst"
	ScenarioIdle       = "idle"
)

// Config holds configuration for a simulation run. Fields read KIOSK_SIM_*
// variables; command-line flags override them.
type Config struct {
	BaseURL   string        `env:"URL" envDefault:"http://localhost:8080"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"10s"`
	Ready     time.Duration `env:"READY_TIMEOUT" envDefault:"30s"`
	IdleSlack time.Duration `env:"IDLE_SLACK" envDefault:"2s"`
	Scenarios []string      `env:"SCENARIOS" envSeparator:"," envDefault:"ring,select,out_of_range,keys,burst,idle"`
	Workers   int           `env:"WORKERS" envDefault:"4"`
	Burst     int           `env:"BURST" envDefault:"200"`
	Observe   bool          `env:"OBSERVE" envDefault:"true"`
	Verbose   bool          `env:"VERBOSE" envDefault:"false"`
}

// LoadConfig reads the KIOSK_SIM_* environment.
func LoadConfig() (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: "KIOSK_SIM_"})
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
