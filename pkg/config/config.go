// Package config loads chronicle's environment settings and scenario files.
//
// A scenario is a YAML file describing the static world: clock settings,
// activities, containers with their default activities, and the fixed
// commitment pool. Runtime state (clock position, ledgers, session pool,
// flags) lives in the database, not here.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/daviddao/chronicle/pkg/clock"
	"github.com/daviddao/chronicle/pkg/model"
	"github.com/daviddao/chronicle/pkg/registry"
)

// Env is the process configuration read from the environment.
type Env struct {
	DB       string `env:"CHRONICLE_DB" envDefault:".chronicle/chronicle.db"`
	Scenario string `env:"CHRONICLE_SCENARIO" envDefault:"chronicle.yaml"`
	LogLevel string `env:"CHRONICLE_LOG_LEVEL" envDefault:"info"`
}

// LoadEnv parses Env from the environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return e, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// SlogLevel maps LogLevel to a slog level. Unknown values mean info.
func (e Env) SlogLevel() slog.Level {
	switch strings.ToLower(e.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Scenario models a scenario YAML file.
type Scenario struct {
	Version     int                `yaml:"version"`
	Time        model.TimeSettings `yaml:"time"`
	Activities  []model.Activity   `yaml:"activities"`
	Containers  []model.Container  `yaml:"containers"`
	Commitments []model.Commitment `yaml:"commitments"`
}

// DefaultScenarioYAML is written by `chron init` when no scenario exists.
const DefaultScenarioYAML = `# chronicle scenario
version: 1

# Clock settings. Omitted fields keep their defaults.
time:
  min_hour: 0
  max_hour: 24
  default_time_spent: 1
  week_length: 7
  weekend_start_day: 5   # 0-based position in the week
  week_day_names: [Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday]
  time_slots:
    - {name: morning, start_hour: 5}
    - {name: afternoon, start_hour: 12}
    - {name: evening, start_hour: 18}
    - {name: night, start_hour: 22}

activities:
  - id: breakfast
    window: {from_hour: 6, to_hour: 10}
  - id: tavern-music
    window: {from_hour: 18, to_hour: 2, hidden: "!tavern_open"}

containers:
  - id: tavern
    defaults: [breakfast, tavern-music]

# The fixed commitment pool, in registration order.
commitments:
  - id: innkeeper-shift
    actors: [innkeeper]
    container: tavern
    mode: automatic
    window: {from_hour: 6, to_hour: 23, priority: 1}
`

// ParseScenario decodes and validates a scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	s := &Scenario{Time: model.DefaultTimeSettings()}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadScenario reads and parses a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	return ParseScenario(data)
}

// WriteDefaultScenario writes DefaultScenarioYAML to path unless a file
// already exists there. Reports whether it wrote.
func WriteDefaultScenario(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(DefaultScenarioYAML), 0644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// Validate checks the clock settings and every declared window.
func (s *Scenario) Validate() error {
	if err := clock.Validate(s.Time); err != nil {
		return err
	}
	for _, a := range s.Activities {
		if err := validateDays(a.ID, a.Window); err != nil {
			return err
		}
	}
	for _, c := range s.Commitments {
		if err := validateDays(c.ID, c.Window); err != nil {
			return err
		}
		switch c.Mode {
		case "", model.ModeAutomatic, model.ModeInteraction:
		default:
			return fmt.Errorf("commitment %s: unknown mode %q", c.ID, c.Mode)
		}
	}
	return nil
}

func validateDays(id string, w model.WindowSpec) error {
	if w.FromDay != nil && w.ToDay != nil && *w.FromDay >= *w.ToDay {
		return fmt.Errorf("%s: from_day %d must be before to_day %d", id, *w.FromDay, *w.ToDay)
	}
	return nil
}

// Populate registers the scenario's activities, containers and fixed
// commitments with r, in file order.
func (s *Scenario) Populate(r *registry.Registry) error {
	for _, a := range s.Activities {
		if err := r.AddActivity(a); err != nil {
			return err
		}
	}
	for _, c := range s.Containers {
		if err := r.AddContainer(c); err != nil {
			return err
		}
	}
	for _, c := range s.Commitments {
		if c.Mode == "" {
			c.Mode = model.ModeAutomatic
		}
		if err := r.RegisterCommitment(c); err != nil {
			return err
		}
	}
	return nil
}
