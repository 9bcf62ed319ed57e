// Package config holds the planning knobs: objective weights, staffing
// rules, workload labelling thresholds and the solver time budget. Values
// come from defaults, then an optional YAML file, then environment
// overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when no path is given.
const DefaultPath = "planner.yml"

// Objective weights the two soft goals of a plan: even workload spread and
// critical tasks staffed by permanent members.
type Objective struct {
	WorkloadWeight  int      `yaml:"workload_weight" validate:"gte=0"`
	PriorityWeight  int      `yaml:"priority_weight" validate:"gte=0"`
	CriticalTaskIDs []string `yaml:"critical_task_ids"`
}

// Rules are the hard staffing constraints applied uniformly per participant.
type Rules struct {
	MinTasksPerParticipant int     `yaml:"min_tasks_per_participant" validate:"gte=0"`
	MaxTasksPerParticipant int     `yaml:"max_tasks_per_participant" validate:"gte=1,gtefield=MinTasksPerParticipant"`
	SNUCapHours            float64 `yaml:"snu_cap_hours" validate:"gt=0"`
}

// Workload sets the hour thresholds behind the Low/Medium/High labels.
type Workload struct {
	LowMaxHours    float64 `yaml:"low_max_hours" validate:"gt=0"`
	MediumMaxHours float64 `yaml:"medium_max_hours" validate:"gt=0,gtefield=LowMaxHours"`
}

// Search bounds the solver.
type Search struct {
	TimeBudgetSeconds int `yaml:"time_budget_seconds" validate:"gte=1"`
}

// Config is the full planning configuration.
type Config struct {
	Objective Objective `yaml:"objective"`
	Rules     Rules     `yaml:"rules"`
	Workload  Workload  `yaml:"workload"`
	Solver    Search    `yaml:"solver"`
}

// Default returns the configuration used when nothing else is provided.
func Default() Config {
	return Config{
		Objective: Objective{
			WorkloadWeight: 1,
			PriorityWeight: 2,
		},
		Rules: Rules{
			MinTasksPerParticipant: 0,
			MaxTasksPerParticipant: 6,
			SNUCapHours:            21,
		},
		Workload: Workload{
			LowMaxHours:    8,
			MediumMaxHours: 14,
		},
		Solver: Search{
			TimeBudgetSeconds: 30,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (or DefaultPath
// when path is empty and the file exists) and environment overrides. An
// explicitly named file that cannot be read is an error; a missing default
// file is not.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case explicit:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv layers PLANNER_* variables over the current values. All invalid
// entries are reported together rather than one at a time.
func (c *Config) applyEnv() error {
	var invalid []string

	setInt := func(name string, dst *int) {
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			invalid = append(invalid, name+"="+raw)
			return
		}
		*dst = v
	}
	setFloat := func(name string, dst *float64) {
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			invalid = append(invalid, name+"="+raw)
			return
		}
		*dst = v
	}

	setInt("PLANNER_WORKLOAD_WEIGHT", &c.Objective.WorkloadWeight)
	setInt("PLANNER_PRIORITY_WEIGHT", &c.Objective.PriorityWeight)
	setInt("PLANNER_MIN_TASKS", &c.Rules.MinTasksPerParticipant)
	setInt("PLANNER_MAX_TASKS", &c.Rules.MaxTasksPerParticipant)
	setFloat("PLANNER_SNU_CAP_HOURS", &c.Rules.SNUCapHours)
	setInt("PLANNER_TIME_BUDGET_SECONDS", &c.Solver.TimeBudgetSeconds)

	if raw, ok := os.LookupEnv("PLANNER_CRITICAL_TASKS"); ok {
		var ids []string
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		c.Objective.CriticalTaskIDs = ids
	}

	if len(invalid) > 0 {
		return errors.New("invalid environment overrides: " + strings.Join(invalid, ", "))
	}
	return nil
}

// Validate checks ranges and cross-field ordering of the configuration.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// TimeBudget returns the solver budget as a duration.
func (c Config) TimeBudget() time.Duration {
	return time.Duration(c.Solver.TimeBudgetSeconds) * time.Second
}

// SNUCapMinutes returns the SNU hour cap in whole minutes.
func (c Config) SNUCapMinutes() int {
	return int(c.Rules.SNUCapHours * 60)
}
