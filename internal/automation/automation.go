// Package automation runs scripted batches of headless sandpile runs.
//
// A scenario is a YAML file listing steps. Each step starts from a base
// configuration, optionally swaps in a preset, then overrides individual
// fields:
//
//	name: order-study
//	description: same board under every topple order
//	steps:
//	  - preset: small
//	    order: fifo
//	    run_time: 5s
//	  - preset: small
//	    order: random
//	    seed: 7
package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/sandpile/internal/config"
)

var (
	ErrEmptyScenario = errors.New("scenario has no steps")
	ErrUnknownPreset = errors.New("unknown preset")
)

// Scenario is an ordered list of runs.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step describes one run. Zero fields keep the value from the preset or
// the base configuration.
type Step struct {
	Name    string        `yaml:"name,omitempty"`
	Preset  string        `yaml:"preset,omitempty"`
	Size    int           `yaml:"size,omitempty"`
	Order   string        `yaml:"order,omitempty"`
	Seed    int64         `yaml:"seed,omitempty"`
	Palette string        `yaml:"palette,omitempty"`
	Period  time.Duration `yaml:"period,omitempty"`
	RunTime time.Duration `yaml:"run_time,omitempty"`
}

// Runner executes one configured run and returns its stored run ID.
type Runner func(ctx context.Context, cfg *config.Config) (string, error)

// Result pairs a step with the run it produced.
type Result struct {
	Step  Step
	RunID string
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

// ParseScenario decodes a scenario and checks it has at least one step.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, ErrEmptyScenario
	}
	return &sc, nil
}

// Config resolves the step against base. base is not modified.
func (s Step) Config(base *config.Config) (*config.Config, error) {
	cfg := *base
	if s.Preset != "" {
		p := config.GetPreset(s.Preset)
		if p == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, s.Preset)
		}
		cfg.Board = p.Board
		cfg.Engine.Period = p.Engine.Period
	}
	if s.Size != 0 {
		cfg.Board.Size = s.Size
	}
	if s.Order != "" {
		cfg.Board.Order = s.Order
	}
	if s.Seed != 0 {
		cfg.Board.Seed = s.Seed
	}
	if s.Palette != "" {
		cfg.Palette = s.Palette
	}
	if s.Period != 0 {
		cfg.Engine.Period = s.Period
	}
	if s.RunTime != 0 {
		cfg.Engine.RunTime = s.RunTime
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RunScenario resolves every step up front, then runs them in order. It
// stops at the first failing step or when ctx is done, returning the
// results of the steps that completed.
func RunScenario(ctx context.Context, sc *Scenario, base *config.Config, run Runner) ([]Result, error) {
	if len(sc.Steps) == 0 {
		return nil, ErrEmptyScenario
	}
	cfgs := make([]*config.Config, len(sc.Steps))
	for i, step := range sc.Steps {
		cfg, err := step.Config(base)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		cfgs[i] = cfg
	}

	results := make([]Result, 0, len(sc.Steps))
	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		id, err := run(ctx, cfgs[i])
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		results = append(results, Result{Step: step, RunID: id})
	}
	return results, nil
}
