package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/sandpile/internal/camera"
	"github.com/san-kum/sandpile/internal/palette"
	"github.com/san-kum/sandpile/internal/sandpile"
	"github.com/san-kum/sandpile/internal/sim"
	"github.com/san-kum/sandpile/internal/view"
)

const (
	DefaultDataDir  = "runs"
	DefaultLogLevel = "info"
	DefaultRunTime  = 10 * time.Second
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Board   BoardConfig  `yaml:"board"`
	Engine  EngineConfig `yaml:"engine"`
	View    ViewConfig   `yaml:"view"`
	Palette string       `yaml:"palette"`
	Log     LogConfig    `yaml:"log"`
	DataDir string       `yaml:"data_dir"`
}

type BoardConfig struct {
	Size  int    `yaml:"size"`
	Order string `yaml:"order"`
	Seed  int64  `yaml:"seed"`
}

type EngineConfig struct {
	Period  time.Duration `yaml:"period"`
	RunTime time.Duration `yaml:"run_time"`
}

type ViewConfig struct {
	PxPerCell  float64 `yaml:"px_per_cell"`
	MinBlockPx float64 `yaml:"min_block_px"`
	WheelK     float64 `yaml:"wheel_k"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func DefaultConfig() *Config {
	return &Config{
		Board: BoardConfig{
			Size:  sim.DefaultSize,
			Order: "fifo",
		},
		Engine: EngineConfig{
			Period:  sim.DefaultPeriod,
			RunTime: DefaultRunTime,
		},
		View: ViewConfig{
			PxPerCell:  camera.DefaultPxPerCell,
			MinBlockPx: camera.DefaultMinBlockPx,
			WheelK:     camera.DefaultWheelK,
		},
		Palette: palette.Default.Name,
		Log:     LogConfig{Level: DefaultLogLevel},
		DataDir: DefaultDataDir,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first field that would make the engine or camera
// refuse to start.
func (c *Config) Validate() error {
	if c.Board.Size < 1 || c.Board.Size%2 == 0 {
		return fmt.Errorf("%w: board.size %d must be odd and positive", ErrInvalid, c.Board.Size)
	}
	if _, err := sandpile.OrderByName(c.Board.Order, c.Board.Seed); err != nil {
		return fmt.Errorf("%w: board.order: %v", ErrInvalid, err)
	}
	if c.Engine.Period <= 0 {
		return fmt.Errorf("%w: engine.period %s must be positive", ErrInvalid, c.Engine.Period)
	}
	if c.Engine.RunTime <= 0 {
		return fmt.Errorf("%w: engine.run_time %s must be positive", ErrInvalid, c.Engine.RunTime)
	}
	if c.View.PxPerCell < view.MinPxPerCell || c.View.PxPerCell > view.MaxPxPerCell {
		return fmt.Errorf("%w: view.px_per_cell %g outside [%g, %g]",
			ErrInvalid, c.View.PxPerCell, view.MinPxPerCell, view.MaxPxPerCell)
	}
	if c.View.MinBlockPx <= 0 {
		return fmt.Errorf("%w: view.min_block_px %g must be positive", ErrInvalid, c.View.MinBlockPx)
	}
	if c.View.WheelK <= 0 {
		return fmt.Errorf("%w: view.wheel_k %g must be positive", ErrInvalid, c.View.WheelK)
	}
	if _, err := palette.ByName(c.Palette); err != nil {
		return fmt.Errorf("%w: palette: %v", ErrInvalid, err)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	return nil
}

// Sim converts the loaded file into an engine configuration.
func (c *Config) Sim() (sim.Config, error) {
	p, err := palette.ByName(c.Palette)
	if err != nil {
		return sim.Config{}, err
	}
	return sim.Config{
		Size:    c.Board.Size,
		Period:  c.Engine.Period,
		Palette: p,
		Order:   c.Board.Order,
		Seed:    c.Board.Seed,
	}, nil
}

func (c *Config) CameraOptions() []camera.Option {
	return []camera.Option{
		camera.WithPxPerCell(c.View.PxPerCell),
		camera.WithMinBlockPx(c.View.MinBlockPx),
		camera.WithWheelK(c.View.WheelK),
	}
}
