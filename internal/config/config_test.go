package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/sandpile/internal/palette"
	"github.com/san-kum/sandpile/internal/sim"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Board.Size != sim.DefaultSize {
		t.Errorf("expected size %d, got %d", sim.DefaultSize, cfg.Board.Size)
	}
	if cfg.Engine.Period != 25*time.Millisecond {
		t.Errorf("expected period 25ms, got %s", cfg.Engine.Period)
	}
	if cfg.View.PxPerCell != 0.25 {
		t.Errorf("expected px_per_cell 0.25, got %f", cfg.View.PxPerCell)
	}
	if cfg.Palette != palette.Default.Name {
		t.Errorf("expected palette %s, got %s", palette.Default.Name, cfg.Palette)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sandpile.yaml")

	cfg := DefaultConfig()
	cfg.Board.Size = 201
	cfg.Board.Order = "lifo"
	cfg.Engine.Period = 40 * time.Millisecond
	cfg.Palette = "deep"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "period: 40ms") {
		t.Errorf("expected human readable period, got:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("board:\n  size: 51\nengine:\n  period: 10ms\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Board.Size != 51 {
		t.Errorf("expected size 51, got %d", cfg.Board.Size)
	}
	if cfg.Engine.Period != 10*time.Millisecond {
		t.Errorf("expected period 10ms, got %s", cfg.Engine.Period)
	}
	if cfg.View.WheelK != 0.001 {
		t.Errorf("expected default wheel_k, got %f", cfg.View.WheelK)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"even size", func(c *Config) { c.Board.Size = 100 }},
		{"zero size", func(c *Config) { c.Board.Size = 0 }},
		{"unknown order", func(c *Config) { c.Board.Order = "dfs" }},
		{"zero period", func(c *Config) { c.Engine.Period = 0 }},
		{"negative run time", func(c *Config) { c.Engine.RunTime = -time.Second }},
		{"zero run time", func(c *Config) { c.Engine.RunTime = 0 }},
		{"zoom too far out", func(c *Config) { c.View.PxPerCell = 0.001 }},
		{"zoom too far in", func(c *Config) { c.View.PxPerCell = 500 }},
		{"zero block", func(c *Config) { c.View.MinBlockPx = 0 }},
		{"zero wheel", func(c *Config) { c.View.WheelK = 0 }},
		{"unknown palette", func(c *Config) { c.Palette = "neon" }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestSimConversion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Board.Order = "random"
	cfg.Board.Seed = 9
	cfg.Palette = "warm"

	sc, err := cfg.Sim()
	if err != nil {
		t.Fatal(err)
	}
	if sc.Palette.Name != "warm" || sc.Order != "random" || sc.Seed != 9 {
		t.Errorf("unexpected sim config %+v", sc)
	}

	cfg.Palette = "neon"
	if _, err := cfg.Sim(); !errors.Is(err, palette.ErrUnknownPalette) {
		t.Errorf("expected ErrUnknownPalette, got %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("small")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Board.Size != 401 {
		t.Errorf("expected size 401, got %d", cfg.Board.Size)
	}
	if cfg.Palette == "" || cfg.DataDir == "" {
		t.Error("preset should inherit defaults")
	}

	cfg.Board.Size = 3
	if Presets["small"].Board.Size != 401 {
		t.Error("GetPreset must not alias the preset table")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsAreValid(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	for _, name := range names {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}
