package config

import (
	"sort"
	"time"
)

var Presets = map[string]*Config{
	"tiny": {
		Board:  BoardConfig{Size: 101, Order: "fifo"},
		Engine: EngineConfig{Period: 25 * time.Millisecond, RunTime: 5 * time.Second},
		View:   ViewConfig{PxPerCell: 4, MinBlockPx: 1, WheelK: 0.001},
	},
	"small": {
		Board:  BoardConfig{Size: 401, Order: "fifo"},
		Engine: EngineConfig{Period: 25 * time.Millisecond, RunTime: 10 * time.Second},
		View:   ViewConfig{PxPerCell: 1, MinBlockPx: 2, WheelK: 0.001},
	},
	"medium": {
		Board:  BoardConfig{Size: 1001, Order: "fifo"},
		Engine: EngineConfig{Period: 25 * time.Millisecond, RunTime: 30 * time.Second},
		View:   ViewConfig{PxPerCell: 0.5, MinBlockPx: 4, WheelK: 0.001},
	},
	"large": {
		Board:  BoardConfig{Size: 3967, Order: "fifo"},
		Engine: EngineConfig{Period: 25 * time.Millisecond, RunTime: 60 * time.Second},
		View:   ViewConfig{PxPerCell: 0.25, MinBlockPx: 4, WheelK: 0.001},
	},
	"shuffled": {
		Board:  BoardConfig{Size: 401, Order: "random", Seed: 42},
		Engine: EngineConfig{Period: 25 * time.Millisecond, RunTime: 10 * time.Second},
		View:   ViewConfig{PxPerCell: 1, MinBlockPx: 2, WheelK: 0.001},
	},
}

// GetPreset returns a copy of the named preset with the remaining fields
// taken from DefaultConfig, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Board = p.Board
	cfg.Engine = p.Engine
	cfg.View = p.View
	if p.Palette != "" {
		cfg.Palette = p.Palette
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
