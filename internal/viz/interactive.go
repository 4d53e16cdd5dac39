package viz

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	stagePreset = iota
	stagePalette
)

// Picker is a two-step menu: pick a preset, then a palette. Run it as its
// own program; Chosen reports whether the user confirmed both steps.
type Picker struct {
	presets  []string
	palettes []string
	info     map[string]string

	stage  int
	cursor int
	styles styles

	Preset  string
	Palette string
	Chosen  bool
}

// NewPicker builds a menu over the given names. info holds optional one-line
// descriptions keyed by preset name.
func NewPicker(presets, palettes []string, info map[string]string, theme Theme) Picker {
	return Picker{
		presets:  presets,
		palettes: palettes,
		info:     info,
		styles:   newStyles(theme),
	}
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) items() []string {
	if p.stage == stagePreset {
		return p.presets
	}
	return p.palettes
}

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	items := p.items()
	switch key.String() {
	case "q", "ctrl+c":
		return p, tea.Quit
	case "esc":
		if p.stage == stagePalette {
			p.stage, p.cursor = stagePreset, 0
			return p, nil
		}
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(items)-1 {
			p.cursor++
		}
	case "enter", " ":
		if len(items) == 0 {
			return p, nil
		}
		if p.stage == stagePreset {
			p.Preset = items[p.cursor]
			p.stage, p.cursor = stagePalette, 0
			return p, nil
		}
		p.Palette = items[p.cursor]
		p.Chosen = true
		return p, tea.Quit
	}
	return p, nil
}

func (p Picker) View() string {
	st := p.styles
	var s strings.Builder

	if p.stage == stagePreset {
		s.WriteString(st.title.Render("SANDPILE  ·  choose a preset") + "\n\n")
	} else {
		s.WriteString(st.title.Render("SANDPILE  ·  "+p.Preset+"  ·  choose a palette") + "\n\n")
	}

	for i, name := range p.items() {
		line := name
		if desc := p.info[name]; desc != "" && p.stage == stagePreset {
			line += "  " + st.subtle.Render(desc)
		}
		if i == p.cursor {
			s.WriteString(st.running.Render("> "+name) + strings.TrimPrefix(line, name) + "\n")
		} else {
			s.WriteString("  " + st.value.Render(line) + "\n")
		}
	}

	s.WriteString("\n" + st.hint.Render("↑↓:Move  Enter:Select  Esc:Back  Q:Quit"))
	return s.String()
}
