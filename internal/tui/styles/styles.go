// Package styles holds the lipgloss palette for the terminal views.
package styles

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// ThemeTokens defines the semantic color roles.
type ThemeTokens struct {
	Text      string
	TextMuted string
	Border    string
	Accent    string
	Success   string
	Warning   string
	Error     string
	Armed     string
}

// Theme bundles a palette with a name.
type Theme struct {
	Name   string
	Tokens ThemeTokens
}

// DefaultTheme is the baseline palette.
var DefaultTheme = Theme{
	Name: "default",
	Tokens: ThemeTokens{
		Text:      "#DDE3EA",
		TextMuted: "#7D8794",
		Border:    "#2C3A4B",
		Accent:    "#6CA0F6",
		Success:   "#4CC38A",
		Warning:   "#E0A93B",
		Error:     "#F2555A",
		Armed:     "#F2555A",
	},
}

// HighContrastTheme favors visibility on low-contrast terminals.
var HighContrastTheme = Theme{
	Name: "high-contrast",
	Tokens: ThemeTokens{
		Text:      "#FFFFFF",
		TextMuted: "#CCCCCC",
		Border:    "#FFFFFF",
		Accent:    "#00B7FF",
		Success:   "#00FF66",
		Warning:   "#FFC400",
		Error:     "#FF3B3B",
		Armed:     "#FF00AA",
	},
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	DefaultTheme.Name:      DefaultTheme,
	HighContrastTheme.Name: HighContrastTheme,
}

// Lookup returns the named theme. An empty name selects the default.
func Lookup(name string) (Theme, error) {
	if name == "" {
		return DefaultTheme, nil
	}
	theme, ok := Themes[name]
	if !ok {
		names := make([]string, 0, len(Themes))
		for n := range Themes {
			names = append(names, n)
		}
		sort.Strings(names)
		return Theme{}, fmt.Errorf("unknown theme %q (available: %v)", name, names)
	}
	return theme, nil
}

// Styles contains lipgloss styles derived from theme tokens.
type Styles struct {
	Theme   Theme
	Title   lipgloss.Style
	Text    lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style
	Panel   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Armed   lipgloss.Style
}

// DefaultStyles builds styles from the default theme.
func DefaultStyles() Styles {
	return BuildStyles(DefaultTheme)
}

// BuildStyles converts theme tokens into lipgloss styles.
func BuildStyles(theme Theme) Styles {
	t := theme.Tokens
	color := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
	return Styles{
		Theme:   theme,
		Title:   color(t.Text).Bold(true),
		Text:    color(t.Text),
		Muted:   color(t.TextMuted),
		Accent:  color(t.Accent),
		Panel:   lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(t.Border)).Padding(0, 1),
		Success: color(t.Success),
		Warning: color(t.Warning),
		Error:   color(t.Error).Bold(true),
		Armed:   color(t.Armed).Bold(true),
	}
}

// ForLevel picks the style for a log line of the given event kind.
func (s Styles) ForLevel(kind string) lipgloss.Style {
	switch kind {
	case "warning":
		return s.Warning
	case "error", "emergency", "fatal":
		return s.Error
	case "started", "finished":
		return s.Accent
	case "click":
		return s.Text
	}
	return s.Muted
}
