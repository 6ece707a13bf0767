package profile

import (
	"fmt"
	"sort"

	"github.com/opencode-ai/autoclick/internal/models"
)

// Preset is a built-in configuration.
type Preset struct {
	Key      string
	Name     string
	Settings models.Settings
}

var presets = map[string]func() Preset{
	"gaming": func() Preset {
		s := models.DefaultSettings()
		s.Basic.MinInterval = 0.1
		s.Basic.MaxInterval = 0.5
		s.Basic.InfiniteClicks = true
		s.Basic.MaxClicks = 1000
		s.Advanced.FixedX = 500
		s.Advanced.FixedY = 300
		s.Advanced.MinimizeOnStart = true
		s.Sequence.SequencePause = 0.5
		return Preset{Key: "gaming", Name: "Gaming - Fast Clicks", Settings: s}
	},
	"office": func() Preset {
		s := models.DefaultSettings()
		s.Basic.MinInterval = 2
		s.Basic.MaxInterval = 5
		s.Basic.InfiniteClicks = false
		s.Basic.MaxClicks = 50
		s.Advanced.FixedX = 400
		s.Advanced.FixedY = 400
		s.Advanced.InitialDelay = 5
		s.Advanced.PlaySound = true
		s.Sequence.SequencePause = 2
		return Preset{Key: "office", Name: "Office - Slow Clicks", Settings: s}
	},
	"test": func() Preset {
		s := models.DefaultSettings()
		s.Basic.MinInterval = 1
		s.Basic.MaxInterval = 3
		s.Basic.InfiniteClicks = false
		s.Basic.MaxClicks = 10
		s.Advanced.UseCurrentPosition = false
		s.Advanced.FixedX = 300
		s.Advanced.FixedY = 300
		s.Advanced.PlaySound = true
		return Preset{Key: "test", Name: "Test - Medium Clicks", Settings: s}
	},
}

// PresetNames returns the preset keys in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for k := range presets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// LookupPreset returns a fresh copy of the named preset.
func LookupPreset(key string) (Preset, error) {
	build, ok := presets[key]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q (available: %v)", key, PresetNames())
	}
	return build(), nil
}
