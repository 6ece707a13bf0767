// Package config loads autoclick configuration from defaults, file, and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (AUTOCLICK_ENGINE_POLL_SLICE, ...).
const EnvPrefix = "AUTOCLICK"

// MaxPollSlice bounds how long the worker may sleep between cancellation checks.
const MaxPollSlice = 200 * time.Millisecond

// Config is the full application configuration.
type Config struct {
	Profiles ProfilesConfig `mapstructure:"profiles"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	License  LicenseConfig  `mapstructure:"license"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Injector InjectorConfig `mapstructure:"injector"`
	TUI      TUIConfig      `mapstructure:"tui"`
}

// ProfilesConfig locates saved profiles.
type ProfilesConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig controls diagnostic logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LicenseConfig controls the free-tier gate.
type LicenseConfig struct {
	DataFile    string `mapstructure:"data_file"`
	EnvFile     string `mapstructure:"env_file"`
	MaxFreeUses int    `mapstructure:"max_free_uses"`
}

// EngineConfig tunes the execution engine.
type EngineConfig struct {
	// PollSlice is the longest uninterrupted sleep inside a run.
	PollSlice time.Duration `mapstructure:"poll_slice"`

	// JoinTimeout bounds how long Stop waits for the worker.
	JoinTimeout time.Duration `mapstructure:"join_timeout"`

	// MaxConsecutiveErrors ends a run after this many failures in a row.
	MaxConsecutiveErrors int `mapstructure:"max_consecutive_errors"`

	// ErrorBackoff is the pause after a failed click.
	ErrorBackoff time.Duration `mapstructure:"error_backoff"`

	// CountdownStatusEvery is how often the initial-delay countdown reports.
	CountdownStatusEvery time.Duration `mapstructure:"countdown_status_every"`
}

// JournalConfig controls the SQLite run history.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// InjectorConfig selects the pointer backend.
type InjectorConfig struct {
	// Backend is auto, xdotool, or dryrun.
	Backend      string `mapstructure:"backend"`
	ScreenWidth  int    `mapstructure:"screen_width"`
	ScreenHeight int    `mapstructure:"screen_height"`

	// DisableFailSafe turns off the top-left corner emergency stop.
	DisableFailSafe bool `mapstructure:"disable_fail_safe"`
}

// TUIConfig controls the terminal monitor.
type TUIConfig struct {
	Theme string `mapstructure:"theme"`
}

// DefaultConfigDir returns the per-user configuration directory.
func DefaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".", ".autoclick")
	}
	return filepath.Join(dir, "autoclick")
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	base := DefaultConfigDir()
	return &Config{
		Profiles: ProfilesConfig{Dir: filepath.Join(base, "profiles")},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
		License: LicenseConfig{
			DataFile:    filepath.Join(base, "license_data.json"),
			EnvFile:     ".env",
			MaxFreeUses: 5,
		},
		Engine: EngineConfig{
			PollSlice:            MaxPollSlice,
			JoinTimeout:          2 * time.Second,
			MaxConsecutiveErrors: 5,
			ErrorBackoff:         500 * time.Millisecond,
			CountdownStatusEvery: time.Second,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(base, "history.db"),
		},
		Injector: InjectorConfig{
			Backend:      "auto",
			ScreenWidth:  1920,
			ScreenHeight: 1080,
		},
		TUI: TUIConfig{Theme: "default"},
	}
}

// SetDefaults registers every default value on v so env and file overrides resolve.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("profiles.dir", d.Profiles.Dir)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("license.data_file", d.License.DataFile)
	v.SetDefault("license.env_file", d.License.EnvFile)
	v.SetDefault("license.max_free_uses", d.License.MaxFreeUses)
	v.SetDefault("engine.poll_slice", d.Engine.PollSlice)
	v.SetDefault("engine.join_timeout", d.Engine.JoinTimeout)
	v.SetDefault("engine.max_consecutive_errors", d.Engine.MaxConsecutiveErrors)
	v.SetDefault("engine.error_backoff", d.Engine.ErrorBackoff)
	v.SetDefault("engine.countdown_status_every", d.Engine.CountdownStatusEvery)
	v.SetDefault("journal.enabled", d.Journal.Enabled)
	v.SetDefault("journal.path", d.Journal.Path)
	v.SetDefault("injector.backend", d.Injector.Backend)
	v.SetDefault("injector.screen_width", d.Injector.ScreenWidth)
	v.SetDefault("injector.screen_height", d.Injector.ScreenHeight)
	v.SetDefault("injector.disable_fail_safe", d.Injector.DisableFailSafe)
	v.SetDefault("tui.theme", d.TUI.Theme)
}

// Load reads configuration into a Config. An explicit path must exist; otherwise
// config.yaml in DefaultConfigDir is used when present.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the engine relies on.
func (c *Config) Validate() error {
	if c.Engine.PollSlice <= 0 {
		return fmt.Errorf("engine.poll_slice must be greater than 0")
	}
	if c.Engine.PollSlice > MaxPollSlice {
		return fmt.Errorf("engine.poll_slice must be at most %s", MaxPollSlice)
	}
	if c.Engine.JoinTimeout <= 0 {
		return fmt.Errorf("engine.join_timeout must be greater than 0")
	}
	if c.Engine.MaxConsecutiveErrors <= 0 {
		return fmt.Errorf("engine.max_consecutive_errors must be greater than 0")
	}
	if c.Engine.ErrorBackoff < 0 {
		return fmt.Errorf("engine.error_backoff must not be negative")
	}
	if c.License.MaxFreeUses < 0 {
		return fmt.Errorf("license.max_free_uses must not be negative")
	}
	switch strings.ToLower(c.Injector.Backend) {
	case "auto", "xdotool", "dryrun":
	default:
		return fmt.Errorf("injector.backend must be auto, xdotool, or dryrun (got %q)", c.Injector.Backend)
	}
	if strings.TrimSpace(c.Profiles.Dir) == "" {
		return fmt.Errorf("profiles.dir is required")
	}
	return nil
}
