// Package cli implements the autoclick command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opencode-ai/autoclick/internal/config"
	"github.com/opencode-ai/autoclick/internal/logging"
)

var (
	cfgFile        string
	logLevel       string
	logFormat      string
	profilesDir    string
	backendName    string
	nonInteractive bool
	jsonOutput     bool
	noProgress     bool

	appConfig *config.Config
	version   = "dev"
)

var rootCmd = &cobra.Command{
	Use:           "autoclick",
	Short:         "Automated mouse clicking with profiles and recorded sequences",
	Long:          "autoclick clicks at random intervals or replays recorded click sequences.\nSettings live in named profiles; runs are journaled to a local database.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is "+config.DefaultConfigDir()+"/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug|info|warn|error)")
	flags.StringVar(&logFormat, "log-format", "", "log format (console|json)")
	flags.StringVar(&profilesDir, "profiles-dir", "", "directory holding profile files")
	flags.StringVar(&backendName, "backend", "", "pointer backend (auto|xdotool|dryrun)")
	flags.BoolVar(&nonInteractive, "non-interactive", false, "never prompt; fail instead")
	flags.BoolVar(&jsonOutput, "json", false, "write machine-readable JSON output")
	flags.BoolVar(&noProgress, "no-progress", false, "hide progress lines on stderr")
}

// Execute runs the root command.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	rootCmd.Version = version
	return rootCmd.Execute()
}

// ExitCode maps an Execute error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return 1
}

// ReportError prints err for the user.
func ReportError(w io.Writer, err error) {
	if err == nil {
		return
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) && exitErr.silent {
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	var preflight *PreflightError
	if errors.As(err, &preflight) {
		if preflight.Hint != "" {
			fmt.Fprintf(w, "Hint: %s\n", preflight.Hint)
		}
		if preflight.NextStep != "" {
			fmt.Fprintf(w, "Next: %s\n", preflight.NextStep)
		}
	}
}

func initConfig(cmd *cobra.Command) error {
	v := viper.New()
	flags := cmd.Flags()
	bindings := map[string]string{
		"log-level":    "logging.level",
		"log-format":   "logging.format",
		"profiles-dir": "profiles.dir",
		"backend":      "injector.backend",
	}
	for flag, key := range bindings {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind --%s: %w", flag, err)
			}
		}
	}

	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	if err := logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	}); err != nil {
		return err
	}
	appConfig = cfg
	lg := logging.Component("cli")
	lg.Debug().
		Str("command", cmd.CommandPath()).
		Str("config", v.ConfigFileUsed()).
		Msg("configuration loaded")
	return nil
}

// GetConfig returns the loaded configuration, or defaults before loading.
func GetConfig() *config.Config {
	if appConfig == nil {
		return config.DefaultConfig()
	}
	return appConfig
}

// PreflightError is a user-facing error with a suggested fix.
type PreflightError struct {
	Message  string
	Hint     string
	NextStep string
}

func (e *PreflightError) Error() string {
	return e.Message
}

// exitError carries a non-default exit status.
type exitError struct {
	code   int
	err    error
	silent bool
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}
