package cli

import (
	"context"
	"fmt"

	"github.com/opencode-ai/autoclick/internal/db"
	"github.com/opencode-ai/autoclick/internal/injector"
	"github.com/opencode-ai/autoclick/internal/license"
	"github.com/opencode-ai/autoclick/internal/logging"
	"github.com/opencode-ai/autoclick/internal/profile"
	"github.com/opencode-ai/autoclick/internal/tui/styles"
)

func openProfileStore() *profile.Store {
	return profile.NewStore(GetConfig().Profiles.Dir, logging.Logger())
}

func openLicense() (*license.Manager, error) {
	cfg := GetConfig()
	return license.Open(license.Options{
		DataFile:    cfg.License.DataFile,
		EnvFile:     cfg.License.EnvFile,
		MaxFreeUses: cfg.License.MaxFreeUses,
		Logger:      logging.Component("license"),
	})
}

func openInjector() (injector.Injector, error) {
	cfg := GetConfig()
	inj, backend, err := injector.New(injector.Options{
		Backend:         cfg.Injector.Backend,
		ScreenWidth:     cfg.Injector.ScreenWidth,
		ScreenHeight:    cfg.Injector.ScreenHeight,
		DisableFailSafe: cfg.Injector.DisableFailSafe,
		Logger:          logging.Component("injector"),
	})
	if err != nil {
		return nil, &PreflightError{
			Message:  err.Error(),
			Hint:     "Install xdotool or pick another backend",
			NextStep: "autoclick --backend dryrun run single",
		}
	}
	lg := logging.Component("cli")
	lg.Debug().Str("backend", backend).Msg("pointer backend selected")
	return inj, nil
}

// openJournal returns nil when the journal is disabled.
func openJournal(ctx context.Context) (*db.DB, error) {
	cfg := GetConfig()
	if !cfg.Journal.Enabled {
		return nil, nil
	}

	progress := startProgress("Opening run journal")
	database, err := db.Open(db.Config{Path: cfg.Journal.Path})
	if err != nil {
		progress.Fail(err)
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if _, err := database.MigrateUp(ctx); err != nil {
		progress.Fail(err)
		database.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	progress.Done()
	return database, nil
}

func themeStyles() styles.Styles {
	theme, err := styles.Lookup(GetConfig().TUI.Theme)
	if err != nil {
		lg := logging.Component("cli")
		lg.Warn().Err(err).Msg("using default theme")
		return styles.DefaultStyles()
	}
	return styles.BuildStyles(theme)
}
