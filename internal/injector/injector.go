// Package injector drives the system pointer.
package injector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/opencode-ai/autoclick/internal/models"
)

// ErrFailSafe is returned when the cursor sits in a reserved screen corner.
// Callers treat it as an emergency stop, distinct from ordinary click failures.
var ErrFailSafe = errors.New("fail-safe triggered: cursor in screen corner")

// Injector performs pointer actions on the host.
type Injector interface {
	Click(ctx context.Context, x, y int, button models.Button) error
	DoubleClick(ctx context.Context, x, y int, button models.Button) error
	CursorPosition(ctx context.Context) (x, y int, err error)
	ScreenSize(ctx context.Context) (width, height int, err error)
}

// Backend names accepted by New.
const (
	BackendAuto    = "auto"
	BackendXDoTool = "xdotool"
	BackendDryRun  = "dryrun"
)

// Options configures New.
type Options struct {
	// Backend is auto, xdotool, or dryrun.
	Backend string

	// ScreenWidth and ScreenHeight size the dry-run virtual screen.
	ScreenWidth  int
	ScreenHeight int

	// DisableFailSafe skips the corner check.
	DisableFailSafe bool

	Logger zerolog.Logger
}

// New builds the injector for opts.Backend, wrapped in the fail-safe check.
func New(opts Options) (Injector, string, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendAuto
	}
	if backend == BackendAuto {
		backend = BackendDryRun
		if xdotoolAvailable() {
			backend = BackendXDoTool
		}
	}

	var inj Injector
	switch backend {
	case BackendXDoTool:
		if _, err := exec.LookPath("xdotool"); err != nil {
			return nil, "", fmt.Errorf("xdotool backend requested but not found on PATH: %w", err)
		}
		inj = NewXDoTool(LocalExecutor{})
	case BackendDryRun:
		inj = NewDryRun(opts.ScreenWidth, opts.ScreenHeight, opts.Logger)
	default:
		return nil, "", fmt.Errorf("unknown injector backend %q", opts.Backend)
	}

	if !opts.DisableFailSafe {
		inj = NewFailSafe(inj)
	}
	return inj, backend, nil
}

func xdotoolAvailable() bool {
	if os.Getenv("DISPLAY") == "" {
		return false
	}
	_, err := exec.LookPath("xdotool")
	return err == nil
}
