package injector

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/opencode-ai/autoclick/internal/models"
)

// Click records one action performed on the dry-run screen.
type Click struct {
	X      int
	Y      int
	Button models.Button
	Double bool
}

// DryRun is a virtual screen. Clicks move its cursor and are recorded, never sent to the host.
type DryRun struct {
	mu      sync.Mutex
	width   int
	height  int
	cursorX int
	cursorY int
	clicks  []Click
	logger  zerolog.Logger
}

// NewDryRun creates a virtual screen with the cursor at its center.
func NewDryRun(width, height int, logger zerolog.Logger) *DryRun {
	if width <= 0 {
		width = 1920
	}
	if height <= 0 {
		height = 1080
	}
	return &DryRun{
		width:   width,
		height:  height,
		cursorX: width / 2,
		cursorY: height / 2,
		logger:  logger,
	}
}

// Click records a single click.
func (d *DryRun) Click(ctx context.Context, x, y int, button models.Button) error {
	return d.record(ctx, x, y, button, false)
}

// DoubleClick records a double click.
func (d *DryRun) DoubleClick(ctx context.Context, x, y int, button models.Button) error {
	return d.record(ctx, x, y, button, true)
}

func (d *DryRun) record(ctx context.Context, x, y int, button models.Button, double bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !button.Valid() {
		return fmt.Errorf("unsupported button %q", button)
	}

	d.mu.Lock()
	d.cursorX, d.cursorY = x, y
	d.clicks = append(d.clicks, Click{X: x, Y: y, Button: button, Double: double})
	d.mu.Unlock()

	d.logger.Debug().
		Int("x", x).
		Int("y", y).
		Str("button", string(button)).
		Bool("double", double).
		Msg("dry-run click")
	return nil
}

// CursorPosition returns the virtual cursor.
func (d *DryRun) CursorPosition(ctx context.Context) (int, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursorX, d.cursorY, nil
}

// ScreenSize returns the virtual screen size.
func (d *DryRun) ScreenSize(ctx context.Context) (int, int, error) {
	return d.width, d.height, nil
}

// MoveTo places the virtual cursor.
func (d *DryRun) MoveTo(x, y int) {
	d.mu.Lock()
	d.cursorX, d.cursorY = x, y
	d.mu.Unlock()
}

// Clicks returns a copy of everything recorded so far.
func (d *DryRun) Clicks() []Click {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Click, len(d.clicks))
	copy(out, d.clicks)
	return out
}
