package injector

import (
	"context"
	"fmt"

	"github.com/opencode-ai/autoclick/internal/models"
)

// FailSafe refuses to click while the cursor is in any screen corner.
type FailSafe struct {
	inner Injector
}

// NewFailSafe wraps inner with the corner check.
func NewFailSafe(inner Injector) *FailSafe {
	return &FailSafe{inner: inner}
}

// InCorner reports whether (x, y) is one of the four corner pixels of a w×h screen.
func InCorner(x, y, w, h int) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	return (x == 0 || x == w-1) && (y == 0 || y == h-1)
}

// Check returns ErrFailSafe if the cursor is in a corner.
func (f *FailSafe) Check(ctx context.Context) error {
	x, y, err := f.inner.CursorPosition(ctx)
	if err != nil {
		return fmt.Errorf("fail-safe check: %w", err)
	}
	w, h, err := f.inner.ScreenSize(ctx)
	if err != nil {
		return fmt.Errorf("fail-safe check: %w", err)
	}
	if InCorner(x, y, w, h) {
		return fmt.Errorf("%w (%d, %d)", ErrFailSafe, x, y)
	}
	return nil
}

// Click checks the corners, then clicks.
func (f *FailSafe) Click(ctx context.Context, x, y int, button models.Button) error {
	if err := f.Check(ctx); err != nil {
		return err
	}
	return f.inner.Click(ctx, x, y, button)
}

// DoubleClick checks the corners, then double-clicks.
func (f *FailSafe) DoubleClick(ctx context.Context, x, y int, button models.Button) error {
	if err := f.Check(ctx); err != nil {
		return err
	}
	return f.inner.DoubleClick(ctx, x, y, button)
}

// CursorPosition delegates to the wrapped injector.
func (f *FailSafe) CursorPosition(ctx context.Context) (int, int, error) {
	return f.inner.CursorPosition(ctx)
}

// ScreenSize delegates to the wrapped injector.
func (f *FailSafe) ScreenSize(ctx context.Context) (int, int, error) {
	return f.inner.ScreenSize(ctx)
}
