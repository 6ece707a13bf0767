package injector

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/opencode-ai/autoclick/internal/models"
)

// Executor runs an external command.
type Executor interface {
	Exec(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// LocalExecutor runs commands on the local host.
type LocalExecutor struct{}

// Exec runs name with args and captures its output.
func (LocalExecutor) Exec(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// XDoTool drives the X11 pointer through the xdotool command.
type XDoTool struct {
	exec Executor
}

// NewXDoTool creates an xdotool-backed injector.
func NewXDoTool(exec Executor) *XDoTool {
	return &XDoTool{exec: exec}
}

// Click moves to (x, y) and clicks once.
func (d *XDoTool) Click(ctx context.Context, x, y int, button models.Button) error {
	return d.click(ctx, x, y, button, 1)
}

// DoubleClick moves to (x, y) and clicks twice.
func (d *XDoTool) DoubleClick(ctx context.Context, x, y int, button models.Button) error {
	return d.click(ctx, x, y, button, 2)
}

func (d *XDoTool) click(ctx context.Context, x, y int, button models.Button, repeat int) error {
	code, err := buttonCode(button)
	if err != nil {
		return err
	}
	args := []string{"mousemove", strconv.Itoa(x), strconv.Itoa(y), "click"}
	if repeat > 1 {
		args = append(args, "--repeat", strconv.Itoa(repeat), "--delay", "100")
	}
	args = append(args, strconv.Itoa(code))

	_, stderr, err := d.exec.Exec(ctx, "xdotool", args...)
	if err != nil {
		return fmt.Errorf("xdotool click failed: %w: %s", err, strings.TrimSpace(string(stderr)))
	}
	return nil
}

// CursorPosition queries the pointer location.
func (d *XDoTool) CursorPosition(ctx context.Context) (int, int, error) {
	stdout, stderr, err := d.exec.Exec(ctx, "xdotool", "getmouselocation", "--shell")
	if err != nil {
		return 0, 0, fmt.Errorf("xdotool getmouselocation failed: %w: %s", err, strings.TrimSpace(string(stderr)))
	}

	x, y := -1, -1
	for _, line := range strings.Split(string(stdout), "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		switch key {
		case "X":
			x = n
		case "Y":
			y = n
		}
	}
	if x < 0 || y < 0 {
		return 0, 0, fmt.Errorf("unexpected xdotool getmouselocation output: %q", strings.TrimSpace(string(stdout)))
	}
	return x, y, nil
}

// ScreenSize queries the display geometry.
func (d *XDoTool) ScreenSize(ctx context.Context) (int, int, error) {
	stdout, stderr, err := d.exec.Exec(ctx, "xdotool", "getdisplaygeometry")
	if err != nil {
		return 0, 0, fmt.Errorf("xdotool getdisplaygeometry failed: %w: %s", err, strings.TrimSpace(string(stderr)))
	}
	fields := strings.Fields(string(stdout))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected xdotool getdisplaygeometry output: %q", strings.TrimSpace(string(stdout)))
	}
	w, errW := strconv.Atoi(fields[0])
	h, errH := strconv.Atoi(fields[1])
	if errW != nil || errH != nil {
		return 0, 0, fmt.Errorf("invalid display geometry: %q", strings.TrimSpace(string(stdout)))
	}
	return w, h, nil
}

func buttonCode(button models.Button) (int, error) {
	switch button {
	case models.ButtonLeft:
		return 1, nil
	case models.ButtonMiddle:
		return 2, nil
	case models.ButtonRight:
		return 3, nil
	}
	return 0, fmt.Errorf("unsupported button %q", button)
}
