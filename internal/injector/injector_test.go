package injector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/autoclick/internal/models"
)

type fakeExecutor struct {
	stdout   []byte
	stderr   []byte
	err      error
	commands []string
}

func (f *fakeExecutor) Exec(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.commands = append(f.commands, name+" "+strings.Join(args, " "))
	return f.stdout, f.stderr, f.err
}

func TestXDoToolClick(t *testing.T) {
	exec := &fakeExecutor{}
	d := NewXDoTool(exec)

	require.NoError(t, d.Click(context.Background(), 10, 20, models.ButtonRight))
	require.NoError(t, d.DoubleClick(context.Background(), 5, 6, models.ButtonLeft))
	require.Equal(t, []string{
		"xdotool mousemove 10 20 click 3",
		"xdotool mousemove 5 6 click --repeat 2 --delay 100 1",
	}, exec.commands)
}

func TestXDoToolClickFailure(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("exit status 1"), stderr: []byte("Can't open display")}
	d := NewXDoTool(exec)

	err := d.Click(context.Background(), 1, 1, models.ButtonLeft)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Can't open display")
}

func TestXDoToolCursorPosition(t *testing.T) {
	exec := &fakeExecutor{stdout: []byte("X=812\nY=344\nSCREEN=0\nWINDOW=62914568\n")}
	x, y, err := NewXDoTool(exec).CursorPosition(context.Background())
	require.NoError(t, err)
	require.Equal(t, 812, x)
	require.Equal(t, 344, y)

	exec.stdout = []byte("garbage")
	_, _, err = NewXDoTool(exec).CursorPosition(context.Background())
	require.Error(t, err)
}

func TestXDoToolScreenSize(t *testing.T) {
	exec := &fakeExecutor{stdout: []byte("2560 1440\n")}
	w, h, err := NewXDoTool(exec).ScreenSize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2560, w)
	require.Equal(t, 1440, h)
}

func TestInCorner(t *testing.T) {
	require.True(t, InCorner(0, 0, 100, 50))
	require.True(t, InCorner(99, 0, 100, 50))
	require.True(t, InCorner(0, 49, 100, 50))
	require.True(t, InCorner(99, 49, 100, 50))
	require.False(t, InCorner(50, 0, 100, 50))
	require.False(t, InCorner(0, 0, 0, 0))
}

func TestFailSafeBlocksCornerClick(t *testing.T) {
	screen := NewDryRun(100, 50, zerolog.Nop())
	safe := NewFailSafe(screen)
	ctx := context.Background()

	require.NoError(t, safe.Click(ctx, 10, 10, models.ButtonLeft))

	screen.MoveTo(99, 49)
	err := safe.Click(ctx, 10, 10, models.ButtonLeft)
	require.True(t, errors.Is(err, ErrFailSafe))

	err = safe.DoubleClick(ctx, 10, 10, models.ButtonLeft)
	require.True(t, errors.Is(err, ErrFailSafe))
	require.Len(t, screen.Clicks(), 1)
}

func TestDryRunRecordsClicks(t *testing.T) {
	screen := NewDryRun(0, 0, zerolog.Nop())
	ctx := context.Background()

	w, h, err := screen.ScreenSize(ctx)
	require.NoError(t, err)
	require.Equal(t, 1920, w)
	require.Equal(t, 1080, h)

	require.NoError(t, screen.DoubleClick(ctx, 3, 4, models.ButtonMiddle))
	x, y, err := screen.CursorPosition(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, x)
	require.Equal(t, 4, y)
	require.Equal(t, []Click{{X: 3, Y: 4, Button: models.ButtonMiddle, Double: true}}, screen.Clicks())

	require.Error(t, screen.Click(ctx, 1, 1, models.Button("up")))
}

func TestNewDryRunBackend(t *testing.T) {
	inj, backend, err := New(Options{Backend: "dryrun", Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.Equal(t, BackendDryRun, backend)
	_, ok := inj.(*FailSafe)
	require.True(t, ok)

	_, _, err = New(Options{Backend: "wayland"})
	require.Error(t, err)
}
