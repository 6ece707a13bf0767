package recorder

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/autoclick/internal/models"
	"github.com/opencode-ai/autoclick/internal/sequence"
)

type fakeSource struct {
	mu           sync.Mutex
	handler      func(PointerEvent)
	subscribes   int
	unsubscribes int
	subscribeErr error
	panicOnUnsub bool
}

func (f *fakeSource) Subscribe(handler func(PointerEvent)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.subscribes++
	f.handler = handler
	return nil
}

func (f *fakeSource) Unsubscribe() error {
	f.mu.Lock()
	f.unsubscribes++
	f.handler = nil
	shouldPanic := f.panicOnUnsub
	f.mu.Unlock()
	if shouldPanic {
		panic("listener already gone")
	}
	return nil
}

func (f *fakeSource) emit(ev PointerEvent) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func fixedPosition(x, y int) PositionFunc {
	return func() (int, int, error) { return x, y, nil }
}

func TestRecorderCapturesIntoStore(t *testing.T) {
	store := sequence.NewStore()
	require.NoError(t, store.Append(models.ClickStep{X: 9, Y: 9, Button: models.ButtonLeft}))
	src := &fakeSource{}
	rec := New(store, src, WithPosition(fixedPosition(100, 200)))

	require.NoError(t, rec.Start())
	require.True(t, rec.Armed())
	require.Equal(t, 0, store.Len(), "arming clears the store")

	src.emit(PointerEvent{ButtonCode: 1})
	src.emit(PointerEvent{ButtonCode: 3})

	require.Equal(t, 2, rec.Stop())
	require.False(t, rec.Armed())
	require.Equal(t, []models.ClickStep{
		{X: 100, Y: 200, Button: models.ButtonLeft, Delay: 1.0},
		{X: 100, Y: 200, Button: models.ButtonRight, Delay: 1.0},
	}, store.Steps())
}

func TestRecorderStartIsIdempotent(t *testing.T) {
	src := &fakeSource{}
	rec := New(sequence.NewStore(), src, WithPosition(fixedPosition(1, 1)))

	require.NoError(t, rec.Start())
	src.emit(PointerEvent{ButtonCode: 2})
	require.NoError(t, rec.Start())

	require.Equal(t, 1, src.subscribes)
	require.Equal(t, 1, rec.Captured(), "second start must not clear the buffer")
}

func TestRecorderStopNeverFails(t *testing.T) {
	src := &fakeSource{panicOnUnsub: true}
	store := sequence.NewStore()
	require.NoError(t, store.Append(models.ClickStep{X: 1, Y: 1, Button: models.ButtonLeft}))
	rec := New(store, src)

	require.NotPanics(t, func() { require.Equal(t, 0, rec.Stop()) })
	require.Equal(t, 1, store.Len(), "stopping an idle recorder leaves the store alone")
}

func TestRecorderSubscribeFailure(t *testing.T) {
	src := &fakeSource{subscribeErr: errors.New("no pointer")}
	rec := New(sequence.NewStore(), src)
	require.Error(t, rec.Start())
	require.False(t, rec.Armed())
}

func TestRecorderFallbackPosition(t *testing.T) {
	src := &fakeSource{}
	store := sequence.NewStore()
	rec := New(store, src,
		WithPosition(func() (int, int, error) { return 0, 0, errors.New("query failed") }),
		WithOrigin(func() (int, int, error) { return 50, 60, nil }),
	)

	require.NoError(t, rec.Start())
	src.emit(PointerEvent{ButtonCode: 1, LocalX: 5, LocalY: 7})
	rec.Stop()

	require.Equal(t, []models.ClickStep{{X: 55, Y: 67, Button: models.ButtonLeft, Delay: 1.0}}, store.Steps())
}

func TestRecorderDropsUnresolvableEvents(t *testing.T) {
	var notes []string
	src := &fakeSource{}
	rec := New(sequence.NewStore(), src,
		WithPosition(func() (int, int, error) { return 0, 0, errors.New("query failed") }),
		WithNotify(func(msg string) { notes = append(notes, msg) }),
	)

	require.NoError(t, rec.Start())
	src.emit(PointerEvent{ButtonCode: 1})
	require.True(t, rec.Armed(), "a failed event keeps recording")
	require.Equal(t, 0, rec.Captured())
	require.Contains(t, notes[len(notes)-1], "Unable to get mouse position")
}

func TestRecorderIsolatesHandlerPanics(t *testing.T) {
	calls := 0
	src := &fakeSource{}
	rec := New(sequence.NewStore(), src, WithPosition(func() (int, int, error) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		return 3, 3, nil
	}))

	require.NoError(t, rec.Start())
	require.NotPanics(t, func() { src.emit(PointerEvent{ButtonCode: 1}) })
	src.emit(PointerEvent{ButtonCode: 1})
	require.Equal(t, 1, rec.Captured())
}

func TestRecorderAutoStopsAtLimit(t *testing.T) {
	src := &fakeSource{}
	store := sequence.NewStore()
	rec := New(store, src, WithPosition(fixedPosition(10, 10)))

	require.NoError(t, rec.Start())
	for i := 0; i < models.MaxSequenceLength; i++ {
		src.emit(PointerEvent{ButtonCode: 1})
	}
	require.True(t, rec.Armed())

	src.emit(PointerEvent{ButtonCode: 1})
	require.False(t, rec.Armed())
	require.Equal(t, models.MaxSequenceLength, store.Len())
}

func TestRecorderToggle(t *testing.T) {
	src := &fakeSource{}
	rec := New(sequence.NewStore(), src, WithPosition(fixedPosition(1, 2)))

	require.NoError(t, rec.Toggle())
	require.True(t, rec.Armed())
	require.NoError(t, rec.Toggle())
	require.False(t, rec.Armed())
}
