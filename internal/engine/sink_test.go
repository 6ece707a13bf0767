package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/autoclick/internal/db"
	"github.com/opencode-ai/autoclick/internal/models"
)

func TestEventLine(t *testing.T) {
	ts := time.Date(2026, 3, 4, 15, 4, 5, 0, time.Local)
	require.Equal(t, "[15:04:05] [EMERGENCY] stop", Event{Time: ts, Kind: EventEmergency, Message: "stop"}.Line())
	require.Equal(t, "[15:04:05] hello", Event{Time: ts, Kind: EventInfo, Message: "hello"}.Line())
}

func TestClickMessage(t *testing.T) {
	require.Equal(t, "Click LEFT at (1, 2) - wait: 1.5s (remaining: 3)",
		clickMessage(ClickInfo{Button: models.ButtonLeft, X: 1, Y: 2, Wait: 1.5, Remaining: 3}))
	require.Equal(t, "Seq 2.1: Double click RIGHT at (5, 6)",
		clickMessage(ClickInfo{Button: models.ButtonRight, X: 5, Y: 6, Double: true, Remaining: -1, Repeat: 2, Step: 1}))
}

func TestLineSinkSkipsCountdown(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLineSink(&buf)
	require.NoError(t, sink.Emit(context.Background(), Event{Kind: EventCountdown, Message: "Starting in 2.0s..."}))
	require.NoError(t, sink.Emit(context.Background(), Event{Kind: EventInfo, Message: "ready"}))
	require.Equal(t, 1, strings.Count(buf.String(), "\n"))
	require.Contains(t, buf.String(), "ready")
}

func TestJSONSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONSink(&buf)
	require.NoError(t, sink.Emit(context.Background(), Event{RunID: "r1", Kind: EventClick, Click: &ClickInfo{X: 3, Remaining: -1}}))

	var decoded Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "r1", decoded.RunID)
	require.Equal(t, 3, decoded.Click.X)
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	var hits int
	ok := SinkFunc(func(ctx context.Context, ev Event) error { hits++; return nil })
	bad := SinkFunc(func(ctx context.Context, ev Event) error { return errors.New("disk full") })

	err := MultiSink{ok, nil, bad, ok}.Emit(context.Background(), Event{})
	require.EqualError(t, err, "disk full")
	require.Equal(t, 2, hits)
}

func TestDatabaseSinkJournalsRun(t *testing.T) {
	database, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	_, err = database.MigrateUp(context.Background())
	require.NoError(t, err)

	e := New(&fakeInjector{}, nil, NewDatabaseSink(database), &DirectDispatcher{}, zerolog.Nop(), fastOptions())
	runID, err := e.Start(context.Background(), singleConfig(3))
	require.NoError(t, err)
	waitDone(t, e.Done())

	run, err := db.NewRunRepository(database).Get(context.Background(), runID)
	require.NoError(t, err)
	require.Equal(t, models.OutcomeCompleted, run.Outcome)
	require.Equal(t, 3, run.Clicks)
	require.NotNil(t, run.EndedAt)

	events, err := db.NewEventRepository(database).ListByRun(context.Background(), runID, 0)
	require.NoError(t, err)
	require.Equal(t, string(EventStarted), events[0].Kind)
	require.Equal(t, string(EventFinished), events[len(events)-1].Kind)
}

func TestDatabaseSinkRequiresDatabase(t *testing.T) {
	require.Error(t, NewDatabaseSink(nil).Emit(context.Background(), Event{Kind: EventInfo}))
}
