package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubParser returns a fixed query regardless of the question.
type stubParser struct {
	q Query
}

func (s stubParser) Parse(context.Context, string, []Device) Query { return s.q }

func newTestEngine(t *testing.T, store Store, parsers ...Parser) *Engine {
	t.Helper()
	e, err := New(&Config{Store: store, Parsers: parsers})
	require.NoError(t, err)
	return e
}

func TestEngineAnswersAggregateQuestion(t *testing.T) {
	devices := []Device{{ID: uuid.New(), Name: "Office Heater"}}
	user := User{ID: uuid.New(), Devices: devices}
	store := &fakeStore{aggValue: floatPtr(123.45)}

	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	e := newTestEngine(t, store, NewKeywordParser(clock))

	ans := e.Answer(context.Background(), "how much energy did the Office Heater use yesterday?", user)

	assert.Equal(t, "The sum energy usage for Office Heater was 123.45 Watts.", ans.Summary)
	assert.Empty(t, ans.Data, "aggregate answers carry no row data")
	assert.Empty(t, ans.DebugStatement)
}

func TestEngineAnswerIsIdempotent(t *testing.T) {
	user := User{ID: uuid.New(), Devices: testDevices()}
	store := &fakeStore{aggValue: floatPtr(9.1)}

	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	e := newTestEngine(t, store, NewKeywordParser(clock))

	first := e.Answer(context.Background(), "total usage for the heater yesterday", user)
	second := e.Answer(context.Background(), "total usage for the heater yesterday", user)
	assert.Equal(t, first, second)
}

func TestEngineUnparsedQuestion(t *testing.T) {
	user := User{ID: uuid.New(), Devices: testDevices()}
	e := newTestEngine(t, &fakeStore{}, NewKeywordParser(nil))

	ans := e.Answer(context.Background(), "compare weekday vs weekend usage", user)
	assert.Equal(t, "I'm sorry, I couldn't understand that question.", ans.Summary)
	assert.Empty(t, ans.Data)
}

func TestEngineDeniesForeignDeviceQuery(t *testing.T) {
	user := User{ID: uuid.New(), Devices: testDevices()}
	store := &fakeStore{}

	foreign := uuid.New()
	q := mustStructured(t, MetricSum, []uuid.UUID{foreign})
	e := newTestEngine(t, store, stubParser{q: q})

	ans := e.Answer(context.Background(), "how much did the neighbor's AC use?", user)

	assert.Equal(t, "Execution denied: unauthorized devices.", ans.Summary)
	assert.NotContains(t, ans.Summary, foreign.String())
	assert.Empty(t, ans.Data)
	assert.Equal(t, 0, store.aggCalls)
}

func TestEngineMapsExecutionFailuresToSafeMessage(t *testing.T) {
	user := User{ID: uuid.New(), Devices: testDevices()}
	store := &fakeStore{aggErr: errors.New("pq: relation \"telemetry\" does not exist")}

	q := mustStructured(t, MetricSum, []uuid.UUID{user.Devices[0].ID})
	e := newTestEngine(t, store, stubParser{q: q})

	ans := e.Answer(context.Background(), "how much?", user)
	assert.Equal(t, "Sorry, something went wrong while answering your question.", ans.Summary)
	assert.NotContains(t, ans.Summary, "telemetry")
}

func TestEngineListAnswerCarriesRows(t *testing.T) {
	user := User{ID: uuid.New(), Devices: testDevices()}
	ts := time.Date(2024, 3, 14, 18, 0, 0, 0, time.UTC)
	store := &fakeStore{readings: []Reading{{Timestamp: ts, EnergyWatts: 55.5}}}

	e := newTestEngine(t, store, NewKeywordParser(clockwork.NewFakeClockAt(ts.Add(12*time.Hour))))

	ans := e.Answer(context.Background(), "show me the heater readings", user)
	require.Len(t, ans.Data, 1)
	assert.Equal(t, "2024-03-14T18:00:00Z", ans.Data[0]["timestamp"])
	assert.Equal(t, 55.5, ans.Data[0]["energy_usage"])
	assert.Empty(t, ans.DebugStatement, "debug statement is raw-path only")
}

func TestEngineRawPathAnswer(t *testing.T) {
	user := User{ID: uuid.New(), Devices: testDevices()}
	store := &fakeStore{rows: []map[string]any{{"name": "Heater", "total": 12.0}}}

	q := &RawQuery{
		Statement:       "SELECT d.name, sum(t.energy_usage) AS total FROM telemetry t JOIN devices d ON d.id = t.device_id WHERE d.owner_id = @user_id GROUP BY d.name",
		SummaryTemplate: "Usage per device.",
	}
	e := newTestEngine(t, store, stubParser{q: q})

	ans := e.Answer(context.Background(), "break down my usage by device", user)

	assert.Equal(t, "Usage per device.", ans.Summary)
	require.Len(t, ans.Data, 1)
	assert.Equal(t, q.Statement, ans.DebugStatement)
	assert.Equal(t, user.ID, store.lastUserID)
}

func TestEngineFallsThroughToModelParser(t *testing.T) {
	user := User{ID: uuid.New(), Devices: testDevices()}
	store := &fakeStore{rows: []map[string]any{{"weekday_avg": 10.0, "weekend_avg": 14.0}}}

	llm := &mockCompletion{
		response: `{"sql": "SELECT 1", "summary": "Weekends run hotter than weekdays."}`,
	}
	e := newTestEngine(t, store,
		NewKeywordParser(nil),
		NewModelParser(llm, nil),
	)

	ans := e.Answer(context.Background(), "compare weekday vs weekend usage", user)
	assert.Equal(t, "Weekends run hotter than weekdays.", ans.Summary)
	assert.Equal(t, 1, llm.calls)
}

func TestNewEngineValidatesConfig(t *testing.T) {
	_, err := New(&Config{Parsers: []Parser{NewKeywordParser(nil)}})
	assert.Error(t, err)

	_, err = New(&Config{Store: &fakeStore{}})
	assert.Error(t, err)
}
