package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCompletion is a scripted CompletionClient.
type mockCompletion struct {
	response string
	err      error

	calls      int
	lastSystem string
	lastUser   string
}

func (m *mockCompletion) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	m.calls++
	m.lastSystem = systemPrompt
	m.lastUser = userPrompt
	return m.response, m.err
}

func TestModelParserProducesRawQuery(t *testing.T) {
	client := &mockCompletion{
		response: `{"sql": "SELECT sum(energy_usage) FROM telemetry t JOIN devices d ON d.id = t.device_id WHERE d.owner_id = @user_id", "summary": "Total energy across your devices."}`,
	}
	p := NewModelParser(client, nil)

	q := p.Parse(context.Background(), "what is my overall usage?", testDevices())
	require.NotNil(t, q)

	rq, ok := q.(*RawQuery)
	require.True(t, ok)
	assert.Contains(t, rq.Statement, "@user_id")
	assert.Equal(t, "Total energy across your devices.", rq.SummaryTemplate)

	assert.Equal(t, 1, client.calls)
	assert.Equal(t, "what is my overall usage?", client.lastUser)
	assert.Contains(t, client.lastSystem, "Living Room AC", "prompt embeds the device inventory")
	assert.Contains(t, client.lastSystem, "@user_id")
}

func TestModelParserUnwrapsFencedJSON(t *testing.T) {
	client := &mockCompletion{
		response: "Here you go:\n```json\n{\"sql\": \"SELECT 1\", \"summary\": \"One.\"}\n```",
	}
	p := NewModelParser(client, nil)

	q := p.Parse(context.Background(), "anything", testDevices())
	require.NotNil(t, q)
	assert.Equal(t, "SELECT 1", q.(*RawQuery).Statement)
}

func TestModelParserDeclines(t *testing.T) {
	tests := []struct {
		name   string
		client *mockCompletion
	}{
		{"call failure", &mockCompletion{err: errors.New("timeout")}},
		{"non-JSON response", &mockCompletion{response: "I cannot answer that."}},
		{"malformed JSON", &mockCompletion{response: `{"sql": "SELECT 1", "summary": }`}},
		{"missing sql key", &mockCompletion{response: `{"summary": "hello"}`}},
		{"missing summary key", &mockCompletion{response: `{"sql": "SELECT 1"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewModelParser(tt.client, nil)
			assert.Nil(t, p.Parse(context.Background(), "question", testDevices()))
		})
	}
}

func TestModelParserWithoutCredentialNeverCalls(t *testing.T) {
	p := NewModelParser(nil, nil)
	assert.Nil(t, p.Parse(context.Background(), "question", testDevices()))
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"prose before {\"a\": \"b}\"} prose after", `{"a": "b}"}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"no json here", ""},
		{"{unbalanced", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, extractJSON(tt.in), "input %q", tt.in)
	}
}

func TestChainShortCircuits(t *testing.T) {
	llm := &mockCompletion{response: `{"sql": "SELECT 1", "summary": "x"}`}
	chain := NewChain(nil,
		NewKeywordParser(nil),
		NewModelParser(llm, nil),
	)

	// Deterministic parser matches; the model must not be called.
	q := chain.Parse(context.Background(), "how much energy did the heater use?", testDevices())
	require.NotNil(t, q)
	_, structured := q.(*StructuredQuery)
	assert.True(t, structured)
	assert.Equal(t, 0, llm.calls)

	// Deterministic parser declines; the model takes over.
	q = chain.Parse(context.Background(), "compare weekday vs weekend usage", testDevices())
	require.NotNil(t, q)
	_, raw := q.(*RawQuery)
	assert.True(t, raw)
	assert.Equal(t, 1, llm.calls)
}
