package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTemplateSummarizerAggregate(t *testing.T) {
	s := TemplateSummarizer{}

	res := &Result{Metric: MetricSum, Value: floatPtr(123.45), DisplayName: "Office Heater"}
	assert.Equal(t,
		"The sum energy usage for Office Heater was 123.45 Watts.",
		s.Summarize(context.Background(), "", res))

	res = &Result{Metric: MetricAvg, Value: floatPtr(7.5)}
	assert.Equal(t,
		"The avg energy usage for all your devices was 7.50 Watts.",
		s.Summarize(context.Background(), "", res))
}

func TestTemplateSummarizerNoData(t *testing.T) {
	s := TemplateSummarizer{}

	res := &Result{Metric: MetricSum, Value: nil, DisplayName: "Heater"}
	assert.Equal(t,
		"I found no data for Heater in the specified time period.",
		s.Summarize(context.Background(), "", res))
}

func TestTemplateSummarizerRawTemplateVerbatim(t *testing.T) {
	s := TemplateSummarizer{}

	res := &Result{Metric: MetricRaw, SummaryTemplate: "Your busiest device was the AC."}
	assert.Equal(t, "Your busiest device was the AC.", s.Summarize(context.Background(), "", res))

	res = &Result{Metric: MetricRaw}
	assert.Equal(t, fallbackAnswer, s.Summarize(context.Background(), "", res))
}

func TestTemplateSummarizerList(t *testing.T) {
	s := TemplateSummarizer{}

	res := &Result{Metric: MetricList, Readings: []Reading{{Timestamp: time.Now(), EnergyWatts: 3}}}
	assert.Equal(t, fallbackAnswer, s.Summarize(context.Background(), "", res))
}

func TestModelSummarizerUsesCompletion(t *testing.T) {
	client := &mockCompletion{response: "You used 42 Watts overall.\n"}
	s := NewModelSummarizer(client, nil)

	res := &Result{Metric: MetricList, Readings: []Reading{
		{Timestamp: time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC), EnergyWatts: 42},
	}}
	got := s.Summarize(context.Background(), "show me my usage", res)

	assert.Equal(t, "You used 42 Watts overall.", got)
	assert.Contains(t, client.lastUser, "2024-03-14T12:00:00Z", "rows are serialized as plain data")
	assert.Contains(t, client.lastUser, "show me my usage")
}

func TestModelSummarizerFallsBackToApology(t *testing.T) {
	client := &mockCompletion{err: errors.New("service unavailable")}
	s := NewModelSummarizer(client, nil)

	res := &Result{Metric: MetricSum, Value: floatPtr(1)}
	assert.Equal(t, apologyAnswer, s.Summarize(context.Background(), "q", res))
}

func TestModelSummarizerKeepsRawTemplate(t *testing.T) {
	client := &mockCompletion{response: "should not be used"}
	s := NewModelSummarizer(client, nil)

	res := &Result{Metric: MetricRaw, SummaryTemplate: "Precomputed answer."}
	assert.Equal(t, "Precomputed answer.", s.Summarize(context.Background(), "q", res))
	assert.Equal(t, 0, client.calls, "parse-time template is never regenerated")
}
