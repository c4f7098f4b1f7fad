package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// metricKeywords maps question phrases to metrics. Order is load-bearing:
// the first matching entry wins, so "how much energy did my max-rated heater
// use" is a SUM, not a MAX.
var metricKeywords = []struct {
	metric  Metric
	phrases []string
}{
	{MetricSum, []string{"how much", "total"}},
	{MetricAvg, []string{"average", "avg"}},
	{MetricMax, []string{"highest", "max", "most"}},
	{MetricMin, []string{"lowest", "min", "least"}},
	{MetricList, []string{"list", "show me"}},
}

// KeywordParser is the deterministic rule-based interpreter. It is pure and
// total: the same question and device list always produce the same query,
// with no external calls. Its only failure mode is declining.
type KeywordParser struct {
	clock clockwork.Clock
}

// NewKeywordParser builds a keyword parser. The clock drives the resolution
// of relative time phrases; pass nil for the real clock.
func NewKeywordParser(clock clockwork.Clock) *KeywordParser {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &KeywordParser{clock: clock}
}

func (p *KeywordParser) Parse(_ context.Context, question string, devices []Device) Query {
	q := strings.ToLower(question)

	metric, ok := matchMetric(q)
	if !ok {
		return nil
	}

	targets := matchDevices(q, devices)
	if len(targets) == 0 {
		return nil
	}

	start, end := timeWindow(q, p.clock.Now())

	displayName := ""
	if len(targets) == 1 {
		displayName = targets[0].Name
	}

	ids := make([]uuid.UUID, len(targets))
	for i, d := range targets {
		ids[i] = d.ID
	}

	sq, err := NewStructuredQuery(metric, ids, start, end, displayName)
	if err != nil {
		// Unreachable with a non-empty target set; decline rather than guess.
		return nil
	}
	return sq
}

func matchMetric(q string) (Metric, bool) {
	for _, mk := range metricKeywords {
		for _, phrase := range mk.phrases {
			if strings.Contains(q, phrase) {
				return mk.metric, true
			}
		}
	}
	return "", false
}

// matchDevices selects every owned device whose name appears in the
// question. When no name matches, the full owned set is used so that bare
// "show me my usage" questions stay answerable; this silently widens the
// query's scope, and an explicit "which device?" outcome is the stricter
// alternative.
func matchDevices(q string, devices []Device) []Device {
	var found []Device
	for _, d := range devices {
		if strings.Contains(q, strings.ToLower(d.Name)) {
			found = append(found, d)
		}
	}
	if len(found) > 0 {
		return found
	}
	return devices
}
