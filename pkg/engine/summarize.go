package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	// fallbackAnswer covers results that carry data but no template and no
	// scalar to phrase.
	fallbackAnswer = "Here is the data I found."

	// apologyAnswer is returned when the generative summarizer fails; it
	// never propagates the underlying error.
	apologyAnswer = "I'm sorry, I wasn't able to summarize the data I found."
)

// Summarizer turns an executed Result into the final answer text. It must
// not fail: strategies degrade to fixed strings instead of returning errors.
type Summarizer interface {
	Summarize(ctx context.Context, question string, res *Result) string
}

// TemplateSummarizer renders answers from fixed sentence templates. Raw-path
// results return the summary template generated at parse time verbatim; it
// is never regenerated from the data.
type TemplateSummarizer struct{}

func (TemplateSummarizer) Summarize(_ context.Context, _ string, res *Result) string {
	if res.Metric == MetricRaw {
		if res.SummaryTemplate != "" {
			return res.SummaryTemplate
		}
		return fallbackAnswer
	}

	device := res.DisplayName
	if device == "" {
		device = "all your devices"
	}

	if res.Metric.IsAggregate() {
		if res.Value == nil {
			return fmt.Sprintf("I found no data for %s in the specified time period.", device)
		}
		return fmt.Sprintf("The %s energy usage for %s was %.2f Watts.",
			strings.ToLower(string(res.Metric)), device, *res.Value)
	}

	return fallbackAnswer
}

// ModelSummarizer asks the text-completion service to phrase the result in
// light of the original question. The raw-path template still wins when
// present (it was generated once, at parse time); everything else is
// serialized to plain data and summarized. Any failure falls back to a fixed
// apology rather than propagating.
type ModelSummarizer struct {
	client CompletionClient
	log    *slog.Logger
}

func NewModelSummarizer(client CompletionClient, log *slog.Logger) *ModelSummarizer {
	return &ModelSummarizer{client: client, log: log}
}

func (s *ModelSummarizer) Summarize(ctx context.Context, question string, res *Result) string {
	if res.Metric == MetricRaw && res.SummaryTemplate != "" {
		return res.SummaryTemplate
	}
	if s.client == nil {
		return TemplateSummarizer{}.Summarize(ctx, question, res)
	}

	payload, err := json.Marshal(serializeResult(res))
	if err != nil {
		if s.log != nil {
			s.log.Warn("model summarizer: serialize failed", "error", err)
		}
		return apologyAnswer
	}

	userPrompt := fmt.Sprintf("Question: %s\n\nData:\n%s", question, payload)
	answer, err := s.client.Complete(ctx, summarizerPrompt, userPrompt)
	if err != nil {
		if s.log != nil {
			s.log.Warn("model summarizer: completion failed", "error", err)
		}
		return apologyAnswer
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return apologyAnswer
	}
	return answer
}

// serializeResult reduces a Result to plain data for the completion service:
// numbers, strings, and RFC 3339 timestamps only.
func serializeResult(res *Result) map[string]any {
	out := map[string]any{"metric": string(res.Metric)}
	if res.DisplayName != "" {
		out["device"] = res.DisplayName
	}

	switch {
	case res.Metric.IsAggregate():
		if res.Value != nil {
			out["value_watts"] = *res.Value
		} else {
			out["value_watts"] = nil
		}
	case res.Metric == MetricList:
		out["readings"] = readingsToRows(res.Readings)
	default:
		out["rows"] = res.Rows
	}
	return out
}

// readingsToRows converts LIST readings to the same opaque row shape the
// raw path produces.
func readingsToRows(readings []Reading) []map[string]any {
	rows := make([]map[string]any, len(readings))
	for i, r := range readings {
		rows[i] = map[string]any{
			"timestamp":    r.Timestamp.UTC().Format(time.RFC3339),
			"energy_usage": r.EnergyWatts,
		}
	}
	return rows
}
