package engine

import (
	"context"
	"encoding/json"
	"log/slog"
)

// ModelParser asks the text-completion service to translate a question into
// a scoped read statement plus a summary template. Model output is untrusted:
// the executor re-validates the statement before anything reaches the store.
//
// Every failure mode declines instead of erroring. A malformed response, a
// transport failure (after the client's single retry), or a missing
// credential all degrade to "could not parse"; nothing from the external
// service is ever surfaced to the caller verbatim.
type ModelParser struct {
	client CompletionClient
	log    *slog.Logger
}

// NewModelParser builds a generative parser. A nil client produces a parser
// that always declines without attempting a call, which is how an absent
// credential is modeled.
func NewModelParser(client CompletionClient, log *slog.Logger) *ModelParser {
	return &ModelParser{client: client, log: log}
}

// modelResponse is the JSON object the parser prompt asks for.
type modelResponse struct {
	SQL     string `json:"sql"`
	Summary string `json:"summary"`
}

func (p *ModelParser) Parse(ctx context.Context, question string, devices []Device) Query {
	if p.client == nil {
		return nil
	}

	response, err := p.client.Complete(ctx, buildParserPrompt(devices), question)
	if err != nil {
		if p.log != nil {
			p.log.Warn("model parser: completion failed", "error", err)
		}
		return nil
	}

	jsonStr := extractJSON(response)
	if jsonStr == "" {
		if p.log != nil {
			p.log.Warn("model parser: no JSON object in response")
		}
		return nil
	}

	var parsed modelResponse
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		if p.log != nil {
			p.log.Warn("model parser: malformed response", "error", err)
		}
		return nil
	}
	if parsed.SQL == "" || parsed.Summary == "" {
		if p.log != nil {
			p.log.Warn("model parser: response missing sql or summary key")
		}
		return nil
	}

	return &RawQuery{Statement: parsed.SQL, SummaryTemplate: parsed.Summary}
}
