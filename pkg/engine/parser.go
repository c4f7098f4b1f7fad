package engine

import (
	"context"
	"log/slog"
)

// Parser converts question text into a Query. A parser that cannot
// interpret the question declines by returning nil rather than failing;
// internal failures (network, malformed model output) are logged by the
// parser itself and also surface as a decline.
type Parser interface {
	Parse(ctx context.Context, question string, devices []Device) Query
}

// Chain tries parsers strictly in order. The first non-nil query wins and
// short-circuits the rest; when every parser declines, the question is
// unanswerable.
type Chain struct {
	parsers []Parser
	log     *slog.Logger
}

// NewChain builds a parser chain. The logger may be nil.
func NewChain(log *slog.Logger, parsers ...Parser) *Chain {
	return &Chain{parsers: parsers, log: log}
}

func (c *Chain) Parse(ctx context.Context, question string, devices []Device) Query {
	for _, p := range c.parsers {
		if ctx.Err() != nil {
			return nil
		}
		q := p.Parse(ctx, question, devices)
		if q == nil {
			continue
		}
		if c.log != nil {
			c.log.Debug("parser chain: interpreted question", "parser", parserName(p))
		}
		return q
	}
	return nil
}

func parserName(p Parser) string {
	switch p.(type) {
	case *KeywordParser:
		return "keyword"
	case *ModelParser:
		return "model"
	default:
		return "unknown"
	}
}
