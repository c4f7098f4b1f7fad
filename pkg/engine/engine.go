package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

const answerUnparsed = "I'm sorry, I couldn't understand that question."

const answerFailed = "Sorry, something went wrong while answering your question."

// Answer is the engine's reply to one question. Data is populated only for
// non-aggregate results (LIST and raw-path); DebugStatement only for the
// raw path.
type Answer struct {
	Summary        string           `json:"summary"`
	Data           []map[string]any `json:"data,omitempty"`
	DebugStatement string           `json:"sql_query_for_debug,omitempty"`
}

// Config holds the engine's dependencies.
type Config struct {
	Logger *slog.Logger
	Store  Store

	// Parsers are tried strictly in order. Typically the keyword parser
	// followed by the model parser.
	Parsers []Parser

	// Summarizer defaults to TemplateSummarizer when nil.
	Summarizer Summarizer
}

// Engine orchestrates parse, execute, and summarize for one question at a
// time. It holds no per-call state and is safe for concurrent use.
type Engine struct {
	chain      *Chain
	executor   *Executor
	summarizer Summarizer
	log        *slog.Logger
}

func New(cfg *Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if len(cfg.Parsers) == 0 {
		return nil, fmt.Errorf("at least one parser is required")
	}
	summarizer := cfg.Summarizer
	if summarizer == nil {
		summarizer = TemplateSummarizer{}
	}
	return &Engine{
		chain:      NewChain(cfg.Logger, cfg.Parsers...),
		executor:   NewExecutor(cfg.Store, cfg.Logger),
		summarizer: summarizer,
		log:        cfg.Logger,
	}, nil
}

// Answer interprets and answers a question for the given user. It never
// returns an error: every failure is mapped to a user-safe answer, with the
// underlying cause logged internally only. Cancellation of ctx aborts both
// the store read and any in-flight completion call.
func (e *Engine) Answer(ctx context.Context, question string, user User) *Answer {
	q := e.chain.Parse(ctx, question, user.Devices)
	if q == nil {
		questionsTotal.WithLabelValues(outcomeUnparsed).Inc()
		return &Answer{Summary: answerUnparsed}
	}

	res, err := e.executor.Execute(ctx, q, user)
	if err != nil {
		var authErr *AuthorizationError
		if errors.As(err, &authErr) {
			questionsTotal.WithLabelValues(outcomeDenied).Inc()
			if e.log != nil {
				e.log.Info("engine: execution denied", "category", authErr.Category)
			}
			return &Answer{Summary: fmt.Sprintf("Execution denied: %s.", authErr.Category)}
		}
		questionsTotal.WithLabelValues(outcomeFailed).Inc()
		if e.log != nil {
			e.log.Error("engine: execution failed", "error", err)
		}
		return &Answer{Summary: answerFailed}
	}

	answer := &Answer{Summary: e.summarizer.Summarize(ctx, question, res)}
	switch res.Metric {
	case MetricList:
		answer.Data = readingsToRows(res.Readings)
	case MetricRaw:
		answer.Data = res.Rows
		answer.DebugStatement = res.Statement
	}

	questionsTotal.WithLabelValues(outcomeAnswered).Inc()
	return answer
}
