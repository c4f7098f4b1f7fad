package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// listLimit caps LIST results to the most recent rows.
const listLimit = 100

// Reading is one telemetry point returned by a LIST query.
type Reading struct {
	Timestamp   time.Time
	EnergyWatts float64
}

// Store is the telemetry read surface the executor drives. Implementations
// must treat RawRead statements as untrusted and refuse anything that is not
// a SELECT as a defense-in-depth backstop behind the executor's own gate.
type Store interface {
	Aggregate(ctx context.Context, metric Metric, deviceIDs []uuid.UUID, start, end time.Time) (*float64, error)
	ListReadings(ctx context.Context, deviceIDs []uuid.UUID, start, end time.Time, limit int) ([]Reading, error)
	RawRead(ctx context.Context, statement string, userID uuid.UUID) ([]map[string]any, error)
}

// Result is the normalized outcome of executing a query. It lives for one
// orchestration call and carries through whatever display hints or summary
// template the query supplied.
type Result struct {
	Metric Metric

	// Value holds the aggregate for SUM/AVG/MIN/MAX. nil means no rows
	// matched; a null aggregate is represented, never treated as zero.
	Value *float64

	// Readings holds the LIST payload, most recent first.
	Readings []Reading

	// Rows holds the raw-path payload as opaque column->value mappings,
	// with every value already reduced to a representable primitive.
	Rows []map[string]any

	DisplayName     string
	SummaryTemplate string

	// Statement is the executed raw statement, kept for debug surfaces
	// only. Empty for structured queries.
	Statement string
}

// Executor applies the authorization gate to a query and runs it against the
// store. It is stateless and safe for concurrent use.
type Executor struct {
	store Store
	log   *slog.Logger
}

func NewExecutor(store Store, log *slog.Logger) *Executor {
	return &Executor{store: store, log: log}
}

// Execute dispatches on the closed query variant. It returns
// *AuthorizationError for scope violations and *ExecutionError for store
// failures; callers map both to safe messages.
func (e *Executor) Execute(ctx context.Context, q Query, user User) (*Result, error) {
	switch q := q.(type) {
	case *StructuredQuery:
		return e.executeStructured(ctx, q, user)
	case *RawQuery:
		return e.executeRaw(ctx, q, user)
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown query kind %T", q)}
	}
}

func (e *Executor) executeStructured(ctx context.Context, q *StructuredQuery, user User) (*Result, error) {
	owned := make(map[uuid.UUID]struct{}, len(user.Devices))
	for _, d := range user.Devices {
		owned[d.ID] = struct{}{}
	}
	for _, id := range q.DeviceIDs {
		if _, ok := owned[id]; !ok {
			// Category only: the denied identifiers are never named, and
			// their existence is neither confirmed nor denied.
			return nil, &AuthorizationError{Category: "unauthorized devices"}
		}
	}

	if q.Metric == MetricList {
		readings, err := e.store.ListReadings(ctx, q.DeviceIDs, q.Start, q.End, listLimit)
		if err != nil {
			return nil, &ExecutionError{Err: err}
		}
		return &Result{
			Metric:      MetricList,
			Readings:    readings,
			DisplayName: q.DisplayName,
		}, nil
	}

	value, err := e.store.Aggregate(ctx, q.Metric, q.DeviceIDs, q.Start, q.End)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}
	return &Result{
		Metric:      q.Metric,
		Value:       value,
		DisplayName: q.DisplayName,
	}, nil
}

// executeRaw gates a model-generated statement and runs it. The gate is
// syntactic: only the leading keyword is checked, and row-level scoping is
// delegated to the parser prompt's contract, with the bound user id supplied
// here rather than taken from model output. Statically verifying the scoping
// predicate would be the stricter design; that gap is deliberate.
func (e *Executor) executeRaw(ctx context.Context, q *RawQuery, user User) (*Result, error) {
	stmt := strings.TrimSpace(q.Statement)
	if !strings.HasPrefix(strings.ToUpper(stmt), "SELECT") {
		return nil, &AuthorizationError{Category: "only read-only statements are allowed"}
	}

	rows, err := e.store.RawRead(ctx, stmt, user.ID)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}

	return &Result{
		Metric:          MetricRaw,
		Rows:            rows,
		SummaryTemplate: q.SummaryTemplate,
		Statement:       stmt,
	}, nil
}
