// Package engine implements the conversational query engine: it interprets a
// free-text question from an authenticated user, executes the interpretation
// against that user's own telemetry under ownership constraints, and renders
// a natural-language answer.
//
// Interpretation is a two-stage fallback chain. A deterministic keyword
// parser runs first; a generative parser backed by a text-completion service
// runs only when the deterministic one declines. Whichever parser wins, the
// executor re-checks scope before anything reaches the store.
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Metric is the aggregation or listing mode of a structured query.
type Metric string

const (
	MetricSum  Metric = "SUM"
	MetricAvg  Metric = "AVG"
	MetricMin  Metric = "MIN"
	MetricMax  Metric = "MAX"
	MetricList Metric = "LIST"

	// MetricRaw tags results produced by a raw statement rather than a
	// structured query. It is never valid inside a StructuredQuery.
	MetricRaw Metric = "RAW"
)

func (m Metric) valid() bool {
	switch m {
	case MetricSum, MetricAvg, MetricMin, MetricMax, MetricList:
		return true
	}
	return false
}

// IsAggregate reports whether the metric reduces matching rows to a single
// scalar.
func (m Metric) IsAggregate() bool {
	switch m {
	case MetricSum, MetricAvg, MetricMin, MetricMax:
		return true
	}
	return false
}

// Device is a smart-home device as the engine sees it: an identifier and a
// display name, already scoped to the requesting user by the caller.
type Device struct {
	ID   uuid.UUID
	Name string
}

// User identifies the caller of one Answer call together with the devices
// they own. The engine never looks devices up itself; ownership is settled
// before the question enters the engine.
type User struct {
	ID      uuid.UUID
	Devices []Device
}

// Query is the outcome of interpreting a question. The variant is closed: a
// query is either structured (typed, trusted parameters) or raw (a
// model-generated statement that the executor gates at execution time).
type Query interface {
	query()
}

// StructuredQuery is an aggregation or listing request built from trusted,
// typed parameters by the deterministic parser.
type StructuredQuery struct {
	Metric    Metric
	DeviceIDs []uuid.UUID
	Start     time.Time
	End       time.Time

	// DisplayName is the resolved device name used when phrasing the
	// summary. Set only when the query targets exactly one device.
	DisplayName string
}

func (*StructuredQuery) query() {}

// NewStructuredQuery builds a StructuredQuery, rejecting an unknown metric,
// an empty device set, or an inverted time range.
func NewStructuredQuery(metric Metric, deviceIDs []uuid.UUID, start, end time.Time, displayName string) (*StructuredQuery, error) {
	if !metric.valid() {
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported metric %q", metric)}
	}
	if len(deviceIDs) == 0 {
		return nil, &ValidationError{Reason: "empty device set"}
	}
	if end.Before(start) {
		return nil, &ValidationError{Reason: "time range ends before it starts"}
	}
	return &StructuredQuery{
		Metric:      metric,
		DeviceIDs:   deviceIDs,
		Start:       start,
		End:         end,
		DisplayName: displayName,
	}, nil
}

// RawQuery is a read statement produced by the generative parser together
// with the answer text precomputed at parse time. Its safety cannot be
// judged outside execution context, so construction performs no validation;
// the executor's authorization gate does.
type RawQuery struct {
	Statement       string
	SummaryTemplate string
}

func (*RawQuery) query() {}
