package engine

import "fmt"

// ValidationError reports a malformed query representation. Parsers are
// expected to only emit well-formed queries, so seeing one of these means a
// parser bug, not bad user input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid query: " + e.Reason
}

// AuthorizationError reports a scope violation. Category is the only part
// shown to the caller; it never names the identifiers that were denied.
type AuthorizationError struct {
	Category string
}

func (e *AuthorizationError) Error() string {
	return "execution denied: " + e.Category
}

// ExecutionError wraps a store or external-service failure. The wrapped
// cause is logged internally and never surfaced to the caller.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
