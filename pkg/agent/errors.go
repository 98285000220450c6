package agent

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError reports input or output that fails its schema. Never
// retried. The message carries the offending field paths.
type ValidationError struct {
	Agent   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed: %s", e.Agent, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// TimeoutError reports an agent that exceeded its deadline.
type TimeoutError struct {
	Agent   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Agent, e.Timeout)
}

// ReasoningError reports a model failure: no candidates, unparseable output,
// or failed post-processing.
type ReasoningError struct {
	Agent   string
	Message string
	Err     error
}

func (e *ReasoningError) Error() string {
	return fmt.Sprintf("%s: reasoning failed: %s", e.Agent, e.Message)
}

func (e *ReasoningError) Unwrap() error { return e.Err }

// ToolError reports a tool handler failure. Fed back to the model as an
// error payload rather than propagated.
type ToolError struct {
	Tool    string
	Message string
	Err     error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s failed: %s", e.Tool, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Err }

// DataFetchError reports a data-source failure.
type DataFetchError struct {
	Source  string
	Message string
	Err     error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("data fetch from %s failed: %s", e.Source, e.Message)
}

func (e *DataFetchError) Unwrap() error { return e.Err }

// OrchestrationError is the only fatal case: the hard ceiling was exceeded
// with no partial results to assemble.
type OrchestrationError struct {
	Message string
	Err     error
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("orchestration failed: %s", e.Message)
}

func (e *OrchestrationError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt could succeed. Timeouts and
// reasoning failures are transient; validation failures are not.
func Retryable(err error) bool {
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	var re *ReasoningError
	if errors.As(err, &re) {
		return true
	}
	return false
}
