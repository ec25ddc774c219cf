package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by lookups that find nothing.
var ErrNotFound = errors.New("not found")

// ConfigErrorKind classifies a ConfigurationError.
type ConfigErrorKind string

const (
	UnresolvableType     ConfigErrorKind = "unresolvable_type"
	UnresolvableAccessor ConfigErrorKind = "unresolvable_accessor"
	UnresolvableStrategy ConfigErrorKind = "unresolvable_strategy"
	InvalidParams        ConfigErrorKind = "invalid_params"
)

// ConfigurationError reports an operation descriptor that cannot be bound.
// It is never retried.
type ConfigurationError struct {
	Kind    ConfigErrorKind
	Locator string
	Msg     string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("improperly configured (%s): %s", e.Kind, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is a ConfigurationError of the
// given kind. An empty kind matches any ConfigurationError.
func IsConfigurationError(err error, kind ConfigErrorKind) bool {
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		return false
	}
	return kind == "" || cfgErr.Kind == kind
}

// StrategyExecutionError reports a failure raised while a strategy was
// mutating records. It aborts the whole merge.
type StrategyExecutionError struct {
	Strategy string
	Model    string
	Err      error
}

func (e *StrategyExecutionError) Error() string {
	return fmt.Sprintf("%s failed on %s: %v", e.Strategy, e.Model, e.Err)
}

func (e *StrategyExecutionError) Unwrap() error {
	return e.Err
}

// ETagMismatchError is returned when an etag doesn't match
type ETagMismatchError struct {
	Expected int64
	Actual   int64
}

func (e *ETagMismatchError) Error() string {
	return fmt.Sprintf("etag mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// CheckETag validates an etag against the current value
func CheckETag(expected, actual int64) error {
	if expected != actual {
		return &ETagMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}
