// Package errors defines the error taxonomy for the reconciliation
// engine. Errors carry a category, a code, optional context and a
// suggestion, plus a stack trace captured at construction.
//
// The taxonomy mirrors how failures propagate through the engine:
// input errors exclude individual rows but never fail a run, model
// incompatibility silently downgrades scoring to the rule-based path,
// and retrain failures stay confined to the background actor.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Category groups errors by the subsystem that raised them.
type Category string

const (
	CategoryInput         Category = "input"
	CategoryParse         Category = "parse"
	CategoryConfiguration Category = "configuration"
	CategoryModel         Category = "model"
	CategoryRetrain       Category = "retrain"
	CategoryInternal      Category = "internal"
)

// Code identifies a specific error condition within a category.
type Code string

const (
	// Input errors: malformed rows, never fatal to a run.
	CodeInvalidAmount Code = "invalid_amount"
	CodeInvalidDate   Code = "invalid_date"
	CodeMissingField  Code = "missing_field"

	// Parse errors: CLI boundary file loading.
	CodeInvalidFormat Code = "invalid_format"
	CodeFileNotFound  Code = "file_not_found"

	// Configuration errors.
	CodeInvalidConfig Code = "invalid_config"

	// Model errors: scoring artifact problems. These downgrade scoring,
	// they do not fail runs.
	CodeModelUnavailable     Code = "model_unavailable"
	CodeModelIncompatible    Code = "model_incompatible"
	CodeModelInvalidArtifact Code = "model_invalid_artifact"

	// Retrain errors: confined to the background actor.
	CodeRetrainFailed    Code = "retrain_failed"
	CodeRetrainThrottled Code = "retrain_throttled"

	// Internal errors.
	CodeUnexpected Code = "unexpected_error"
)

// Error is the engine's error type.
type Error struct {
	Category   Category          `json:"category"`
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context carries additional structured information about an error.
type Context map[string]interface{}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode maps the error category to a CLI exit code.
func (e *Error) ExitCode() int {
	switch e.Category {
	case CategoryParse, CategoryInput:
		return 2
	case CategoryConfiguration:
		return 3
	case CategoryModel, CategoryRetrain, CategoryInternal:
		return 4
	default:
		return 1
	}
}

// WithContext attaches a context key-value pair.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion attaches a remediation hint.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates an Error with a captured stack trace.
func New(category Category, code Code, message string) *Error {
	return &Error{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with taxonomy information.
func Wrap(err error, category Category, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// InputError reports a malformed transaction field. The offending row is
// excluded from matching; the run continues.
func InputError(code Code, field string, value interface{}) *Error {
	return New(CategoryInput, code,
		fmt.Sprintf("invalid input in field %q: %v", field, value)).
		WithContext("field", field).
		WithContext("value", value)
}

// ParseError reports a failure loading a transaction file.
func ParseError(code Code, path string, err error) *Error {
	msg := fmt.Sprintf("failed to load transactions from %s", path)
	var result *Error
	if err != nil {
		result = Wrap(err, CategoryParse, code, msg)
	} else {
		result = New(CategoryParse, code, msg)
	}
	return result.
		WithSuggestion("check the file path and that the file is valid JSON or CSV").
		WithContext("path", path)
}

// ConfigurationError reports an invalid configuration value.
func ConfigurationError(setting string, value interface{}, err error) *Error {
	msg := fmt.Sprintf("invalid configuration for %q: %v", setting, value)
	var result *Error
	if err != nil {
		result = Wrap(err, CategoryConfiguration, CodeInvalidConfig, msg)
	} else {
		result = New(CategoryConfiguration, CodeInvalidConfig, msg)
	}
	return result.WithContext("setting", setting).WithContext("value", value)
}

// ModelError reports a scoring-artifact problem. Callers downgrade to
// rule-based scoring and log; this never surfaces as a run failure.
func ModelError(code Code, detail string, err error) *Error {
	msg := fmt.Sprintf("scoring model %s: %s", code, detail)
	if err != nil {
		return Wrap(err, CategoryModel, code, msg)
	}
	return New(CategoryModel, code, msg)
}

// RetrainError reports a background retrain failure. It is recorded for
// diagnostics only and never propagates to foreground callers.
func RetrainError(detail string, err error) *Error {
	msg := fmt.Sprintf("model retrain failed: %s", detail)
	if err != nil {
		return Wrap(err, CategoryRetrain, CodeRetrainFailed, msg)
	}
	return New(CategoryRetrain, CodeRetrainFailed, msg)
}

// Is reports whether err carries the given category.
func Is(err error, category Category) bool {
	e, ok := As(err)
	return ok && e.Category == category
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr, true
	}
	return nil, false
}

// Summary aggregates multiple errors, used when loading files with
// partially bad rows.
type Summary struct {
	Total      int              `json:"total"`
	ByCategory map[Category]int `json:"by_category"`
	Errors     []*Error         `json:"errors"`
}

// NewSummary builds a summary over the given errors.
func NewSummary(errs []*Error) *Summary {
	summary := &Summary{
		Total:      len(errs),
		ByCategory: make(map[Category]int),
		Errors:     errs,
	}
	for _, e := range errs {
		summary.ByCategory[e.Category]++
	}
	return summary
}

// Error formats the summary as a single message.
func (s *Summary) Error() string {
	if s.Total == 0 {
		return "no errors"
	}
	if s.Total == 1 {
		return s.Errors[0].Error()
	}
	parts := make([]string, 0, len(s.ByCategory))
	for category, count := range s.ByCategory {
		parts = append(parts, fmt.Sprintf("%s: %d", category, count))
	}
	return fmt.Sprintf("%d errors occurred (%s)", s.Total, strings.Join(parts, ", "))
}
