package models

import (
	"errors"
	"fmt"
)

// ErrBudgetExceeded is returned when a stream acquisition would exceed the
// descriptor or memory ceiling under the non-blocking policy, or when a
// single request can never fit the budget.
var ErrBudgetExceeded = errors.New("resource budget exceeded")

// ErrStoppedEarly is the verdict error of pairs left uncompared because
// the run stopped at its first difference
var ErrStoppedEarly = errors.New("stopped at first difference")

// ClassificationError reports an entry that could not be read for
// classification (permission, I/O fault)
type ClassificationError struct {
	Path string
	Err  error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify %s: %v", e.Path, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// ExpansionError reports a container that claims its kind but fails to
// decode, such as a truncated tar header
type ExpansionError struct {
	Path string
	Kind Kind
	Err  error
}

func (e *ExpansionError) Error() string {
	return fmt.Sprintf("expand %s %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ExpansionError) Unwrap() error { return e.Err }

// StrategyError reports an internal failure of a comparison strategy
type StrategyError struct {
	Strategy string
	Path     string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s strategy on %s: %v", e.Strategy, e.Path, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
