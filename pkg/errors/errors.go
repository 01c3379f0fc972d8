// Package errors defines the error taxonomy shared by all gonlp packages.
//
// Errors fall into a small number of concrete types so that callers can
// dispatch with errors.As, plus a few sentinel values for errors.Is checks.
// All constructors are backed by cockroachdb/errors, which records stack
// traces retrievable with %+v formatting.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors for common failure conditions.
var (
	// ErrEmptyData indicates an operation received no data to work on.
	ErrEmptyData = errors.New("empty data")

	// ErrNotImplemented indicates a requested capability is not available.
	ErrNotImplemented = errors.New("not implemented")
)

// ValueError indicates an argument or hyperparameter whose value is invalid.
type ValueError struct {
	Op      string // operation that rejected the value
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("gonlp: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError for the given operation.
func NewValueError(op, message string) *ValueError {
	return &ValueError{Op: op, Message: message}
}

// DimensionError indicates a vector or matrix whose size disagrees with
// what the operation expects.
type DimensionError struct {
	Op        string
	Expected  int
	Got       int
	Dimension int // which axis disagreed, 0 for flat vectors
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("gonlp: %s: dimension %d mismatch: expected %d, got %d",
		e.Op, e.Dimension, e.Expected, e.Got)
}

// NewDimensionError creates a DimensionError for the given operation.
func NewDimensionError(op string, expected, got, dimension int) *DimensionError {
	return &DimensionError{Op: op, Expected: expected, Got: got, Dimension: dimension}
}

// NotFittedError indicates a model was used before training completed.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("gonlp: %s.%s called before Fit", e.ModelName, e.Method)
}

// NewNotFittedError creates a NotFittedError for the given model and method.
func NewNotFittedError(modelName, method string) *NotFittedError {
	return &NotFittedError{ModelName: modelName, Method: method}
}

// ModelError wraps a lower-level cause with model/operation context.
// It participates in errors.Is / errors.As chains through Unwrap.
type ModelError struct {
	Op      string
	Message string
	Cause   error
}

func (e *ModelError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("gonlp: %s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("gonlp: %s: %s", e.Op, e.Message)
}

func (e *ModelError) Unwrap() error {
	return e.Cause
}

// NewModelError creates a ModelError wrapping cause (which may be nil).
func NewModelError(op, message string, cause error) *ModelError {
	return &ModelError{Op: op, Message: message, Cause: cause}
}

// Newf creates an ad-hoc error with a formatted message and stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// Wrap annotates err with a message, preserving the chain. Returns nil if
// err is nil.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message, preserving the chain.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
