package errors_test

import (
	"errors"
	"fmt"

	gonlpErrors "github.com/ezoic/gonlp/pkg/errors"
)

// Example demonstrates Go 1.13+ error wrapping
func Example() {
	// Create a base error
	baseErr := fmt.Errorf("invalid input value")

	// Wrap the error with context using Go 1.13+ syntax
	wrappedErr := fmt.Errorf("hyperparameter validation failed: %w", baseErr)

	// Further wrap with operation context
	opErr := fmt.Errorf("QNTrainer.Train: %w", wrappedErr)

	// Use errors.Is to check for specific error types
	if errors.Is(opErr, baseErr) {
		fmt.Println("Found base error in chain")
	}

	// Unwrap errors to get the underlying cause
	unwrapped := errors.Unwrap(opErr)
	fmt.Printf("Unwrapped: %v\n", unwrapped)

	// Output: Found base error in chain
	// Unwrapped: hyperparameter validation failed: invalid input value
}

// Example_customErrorTypes demonstrates custom error type handling
func Example_customErrorTypes() {
	// Create a custom error using our error constructors
	dimErr := gonlpErrors.NewDimensionError("ValueAt", 6, 4, 0)

	// Wrap it with additional context
	wrappedErr := fmt.Errorf("objective evaluation failed: %w", dimErr)

	// Check if error is of specific type using errors.As
	var dimensionErr *gonlpErrors.DimensionError
	if errors.As(wrappedErr, &dimensionErr) {
		fmt.Printf("Dimension error: expected %d, got %d\n",
			dimensionErr.Expected, dimensionErr.Got)
	}

	// Output: Dimension error: expected 6, got 4
}

// Example_errorComparison demonstrates error comparison patterns
func Example_errorComparison() {
	// Create different types of errors
	notFittedErr := gonlpErrors.NewNotFittedError("MaxentModel", "Eval")
	valueErr := gonlpErrors.NewValueError("NewQNTrainer", "l1 cost must be >= 0")

	// Create a sentinel error for comparison
	customErr := errors.New("custom processing error")
	wrappedCustom := fmt.Errorf("operation failed: %w", customErr)

	// Use errors.Is for sentinel error checking
	if errors.Is(wrappedCustom, customErr) {
		fmt.Println("Custom error detected")
	}

	// Use errors.As for type assertions
	var notFitted *gonlpErrors.NotFittedError
	if errors.As(notFittedErr, &notFitted) {
		fmt.Printf("Model %s is not fitted for %s\n",
			notFitted.ModelName, notFitted.Method)
	}

	var valErr *gonlpErrors.ValueError
	if errors.As(valueErr, &valErr) {
		fmt.Printf("Value error in %s: %s\n", valErr.Op, valErr.Message)
	}

	// Output: Custom error detected
	// Model MaxentModel is not fitted for Eval
	// Value error in NewQNTrainer: l1 cost must be >= 0
}

// Example_errorChaining demonstrates practical error chaining in training pipelines
func Example_errorChaining() {
	// Simulate a training pipeline error
	simulateTrainError := func() error {
		// Simulate data validation error
		dataErr := fmt.Errorf("invalid event format")

		// Wrap with indexing context
		indexErr := fmt.Errorf("event indexing failed: %w", dataErr)

		// Wrap with model training context
		trainErr := fmt.Errorf("model training failed: %w", indexErr)

		return trainErr
	}

	err := simulateTrainError()

	// Print the full error chain
	fmt.Printf("Error: %v\n", err)

	// Walk through the error chain
	current := err
	level := 0
	for current != nil {
		fmt.Printf("Level %d: %v\n", level, current)
		current = errors.Unwrap(current)
		level++
	}

	// Output: Error: model training failed: event indexing failed: invalid event format
	// Level 0: model training failed: event indexing failed: invalid event format
	// Level 1: event indexing failed: invalid event format
	// Level 2: invalid event format
}

// Example_errorLogging demonstrates structured error logging
func Example_errorLogging() {
	// Create a complex error with context
	baseErr := gonlpErrors.NewModelError("QNMinimizer", "line search stalled",
		gonlpErrors.ErrNotImplemented)

	// Wrap with operation context
	opErr := fmt.Errorf("optimization iteration 150: %w", baseErr)

	// Would log different levels of detail in production
	// slog.Error("Simple error", "error", opErr)
	// slog.Error("Detailed error", "error", fmt.Sprintf("%+v", opErr)) // Stack trace with cockroachdb/errors

	// For production, you'd use structured logging
	fmt.Printf("Error occurred during optimization: %v\n", opErr)

	// Output: Error occurred during optimization: optimization iteration 150: gonlp: QNMinimizer: line search stalled: not implemented
}
