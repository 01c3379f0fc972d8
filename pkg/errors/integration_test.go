package errors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ezoic/gonlp/maxent"
	"github.com/ezoic/gonlp/maxent/quasinewton"
	gonlpErrors "github.com/ezoic/gonlp/pkg/errors"
)

func smallEvents() *maxent.IndexedEvents {
	return &maxent.IndexedEvents{
		EventContexts: [][]int{{0}, {1}},
		EventOutcomes: []int{0, 1},
		EventCounts:   []int{1, 1},
		Predicates:    []string{"p0", "p1"},
		OutcomeNames:  []string{"a", "b"},
	}
}

// TestIndexingErrorChain verifies the error surfaced by indexing an empty
// corpus carries both the ModelError context and the ErrEmptyData sentinel,
// and survives further wrapping.
func TestIndexingErrorChain(t *testing.T) {
	_, err := maxent.IndexEvents(nil, 1)
	if err == nil {
		t.Fatal("expected an error for an empty corpus")
	}

	if !errors.Is(err, gonlpErrors.ErrEmptyData) {
		t.Errorf("expected ErrEmptyData in the chain, got %v", err)
	}

	var modelErr *gonlpErrors.ModelError
	if !errors.As(err, &modelErr) {
		t.Fatalf("expected a ModelError, got %T", err)
	}
	if modelErr.Op != "maxent.IndexEvents" {
		t.Errorf("expected op 'maxent.IndexEvents', got %q", modelErr.Op)
	}

	wrapped := fmt.Errorf("corpus load failed: %w", err)
	if !errors.Is(wrapped, gonlpErrors.ErrEmptyData) {
		t.Errorf("sentinel lost through fmt.Errorf wrapping")
	}
}

// TestTrainerValidationErrors verifies constructor validation surfaces as
// ValueError with the constructing operation's name.
func TestTrainerValidationErrors(t *testing.T) {
	_, err := quasinewton.NewQNTrainer(quasinewton.WithQNL1Cost(-1))
	if err == nil {
		t.Fatal("expected a validation error")
	}

	var valueErr *gonlpErrors.ValueError
	if !errors.As(err, &valueErr) {
		t.Fatalf("expected a ValueError, got %T", err)
	}
	if valueErr.Op != "NewQNTrainer" {
		t.Errorf("expected op 'NewQNTrainer', got %q", valueErr.Op)
	}
}

// TestNotFittedFlow verifies the not-fitted error produced by using a
// trainer before Train, including extraction through a wrapper.
func TestNotFittedFlow(t *testing.T) {
	trainer, err := quasinewton.NewQNTrainer()
	if err != nil {
		t.Fatalf("NewQNTrainer failed: %v", err)
	}

	_, err = trainer.Model()
	if err == nil {
		t.Fatal("expected an error before training")
	}

	wrapped := fmt.Errorf("tagging step failed: %w", err)

	var notFitted *gonlpErrors.NotFittedError
	if !errors.As(wrapped, &notFitted) {
		t.Fatalf("expected a NotFittedError, got %T", err)
	}
	if notFitted.ModelName != "QNTrainer" || notFitted.Method != "Model" {
		t.Errorf("expected QNTrainer.Model, got %s.%s", notFitted.ModelName, notFitted.Method)
	}
}

// TestObjectiveDimensionError verifies shape mismatches carry the expected
// and observed sizes.
func TestObjectiveDimensionError(t *testing.T) {
	f, err := quasinewton.NewNegLogLikelihood(smallEvents())
	if err != nil {
		t.Fatalf("NewNegLogLikelihood failed: %v", err)
	}

	_, err = f.ValueAt(make([]float64, f.Dimension()+1))
	if err == nil {
		t.Fatal("expected a dimension error")
	}

	var dimErr *gonlpErrors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected a DimensionError, got %T", err)
	}
	if dimErr.Expected != f.Dimension() || dimErr.Got != f.Dimension()+1 {
		t.Errorf("expected %d/%d, got %d/%d",
			f.Dimension(), f.Dimension()+1, dimErr.Expected, dimErr.Got)
	}
}

// TestCancellationIsNotAValueError verifies canceled training propagates the
// context error rather than anything from the validation taxonomy.
func TestCancellationIsNotAValueError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trainer, err := quasinewton.NewQNTrainer()
	if err != nil {
		t.Fatalf("NewQNTrainer failed: %v", err)
	}

	_, err = trainer.Train(ctx, smallEvents())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	var valueErr *gonlpErrors.ValueError
	if errors.As(err, &valueErr) {
		t.Errorf("cancellation must not surface as a ValueError")
	}
}
