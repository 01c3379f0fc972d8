// Package metrics provides evaluation metrics for classification over
// outcome indices, as produced by maxent models.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	gonlpErrors "github.com/ezoic/gonlp/pkg/errors"
)

// ClassificationError calculates the fraction of misclassified outcomes.
//
// Parameters:
//   - yTrue: Ground truth outcome indices
//   - yPred: Predicted outcome indices
//
// Returns:
//   - The error rate (between 0 and 1)
//   - An error if inputs are invalid
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, gonlpErrors.NewValueError(
			"ClassificationError",
			"input vectors cannot be nil",
		)
	}

	n := yTrue.Len()
	if n == 0 {
		return 0, gonlpErrors.NewValueError(
			"ClassificationError",
			"input vectors cannot be empty",
		)
	}

	if n != yPred.Len() {
		return 0, gonlpErrors.NewDimensionError(
			"ClassificationError",
			n,
			yPred.Len(),
			0,
		)
	}

	wrong := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) != yPred.AtVec(i) {
			wrong++
		}
	}

	return float64(wrong) / float64(n), nil
}

// Accuracy calculates the classification accuracy, the fraction of correct
// predictions.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	errorRate, err := ClassificationError(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1.0 - errorRate, nil
}

// LogLoss calculates the mean negative log-probability that a model's
// predicted distributions assign to the true outcomes. probs holds one
// probability distribution per sample; yTrue holds the true outcome index
// per sample. Probabilities are clamped away from zero to keep the loss
// finite.
func LogLoss(yTrue []int, probs [][]float64) (float64, error) {
	const op = "LogLoss"
	const eps = 1e-15

	if len(yTrue) == 0 {
		return 0, gonlpErrors.NewValueError(op, "input cannot be empty")
	}
	if len(yTrue) != len(probs) {
		return 0, gonlpErrors.NewDimensionError(op, len(yTrue), len(probs), 0)
	}

	loss := 0.0
	for i, outcome := range yTrue {
		if outcome < 0 || outcome >= len(probs[i]) {
			return 0, gonlpErrors.NewValueError(op, "outcome index out of range")
		}
		p := probs[i][outcome]
		if p < eps {
			p = eps
		}
		loss -= math.Log(p)
	}
	return loss / float64(len(yTrue)), nil
}
