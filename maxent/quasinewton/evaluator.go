package quasinewton

import (
	"github.com/ezoic/gonlp/core/vecmath"
	"github.com/ezoic/gonlp/maxent"
)

// ModelEvaluator measures the training-set accuracy of a candidate
// parameter vector: per event, the arg-max outcome of the model scores is
// compared to the observed outcome, weighted by times seen. It shares the
// flat parameter layout with NegLogLikelihood.
type ModelEvaluator struct {
	numOutcomes int
	numFeatures int

	contexts [][]int
	values   [][]float64
	outcomes []int
	counts   []int

	scores []float64 // scratch
}

var _ Evaluator = (*ModelEvaluator)(nil)

// NewModelEvaluator builds an evaluator over a completed event set.
func NewModelEvaluator(data maxent.DataIndexer) *ModelEvaluator {
	return &ModelEvaluator{
		numOutcomes: len(data.OutcomeLabels()),
		numFeatures: len(data.PredLabels()),
		contexts:    data.Contexts(),
		values:      data.Values(),
		outcomes:    data.Outcomes(),
		counts:      data.Counts(),
		scores:      make([]float64, len(data.OutcomeLabels())),
	}
}

// Evaluate returns the fraction of (count-weighted) events whose most
// probable outcome under x matches the observed outcome. The softmax is
// monotone, so arg-max over raw linear scores suffices.
func (e *ModelEvaluator) Evaluate(x []float64) float64 {
	correct, total := 0, 0
	for ci := range e.contexts {
		for oi := 0; oi < e.numOutcomes; oi++ {
			sum := 0.0
			for j, feature := range e.contexts[ci] {
				v := 1.0
				if e.values != nil && e.values[ci] != nil {
					v = e.values[ci][j]
				}
				sum += v * x[oi*e.numFeatures+feature]
			}
			e.scores[oi] = sum
		}
		total += e.counts[ci]
		if vecmath.MustMaxID(e.scores) == e.outcomes[ci] {
			correct += e.counts[ci]
		}
	}
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}
