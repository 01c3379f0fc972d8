// Package quasinewton fits maximum-entropy model parameters with a
// limited-memory quasi-Newton (L-BFGS) minimizer, including the
// orthant-wise (OWL-QN) variant for L1 regularization.
//
// The pieces compose as: NegLogLikelihood (or its parallel variant)
// computes the corpus objective and gradient; L2RegFunction decorates it
// with a ridge penalty; QNMinimizer drives iterations of two-loop direction
// computation, backtracking line search and curvature updates; QNTrainer
// wires everything together and reassembles the optimized flat vector into
// a sparse maxent.Model.
package quasinewton

import (
	"math"

	"github.com/ezoic/gonlp/core/vecmath"
	"github.com/ezoic/gonlp/maxent"
	"github.com/ezoic/gonlp/pkg/errors"
)

// Function is an objective with analytic gradient, evaluated at points of a
// fixed dimension.
type Function interface {
	Dimension() int
	ValueAt(x []float64) (float64, error)
	GradientAt(x []float64) ([]float64, error)
}

// NegLogLikelihood is the negative log-likelihood of a conditional maxent
// model over a fixed set of indexed events. The parameter vector is flat
// with layout x[outcome*numFeatures+feature]; value and gradient use the
// same indexOf arithmetic so they can never disagree on layout.
//
// The gradient buffer is allocated once and reused across calls; callers
// that need to retain a gradient must copy it.
type NegLogLikelihood struct {
	dimension   int
	numOutcomes int
	numFeatures int
	numContexts int

	contexts [][]int
	values   [][]float64
	outcomes []int
	counts   []int

	// scratch, reused across calls
	tempSums []float64
	gradient []float64
	expect   []float64
}

// NewNegLogLikelihood builds the objective over a completed event set.
func NewNegLogLikelihood(data maxent.DataIndexer) (*NegLogLikelihood, error) {
	const op = "NewNegLogLikelihood"
	numFeatures := len(data.PredLabels())
	numOutcomes := len(data.OutcomeLabels())
	if numFeatures == 0 || numOutcomes == 0 {
		return nil, errors.NewModelError(op, "event set has no predicates or outcomes", errors.ErrEmptyData)
	}
	if len(data.Contexts()) == 0 {
		return nil, errors.NewModelError(op, "event set has no events", errors.ErrEmptyData)
	}
	f := &NegLogLikelihood{
		dimension:   numOutcomes * numFeatures,
		numOutcomes: numOutcomes,
		numFeatures: numFeatures,
		numContexts: len(data.Contexts()),
		contexts:    data.Contexts(),
		values:      data.Values(),
		outcomes:    data.Outcomes(),
		counts:      data.Counts(),
	}
	f.tempSums = make([]float64, numOutcomes)
	f.expect = make([]float64, numOutcomes)
	f.gradient = make([]float64, f.dimension)
	return f, nil
}

// Dimension returns numOutcomes * numFeatures.
func (f *NegLogLikelihood) Dimension() int { return f.dimension }

func (f *NegLogLikelihood) indexOf(outcome, feature int) int {
	return outcome*f.numFeatures + feature
}

// predValue returns the real value of the j-th active feature of event ci,
// 1.0 when no value vector is attached.
func (f *NegLogLikelihood) predValue(ci, j int) float64 {
	if f.values == nil || f.values[ci] == nil {
		return 1.0
	}
	return f.values[ci][j]
}

// ValueAt computes the corpus negative log-likelihood at x.
func (f *NegLogLikelihood) ValueAt(x []float64) (float64, error) {
	if len(x) != f.dimension {
		return 0, errors.NewDimensionError("NegLogLikelihood.ValueAt", f.dimension, len(x), 0)
	}
	negLogLikelihood := 0.0
	for ci := 0; ci < f.numContexts; ci++ {
		f.scoreContext(x, ci)
		logSumOfExps := vecmath.LogSumOfExps(f.tempSums)
		outcome := f.outcomes[ci]
		negLogLikelihood -= (f.tempSums[outcome] - logSumOfExps) * float64(f.counts[ci])
	}
	return negLogLikelihood, nil
}

// GradientAt computes the gradient of the negative log-likelihood at x.
// The returned slice is owned by the objective and overwritten on the next
// call.
func (f *NegLogLikelihood) GradientAt(x []float64) ([]float64, error) {
	if len(x) != f.dimension {
		return nil, errors.NewDimensionError("NegLogLikelihood.GradientAt", f.dimension, len(x), 0)
	}
	for i := range f.gradient {
		f.gradient[i] = 0
	}
	for ci := 0; ci < f.numContexts; ci++ {
		f.accumulateGradient(x, ci, f.gradient)
	}
	return f.gradient, nil
}

// scoreContext fills tempSums with the per-outcome linear scores of event ci.
func (f *NegLogLikelihood) scoreContext(x []float64, ci int) {
	context := f.contexts[ci]
	for oi := 0; oi < f.numOutcomes; oi++ {
		sum := 0.0
		for j, feature := range context {
			sum += f.predValue(ci, j) * x[f.indexOf(oi, feature)]
		}
		f.tempSums[oi] = sum
	}
}

// accumulateGradient adds event ci's gradient contribution into grad.
// Model expectation minus empirical expectation, weighted by times seen.
func (f *NegLogLikelihood) accumulateGradient(x []float64, ci int, grad []float64) {
	f.scoreContext(x, ci)
	logSumOfExps := vecmath.LogSumOfExps(f.tempSums)
	for oi := 0; oi < f.numOutcomes; oi++ {
		f.expect[oi] = math.Exp(f.tempSums[oi] - logSumOfExps)
	}

	context := f.contexts[ci]
	count := float64(f.counts[ci])
	outcome := f.outcomes[ci]
	for oi := 0; oi < f.numOutcomes; oi++ {
		empirical := 0.0
		if oi == outcome {
			empirical = 1.0
		}
		coeff := (f.expect[oi] - empirical) * count
		for j, feature := range context {
			grad[f.indexOf(oi, feature)] += f.predValue(ci, j) * coeff
		}
	}
}

// L2RegFunction decorates an objective with an L2 penalty:
// value + l2Cost*<x,x> and gradient + 2*l2Cost*x. A zero cost makes it a
// transparent pass-through.
type L2RegFunction struct {
	inner  Function
	l2Cost float64
}

// NewL2RegFunction wraps inner with ridge cost l2Cost.
func NewL2RegFunction(inner Function, l2Cost float64) *L2RegFunction {
	return &L2RegFunction{inner: inner, l2Cost: l2Cost}
}

// Dimension returns the inner function's dimension.
func (f *L2RegFunction) Dimension() int { return f.inner.Dimension() }

// ValueAt returns inner.ValueAt(x) + l2Cost*<x,x>.
func (f *L2RegFunction) ValueAt(x []float64) (float64, error) {
	if len(x) != f.Dimension() {
		return 0, errors.NewDimensionError("L2RegFunction.ValueAt", f.Dimension(), len(x), 0)
	}
	value, err := f.inner.ValueAt(x)
	if err != nil {
		return 0, err
	}
	if f.l2Cost > 0 {
		value += f.l2Cost * vecmath.InnerProduct(x, x)
	}
	return value, nil
}

// GradientAt returns inner.GradientAt(x) + 2*l2Cost*x, elementwise.
func (f *L2RegFunction) GradientAt(x []float64) ([]float64, error) {
	if len(x) != f.Dimension() {
		return nil, errors.NewDimensionError("L2RegFunction.GradientAt", f.Dimension(), len(x), 0)
	}
	gradient, err := f.inner.GradientAt(x)
	if err != nil {
		return nil, err
	}
	if f.l2Cost > 0 {
		for i := range gradient {
			gradient[i] += 2 * f.l2Cost * x[i]
		}
	}
	return gradient, nil
}
