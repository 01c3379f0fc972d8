package quasinewton

import (
	"github.com/ezoic/gonlp/core/vecmath"
)

const (
	// lineSearchRho is the backtracking shrink factor.
	lineSearchRho = 0.5
	// lineSearchC is the Armijo sufficient-decrease constant.
	lineSearchC = 1e-4
	// stepFloor bounds the backtracking loop; the minimizer's min-step
	// convergence check fires long before a step this small is accepted.
	stepFloor = 1e-20
)

// LineSearchResult is the mutable bundle threaded between the minimizer and
// the line search: current/next point and gradient, the pseudo-gradient and
// sign vector in L1 mode, the accepted step size, objective values, and the
// running function-evaluation counter. One instance is created per
// minimization run and mutated in place each iteration so the hot loop
// allocates nothing.
type LineSearchResult struct {
	FctEvalCount int
	StepSize     float64
	ValueAtCurr  float64
	ValueAtNext  float64

	CurrPoint []float64
	NextPoint []float64

	GradAtCurr []float64
	GradAtNext []float64

	// L1 mode only
	PseudoGradAtNext []float64
	SignVector       []float64
}

// NewInitialLSR seeds the bundle at the starting point with its value and
// gradient; gradient and point are copied into bundle-owned buffers.
func NewInitialLSR(value float64, grad, point []float64) *LineSearchResult {
	dim := len(point)
	lsr := &LineSearchResult{
		ValueAtNext: value,
		CurrPoint:   make([]float64, dim),
		NextPoint:   append([]float64(nil), point...),
		GradAtCurr:  make([]float64, dim),
		GradAtNext:  append([]float64(nil), grad...),
	}
	return lsr
}

// NewInitialLSRWithL1 is NewInitialLSR plus the pseudo-gradient and sign
// vector buffers needed by the orthant-constrained search.
func NewInitialLSRWithL1(value float64, grad, pseudoGrad, point []float64) *LineSearchResult {
	lsr := NewInitialLSR(value, grad, point)
	lsr.PseudoGradAtNext = append([]float64(nil), pseudoGrad...)
	lsr.SignVector = make([]float64, len(point))
	return lsr
}

// FuncChangeRate returns the relative decrease of the objective across the
// last accepted step.
func (lsr *LineSearchResult) FuncChangeRate() float64 {
	return (lsr.ValueAtCurr - lsr.ValueAtNext) / lsr.ValueAtCurr
}

// swapBuffers rotates the bundle so the previous "next" state becomes the
// "current" state and the old current buffers become scratch for the new
// candidate.
func (lsr *LineSearchResult) swapBuffers() (nextPoint, gradAtNext []float64) {
	lsr.CurrPoint, lsr.NextPoint = lsr.NextPoint, lsr.CurrPoint
	lsr.GradAtCurr, lsr.GradAtNext = lsr.GradAtNext, lsr.GradAtCurr
	lsr.ValueAtCurr = lsr.ValueAtNext
	return lsr.NextPoint, lsr.GradAtNext
}

// DoLineSearch performs backtracking Armijo search from the bundle's
// current point along direction, starting at initialStepSize and halving
// until f(x + step*d) <= f(x) + c*step*<d, grad f(x)>. A candidate value of
// NaN counts as "not yet satisfied" and keeps shrinking. On return the
// bundle holds the accepted point, its value and gradient, the accepted
// step size and the updated evaluation count.
func DoLineSearch(function Function, direction []float64, lsr *LineSearchResult, initialStepSize float64) error {
	stepSize := initialStepSize
	fctEvalCount := lsr.FctEvalCount

	x := lsr.NextPoint
	gradAtX := lsr.GradAtNext
	valueAtX := lsr.ValueAtNext
	dimension := len(x)

	nextPoint, gradAtNext := lsr.swapBuffers()
	dirGradAtX := vecmath.InnerProduct(direction, gradAtX)

	var valueAtNext float64
	for {
		for i := 0; i < dimension; i++ {
			nextPoint[i] = x[i] + direction[i]*stepSize
		}
		value, err := function.ValueAt(nextPoint)
		if err != nil {
			return err
		}
		fctEvalCount++
		valueAtNext = value

		// Armijo sufficient decrease; NaN fails the test and shrinks.
		if valueAtNext <= valueAtX+lineSearchC*stepSize*dirGradAtX {
			break
		}
		stepSize *= lineSearchRho
		if stepSize < stepFloor {
			break
		}
	}

	grad, err := function.GradientAt(nextPoint)
	if err != nil {
		return err
	}
	copy(gradAtNext, grad)

	lsr.StepSize = stepSize
	lsr.ValueAtCurr = valueAtX
	lsr.ValueAtNext = valueAtNext
	lsr.FctEvalCount = fctEvalCount
	return nil
}

// DoConstrainedLineSearch is the orthant-constrained (OWL-QN) variant used
// under L1 regularization. The sign vector records the orthant of the
// current point (sign of x, or sign of the negative pseudo-gradient where
// x is zero); after each trial step, coordinates that crossed zero relative
// to that orthant are projected back to exactly zero. Sufficient decrease
// is tested on f + l1Cost*‖x‖₁ against the directional derivative implied
// by the projected displacement and the pseudo-gradient.
func DoConstrainedLineSearch(function Function, direction []float64, lsr *LineSearchResult, l1Cost, initialStepSize float64) error {
	stepSize := initialStepSize
	fctEvalCount := lsr.FctEvalCount

	x := lsr.NextPoint
	// ValueAtNext already holds the penalized objective at x: the run
	// starts at the origin, where the penalty vanishes, and every accepted
	// step below stores value + l1Cost*‖x‖₁ back into the bundle.
	valueAtX := lsr.ValueAtNext
	pseudoGradAtX := lsr.PseudoGradAtNext
	dimension := len(x)

	signX := lsr.SignVector
	for i := 0; i < dimension; i++ {
		if x[i] == 0 {
			signX[i] = -pseudoGradAtX[i]
		} else {
			signX[i] = x[i]
		}
	}

	nextPoint, gradAtNext := lsr.swapBuffers()

	var valueAtNext float64
	for {
		for i := 0; i < dimension; i++ {
			nextPoint[i] = x[i] + direction[i]*stepSize
			// Project coordinates that left the current orthant back onto
			// its boundary.
			if nextPoint[i]*signX[i] <= 0 {
				nextPoint[i] = 0
			}
		}
		value, err := function.ValueAt(nextPoint)
		if err != nil {
			return err
		}
		fctEvalCount++
		valueAtNext = value + l1Cost*vecmath.L1Norm(nextPoint)

		// Directional derivative of the penalized objective along the
		// projected displacement.
		dirDeriv := 0.0
		for i := 0; i < dimension; i++ {
			dirDeriv += pseudoGradAtX[i] * (nextPoint[i] - x[i])
		}
		if valueAtNext <= valueAtX+lineSearchC*dirDeriv {
			break
		}
		stepSize *= lineSearchRho
		if stepSize < stepFloor {
			break
		}
	}

	grad, err := function.GradientAt(nextPoint)
	if err != nil {
		return err
	}
	copy(gradAtNext, grad)

	lsr.StepSize = stepSize
	lsr.ValueAtCurr = valueAtX
	lsr.ValueAtNext = valueAtNext
	lsr.FctEvalCount = fctEvalCount
	return nil
}

// pseudoGradient fills pg with the generalized gradient of
// f + l1Cost*‖x‖₁ at x: the plain gradient shifted by ±l1Cost on non-zero
// coordinates, and at zero the one-sided derivative of smaller magnitude,
// or zero inside the subdifferential interval.
func pseudoGradient(x, grad []float64, l1Cost float64, pg []float64) {
	for i := range x {
		switch {
		case x[i] < 0:
			pg[i] = grad[i] - l1Cost
		case x[i] > 0:
			pg[i] = grad[i] + l1Cost
		default:
			switch {
			case grad[i] < -l1Cost:
				pg[i] = grad[i] + l1Cost // right partial derivative, negative
			case grad[i] > l1Cost:
				pg[i] = grad[i] - l1Cost // left partial derivative, positive
			default:
				pg[i] = 0
			}
		}
	}
}
