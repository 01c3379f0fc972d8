// Package vecmath provides the primitive numeric kernels used by the maxent
// objective and optimizer: inner products, norms, the numerically stable
// log-sum-exp, and arg-max.
package vecmath

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ezoic/gonlp/pkg/errors"
)

// InnerProduct returns the dot product of a and b, or NaN when either slice
// is nil or the lengths differ. The NaN contract lets callers detect shape
// bugs in hot loops without a conditional error path.
func InnerProduct(a, b []float64) float64 {
	if a == nil || b == nil || len(a) != len(b) {
		return math.NaN()
	}
	return floats.Dot(a, b)
}

// L1Norm returns the sum of absolute values of x.
func L1Norm(x []float64) float64 {
	return floats.Norm(x, 1)
}

// L2Norm returns the Euclidean norm of x.
func L2Norm(x []float64) float64 {
	return floats.Norm(x, 2)
}

// InvL2Norm returns 1 / L2Norm(x).
func InvL2Norm(x []float64) float64 {
	return 1.0 / L2Norm(x)
}

// LogSumOfExps computes log(sum(exp(x_i))) without overflow by factoring out
// the maximum: max(x) + log(sum(exp(x_i - max(x)))). Terms equal to -Inf are
// skipped so that impossible outcomes contribute zero probability mass.
func LogSumOfExps(x []float64) float64 {
	max := x[MustMaxID(x)]
	sum := 0.0
	for _, v := range x {
		if !math.IsInf(v, -1) {
			sum += math.Exp(v - max)
		}
	}
	return max + math.Log(sum)
}

// MaxID returns the index of the first maximal element of x.
func MaxID(x []float64) (int, error) {
	if len(x) == 0 {
		return 0, errors.NewValueError("MaxID", "input must be non-empty")
	}
	return MustMaxID(x), nil
}

// MustMaxID is MaxID for callers that have already validated their input.
// Panics on an empty slice.
func MustMaxID(x []float64) int {
	idx, best := 0, x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > best {
			idx, best = i, x[i]
		}
	}
	return idx
}
