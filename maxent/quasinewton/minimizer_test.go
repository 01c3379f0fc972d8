package quasinewton_test

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/optimize"

	"github.com/ezoic/gonlp/maxent/quasinewton"
)

// offsetQuadratic is f(x, y) = (x-1)^2 + (y-5)^2 + 10, minimized at (1, 5)
// with value 10.
type offsetQuadratic struct{}

func (offsetQuadratic) Dimension() int { return 2 }

func (offsetQuadratic) ValueAt(x []float64) (float64, error) {
	return (x[0]-1)*(x[0]-1) + (x[1]-5)*(x[1]-5) + 10, nil
}

func (offsetQuadratic) GradientAt(x []float64) ([]float64, error) {
	return []float64{2 * (x[0] - 1), 2 * (x[1] - 5)}, nil
}

// rosenbrock is the classic banana function with global minimum 0 at (1, 1).
type rosenbrock struct {
	mu             sync.Mutex
	acceptedValues []float64 // value at every point a gradient is requested
}

func (*rosenbrock) Dimension() int { return 2 }

func (*rosenbrock) ValueAt(x []float64) (float64, error) {
	a := 1 - x[0]
	b := x[1] - x[0]*x[0]
	return a*a + 100*b*b, nil
}

func (r *rosenbrock) GradientAt(x []float64) ([]float64, error) {
	v, _ := r.ValueAt(x)
	r.mu.Lock()
	r.acceptedValues = append(r.acceptedValues, v)
	r.mu.Unlock()
	b := x[1] - x[0]*x[0]
	return []float64{
		-2*(1-x[0]) - 400*x[0]*b,
		200 * b,
	}, nil
}

// captureMonitor records every progress line.
type captureMonitor struct {
	mu       sync.Mutex
	messages []string
	onFirst  func()
}

func (m *captureMonitor) Message(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	if len(m.messages) == 1 && m.onFirst != nil {
		m.onFirst()
	}
}

func (m *captureMonitor) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}

func newSmoothMinimizer(t *testing.T, opts ...quasinewton.QNMinimizerOption) *quasinewton.QNMinimizer {
	t.Helper()
	base := []quasinewton.QNMinimizerOption{
		quasinewton.WithL1Cost(0),
		quasinewton.WithL2Cost(0),
	}
	q, err := quasinewton.NewQNMinimizer(append(base, opts...)...)
	require.NoError(t, err)
	return q
}

func TestNewQNMinimizer_ValidatesHyperparameters(t *testing.T) {
	cases := []struct {
		name string
		opt  quasinewton.QNMinimizerOption
	}{
		{"negative l1", quasinewton.WithL1Cost(-0.1)},
		{"negative l2", quasinewton.WithL2Cost(-1)},
		{"zero iterations", quasinewton.WithIterations(0)},
		{"zero updates", quasinewton.WithUpdates(0)},
		{"zero fct evals", quasinewton.WithMaxFctEval(0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := quasinewton.NewQNMinimizer(tc.opt)
			assert.Error(t, err)
		})
	}
}

func TestMinimize_Quadratic(t *testing.T) {
	q := newSmoothMinimizer(t)

	x, err := q.Minimize(context.Background(), offsetQuadratic{})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, x[0], 1e-2)
	assert.InDelta(t, 5.0, x[1], 1e-2)

	value, err := offsetQuadratic{}.ValueAt(x)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, value, 1e-3)
}

func TestMinimize_RosenbrockMonotonicDecrease(t *testing.T) {
	q := newSmoothMinimizer(t, quasinewton.WithIterations(200))

	f := &rosenbrock{}
	x, err := q.Minimize(context.Background(), f)
	require.NoError(t, err)

	// Gradient is evaluated exactly once per accepted point, so the
	// recorded values trace the accepted iterates. They must never
	// increase.
	values := f.acceptedValues
	require.NotEmpty(t, values)
	for i := 1; i < len(values); i++ {
		assert.LessOrEqualf(t, values[i], values[i-1]+1e-12,
			"objective increased at accepted step %d", i)
	}

	value, _ := f.ValueAt(x)
	assert.Less(t, value, 1.0, "expected substantial progress toward the minimum")
}

// Cross-check against the gonum L-BFGS implementation on the same function.
func TestMinimize_AgreesWithGonumLBFGS(t *testing.T) {
	q := newSmoothMinimizer(t)
	ours, err := q.Minimize(context.Background(), offsetQuadratic{})
	require.NoError(t, err)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			v, _ := offsetQuadratic{}.ValueAt(x)
			return v
		},
		Grad: func(grad, x []float64) {
			g, _ := offsetQuadratic{}.GradientAt(x)
			copy(grad, g)
		},
	}
	result, err := optimize.Minimize(problem, []float64{0, 0}, nil, &optimize.LBFGS{})
	require.NoError(t, err)

	assert.InDelta(t, result.X[0], ours[0], 1e-2)
	assert.InDelta(t, result.X[1], ours[1], 1e-2)
}

// shallowSlope is linear with a large offset: the first step moves a unit
// along the gradient, changing the value by 0.01 out of 1000, so the
// relative function change drops below tolerance while the gradient norm
// does not.
type shallowSlope struct{}

func (shallowSlope) Dimension() int { return 1 }

func (shallowSlope) ValueAt(x []float64) (float64, error) {
	return 1000 - 0.01*x[0], nil
}

func (shallowSlope) GradientAt(x []float64) ([]float64, error) {
	return []float64{-0.01}, nil
}

func TestMinimize_FunctionChangeConvergence(t *testing.T) {
	monitor := &captureMonitor{}
	q := newSmoothMinimizer(t, quasinewton.WithMonitor(monitor))

	_, err := q.Minimize(context.Background(), shallowSlope{})
	require.NoError(t, err)

	last := lastMessage(t, monitor)
	assert.Contains(t, last, "function change rate")
}

// shiftedParabola is f(x) = (x-5)^2 + 1: the first exact step lands on the
// minimum, where the gradient vanishes while the function change stays
// large, so the gradient-norm condition fires first.
type shiftedParabola struct{}

func (shiftedParabola) Dimension() int { return 1 }

func (shiftedParabola) ValueAt(x []float64) (float64, error) {
	return (x[0]-5)*(x[0]-5) + 1, nil
}

func (shiftedParabola) GradientAt(x []float64) ([]float64, error) {
	return []float64{2 * (x[0] - 5)}, nil
}

func TestMinimize_GradientNormConvergence(t *testing.T) {
	monitor := &captureMonitor{}
	q := newSmoothMinimizer(t, quasinewton.WithMonitor(monitor))

	x, err := q.Minimize(context.Background(), shiftedParabola{})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, x[0], 1e-9)

	last := lastMessage(t, monitor)
	assert.Contains(t, last, "relative gradient norm")
}

// nanAway always reports NaN off the origin, so no step ever satisfies the
// sufficient-decrease test and the line search shrinks to the floor.
type nanAway struct{}

func (nanAway) Dimension() int { return 1 }

func (nanAway) ValueAt(x []float64) (float64, error) {
	if x[0] == 0 {
		return 100, nil
	}
	return math.NaN(), nil
}

func (nanAway) GradientAt(x []float64) ([]float64, error) {
	return []float64{1}, nil
}

func TestMinimize_MinStepConvergence(t *testing.T) {
	monitor := &captureMonitor{}
	q := newSmoothMinimizer(t, quasinewton.WithMonitor(monitor))

	_, err := q.Minimize(context.Background(), nanAway{})
	require.NoError(t, err)

	last := lastMessage(t, monitor)
	assert.Contains(t, last, "step size")
}

func TestMinimize_MaxFctEvalConvergence(t *testing.T) {
	monitor := &captureMonitor{}
	q := newSmoothMinimizer(t,
		quasinewton.WithMonitor(monitor),
		quasinewton.WithMaxFctEval(1))

	_, err := q.Minimize(context.Background(), &rosenbrock{})
	require.NoError(t, err)

	last := lastMessage(t, monitor)
	assert.Contains(t, last, "function evaluations")
}

func TestMinimize_CancellationAbortsBeforeSecondIteration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	monitor := &captureMonitor{onFirst: cancel}
	q := newSmoothMinimizer(t,
		quasinewton.WithMonitor(monitor),
		quasinewton.WithIterations(200))

	_, err := q.Minimize(ctx, &rosenbrock{})
	require.ErrorIs(t, err, context.Canceled)

	// The cancel fired after iteration 1's progress line; iteration 2
	// must never have run its line search, so exactly one progress line
	// was produced.
	progress := 0
	for _, msg := range monitor.all() {
		if strings.Contains(msg, "value=") {
			progress++
		}
	}
	assert.Equal(t, 1, progress)
}

// penalizedRecorder wraps a Function and records f(x) + l1Cost*‖x‖₁ at every
// point a gradient is requested, tracing the accepted iterates of an
// orthant-constrained run.
type penalizedRecorder struct {
	inner  quasinewton.Function
	l1Cost float64
	values []float64
}

func (r *penalizedRecorder) Dimension() int { return r.inner.Dimension() }

func (r *penalizedRecorder) ValueAt(x []float64) (float64, error) {
	return r.inner.ValueAt(x)
}

func (r *penalizedRecorder) GradientAt(x []float64) ([]float64, error) {
	v, err := r.inner.ValueAt(x)
	if err != nil {
		return nil, err
	}
	for _, xi := range x {
		v += r.l1Cost * math.Abs(xi)
	}
	r.values = append(r.values, v)
	return r.inner.GradientAt(x)
}

func TestMinimize_L1PenalizedMonotonicDecrease(t *testing.T) {
	const l1Cost = 0.3
	q, err := quasinewton.NewQNMinimizer(
		quasinewton.WithL1Cost(l1Cost),
		quasinewton.WithL2Cost(0))
	require.NoError(t, err)

	rec := &penalizedRecorder{inner: offsetQuadratic{}, l1Cost: l1Cost}
	_, err = q.Minimize(context.Background(), rec)
	require.NoError(t, err)

	// One gradient per accepted point; the penalized objective must never
	// increase across accepted steps.
	values := rec.values
	require.NotEmpty(t, values)
	for i := 1; i < len(values); i++ {
		assert.LessOrEqualf(t, values[i], values[i-1]+1e-12,
			"penalized objective increased at accepted step %d", i)
	}
}

// Elastic net: minimizing with both costs must return the pure-OWL-QN
// result on the manually L2-decorated objective, rescaled by sqrt(1+l2).
func TestMinimize_ElasticNetRescaling(t *testing.T) {
	const l1Cost, l2Cost = 0.3, 0.5

	elastic, err := quasinewton.NewQNMinimizer(
		quasinewton.WithL1Cost(l1Cost),
		quasinewton.WithL2Cost(l2Cost))
	require.NoError(t, err)
	scaled, err := elastic.Minimize(context.Background(), offsetQuadratic{})
	require.NoError(t, err)

	l1Only, err := quasinewton.NewQNMinimizer(
		quasinewton.WithL1Cost(l1Cost),
		quasinewton.WithL2Cost(0))
	require.NoError(t, err)
	unscaled, err := l1Only.Minimize(context.Background(),
		quasinewton.NewL2RegFunction(offsetQuadratic{}, l2Cost))
	require.NoError(t, err)

	factor := math.Sqrt(1 + l2Cost)
	for i := range scaled {
		assert.InDeltaf(t, unscaled[i]*factor, scaled[i], 1e-9, "coordinate %d", i)
	}
}

func lastMessage(t *testing.T, m *captureMonitor) string {
	t.Helper()
	msgs := m.all()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}
