package quasinewton

import (
	"context"
	"fmt"
	"math"

	"github.com/ezoic/gonlp/core/vecmath"
	"github.com/ezoic/gonlp/pkg/errors"
	"github.com/ezoic/gonlp/pkg/log"
)

const (
	// convergeTolerance bounds the relative function-value change.
	convergeTolerance = 1e-4
	// relGradNormTol bounds ‖g‖₂ / max(1, ‖x‖₂).
	relGradNormTol = 1e-4
	// minStepSize terminates when the line search can no longer move.
	minStepSize = 1e-10

	// DefaultL1Cost is the default L1 regularization cost.
	DefaultL1Cost = 0.1
	// DefaultL2Cost is the default L2 regularization cost.
	DefaultL2Cost = 0.1
	// DefaultUpdates is the default number of stored Hessian updates.
	DefaultUpdates = 15
	// DefaultMaxFctEval is the default function-evaluation budget.
	DefaultMaxFctEval = 30000
	// DefaultIterations is the default iteration budget.
	DefaultIterations = 100
	// DefaultThreads is the default objective thread count.
	DefaultThreads = 1
)

// Evaluator measures a quality metric (typically training-set accuracy) of
// a candidate parameter vector. Used only for progress reporting, never for
// convergence decisions.
type Evaluator interface {
	Evaluate(x []float64) float64
}

// Monitor receives human-readable progress lines during minimization.
// Monitor failures must not abort training, so implementations should not
// panic; cancellation is carried by the context passed to Minimize.
type Monitor interface {
	Message(msg string)
}

// LogMonitor is a Monitor that forwards progress lines to a gonlp logger.
type LogMonitor struct {
	Logger log.Logger
}

func (m *LogMonitor) Message(msg string) {
	if m.Logger != nil {
		m.Logger.Info(msg)
	}
}

// QNMinimizer minimizes an objective with L-BFGS, switching to the
// orthant-wise (OWL-QN) variant when an L1 cost is configured. The L2 cost
// is folded into the objective through L2RegFunction.
type QNMinimizer struct {
	l1Cost     float64
	l2Cost     float64
	iterations int
	updates    int
	maxFctEval int

	monitor   Monitor
	evaluator Evaluator
	logger    log.Logger
}

// QNMinimizerOption configures a QNMinimizer.
type QNMinimizerOption func(*QNMinimizer)

// WithL1Cost sets the L1 regularization cost (>= 0).
func WithL1Cost(cost float64) QNMinimizerOption {
	return func(q *QNMinimizer) { q.l1Cost = cost }
}

// WithL2Cost sets the L2 regularization cost (>= 0).
func WithL2Cost(cost float64) QNMinimizerOption {
	return func(q *QNMinimizer) { q.l2Cost = cost }
}

// WithIterations sets the maximum number of iterations (> 0).
func WithIterations(iterations int) QNMinimizerOption {
	return func(q *QNMinimizer) { q.iterations = iterations }
}

// WithUpdates sets how many curvature pairs are retained (> 0).
func WithUpdates(updates int) QNMinimizerOption {
	return func(q *QNMinimizer) { q.updates = updates }
}

// WithMaxFctEval sets the function-evaluation budget (> 0).
func WithMaxFctEval(maxFctEval int) QNMinimizerOption {
	return func(q *QNMinimizer) { q.maxFctEval = maxFctEval }
}

// WithMonitor attaches a progress monitor.
func WithMonitor(monitor Monitor) QNMinimizerOption {
	return func(q *QNMinimizer) { q.monitor = monitor }
}

// WithEvaluator attaches an accuracy evaluator for progress reporting.
func WithEvaluator(evaluator Evaluator) QNMinimizerOption {
	return func(q *QNMinimizer) { q.evaluator = evaluator }
}

// NewQNMinimizer creates a minimizer, validating every hyperparameter
// eagerly: costs must be non-negative and the budgets positive.
func NewQNMinimizer(opts ...QNMinimizerOption) (*QNMinimizer, error) {
	const op = "NewQNMinimizer"
	q := &QNMinimizer{
		l1Cost:     DefaultL1Cost,
		l2Cost:     DefaultL2Cost,
		iterations: DefaultIterations,
		updates:    DefaultUpdates,
		maxFctEval: DefaultMaxFctEval,
		logger:     log.GetLoggerWithName("quasinewton.minimizer"),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.l1Cost < 0 {
		return nil, errors.NewValueError(op, "l1 cost must be >= 0")
	}
	if q.l2Cost < 0 {
		return nil, errors.NewValueError(op, "l2 cost must be >= 0")
	}
	if q.iterations <= 0 {
		return nil, errors.NewValueError(op, "number of iterations must be > 0")
	}
	if q.updates <= 0 {
		return nil, errors.NewValueError(op, "number of Hessian updates must be > 0")
	}
	if q.maxFctEval <= 0 {
		return nil, errors.NewValueError(op, "maximum function evaluations must be > 0")
	}
	return q, nil
}

// Minimize runs the optimization from the origin and returns the final
// parameter vector. The context is polled once per iteration; when it is
// canceled the method aborts with the context's error instead of returning
// a partial result. Exhausting the iteration or evaluation budget is normal
// termination, not an error.
func (q *QNMinimizer) Minimize(ctx context.Context, function Function) ([]float64, error) {
	l2Func := NewL2RegFunction(function, q.l2Cost)
	dimension := l2Func.Dimension()
	updates := newUpdateInfo(q.updates, dimension)

	x0 := make([]float64, dimension)
	value, err := l2Func.ValueAt(x0)
	if err != nil {
		return nil, err
	}
	grad, err := l2Func.GradientAt(x0)
	if err != nil {
		return nil, err
	}

	var lsr *LineSearchResult
	if q.l1Cost > 0 {
		pseudoGrad := make([]float64, dimension)
		pseudoGradient(x0, grad, q.l1Cost, pseudoGrad)
		lsr = NewInitialLSRWithL1(value, grad, pseudoGrad, x0)
	} else {
		lsr = NewInitialLSR(value, grad, x0)
	}
	lsr.FctEvalCount = 1

	q.logger.Debug("starting minimization",
		"dimension", dimension,
		"l1Cost", q.l1Cost,
		"l2Cost", q.l2Cost,
		"iterations", q.iterations,
		"updates", q.updates)

	direction := make([]float64, dimension)
	for iter := 1; iter <= q.iterations; iter++ {
		select {
		case <-ctx.Done():
			q.logger.Info("minimization canceled", "iteration", iter)
			return nil, ctx.Err()
		default:
		}

		// Search direction: two-loop recursion over the (pseudo-)gradient,
		// then for L1 constrain it to the feasible orthant by zeroing
		// components whose sign agrees with the pseudo-gradient.
		if q.l1Cost > 0 {
			copy(direction, lsr.PseudoGradAtNext)
		} else {
			copy(direction, lsr.GradAtNext)
		}
		updates.computeDirection(direction)
		if q.l1Cost > 0 {
			pg := lsr.PseudoGradAtNext
			for i := range direction {
				if direction[i]*pg[i] >= 0 {
					direction[i] = 0
				}
			}
		}

		// Unit step everywhere except the very first iteration, which has
		// no curvature information yet.
		initialStep := 1.0
		if iter == 1 {
			if q.l1Cost > 0 {
				initialStep = vecmath.InvL2Norm(lsr.PseudoGradAtNext)
			} else {
				initialStep = vecmath.InvL2Norm(lsr.GradAtNext)
			}
			// A zero starting gradient (e.g. an L1 cost dominating every
			// coordinate) would make the inverse norm infinite.
			if math.IsInf(initialStep, 1) {
				initialStep = 1.0
			}
		}

		if q.l1Cost > 0 {
			err = DoConstrainedLineSearch(l2Func, direction, lsr, q.l1Cost, initialStep)
		} else {
			err = DoLineSearch(l2Func, direction, lsr, initialStep)
		}
		if err != nil {
			return nil, err
		}

		if q.l1Cost > 0 {
			pseudoGradient(lsr.NextPoint, lsr.GradAtNext, q.l1Cost, lsr.PseudoGradAtNext)
		}

		updates.update(lsr)
		q.reportProgress(iter, lsr)

		if converged, reason := q.isConverged(lsr); converged {
			q.report(reason)
			break
		}
	}

	result := append([]float64(nil), lsr.NextPoint...)
	if q.l1Cost > 0 && q.l2Cost > 0 {
		// Running OWL-QN on top of the L2 decorator shrinks the solution
		// twice; undo the second shrinkage.
		scale := math.Sqrt(1 + q.l2Cost)
		for i := range result {
			result[i] *= scale
		}
	}
	return result, nil
}

// isConverged applies the four termination conditions in fixed order and
// names the first that holds.
func (q *QNMinimizer) isConverged(lsr *LineSearchResult) (bool, string) {
	if rate := lsr.FuncChangeRate(); rate < convergeTolerance {
		return true, fmt.Sprintf("function change rate %e below tolerance %e", rate, convergeTolerance)
	}

	gradNorm := 0.0
	if q.l1Cost > 0 {
		gradNorm = vecmath.L2Norm(lsr.PseudoGradAtNext)
	} else {
		gradNorm = vecmath.L2Norm(lsr.GradAtNext)
	}
	xNorm := math.Max(1.0, vecmath.L2Norm(lsr.NextPoint))
	if rel := gradNorm / xNorm; rel < relGradNormTol {
		return true, fmt.Sprintf("relative gradient norm %e below tolerance %e", rel, relGradNormTol)
	}

	if lsr.StepSize < minStepSize {
		return true, fmt.Sprintf("step size %e below minimum %e", lsr.StepSize, minStepSize)
	}

	if lsr.FctEvalCount > q.maxFctEval {
		return true, fmt.Sprintf("function evaluations %d exceeded maximum %d", lsr.FctEvalCount, q.maxFctEval)
	}
	return false, ""
}

// reportProgress emits one progress line per iteration through the monitor
// and the structured logger.
func (q *QNMinimizer) reportProgress(iter int, lsr *LineSearchResult) {
	if q.evaluator != nil {
		accuracy := q.evaluator.Evaluate(lsr.NextPoint)
		q.report(fmt.Sprintf("%d: value=%.6f changeRate=%.6e accuracy=%.4f",
			iter, lsr.ValueAtNext, lsr.FuncChangeRate(), accuracy))
		q.logger.Debug("iteration complete",
			"iteration", iter,
			"value", lsr.ValueAtNext,
			"changeRate", lsr.FuncChangeRate(),
			"accuracy", accuracy,
			"fctEvals", lsr.FctEvalCount)
		return
	}
	q.report(fmt.Sprintf("%d: value=%.6f changeRate=%.6e",
		iter, lsr.ValueAtNext, lsr.FuncChangeRate()))
	q.logger.Debug("iteration complete",
		"iteration", iter,
		"value", lsr.ValueAtNext,
		"changeRate", lsr.FuncChangeRate(),
		"fctEvals", lsr.FctEvalCount)
}

func (q *QNMinimizer) report(msg string) {
	if q.monitor != nil {
		q.monitor.Message(msg)
	}
}
