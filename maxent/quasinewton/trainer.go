package quasinewton

import (
	"context"

	coremodel "github.com/ezoic/gonlp/core/model"
	"github.com/ezoic/gonlp/maxent"
	"github.com/ezoic/gonlp/pkg/errors"
	"github.com/ezoic/gonlp/pkg/log"
)

// QNTrainer trains a maximum-entropy model with the quasi-Newton
// minimizer. It validates hyperparameters at construction, selects the
// single- or multi-threaded objective based on the thread count, runs the
// minimizer, and reassembles the flat optimized vector into one sparse
// Context per predicate.
type QNTrainer struct {
	state  *coremodel.StateManager
	logger log.Logger

	l1Cost     float64
	l2Cost     float64
	updates    int
	maxFctEval int
	threads    int
	iterations int
	monitor    Monitor

	lastModel *maxent.Model
}

// QNTrainerOption configures a QNTrainer.
type QNTrainerOption func(*QNTrainer)

// WithQNL1Cost sets the L1 regularization cost (>= 0, default 0.1).
func WithQNL1Cost(cost float64) QNTrainerOption {
	return func(t *QNTrainer) { t.l1Cost = cost }
}

// WithQNL2Cost sets the L2 regularization cost (>= 0, default 0.1).
func WithQNL2Cost(cost float64) QNTrainerOption {
	return func(t *QNTrainer) { t.l2Cost = cost }
}

// WithQNUpdates sets how many Hessian updates are stored (> 0, default 15).
func WithQNUpdates(updates int) QNTrainerOption {
	return func(t *QNTrainer) { t.updates = updates }
}

// WithQNMaxFctEval sets the function-evaluation budget (> 0, default 30000).
func WithQNMaxFctEval(maxFctEval int) QNTrainerOption {
	return func(t *QNTrainer) { t.maxFctEval = maxFctEval }
}

// WithQNThreads sets the objective thread count (>= 1, default 1).
func WithQNThreads(threads int) QNTrainerOption {
	return func(t *QNTrainer) { t.threads = threads }
}

// WithQNIterations sets the iteration budget (> 0, default 100).
func WithQNIterations(iterations int) QNTrainerOption {
	return func(t *QNTrainer) { t.iterations = iterations }
}

// WithQNMonitor attaches a progress monitor to the training run.
func WithQNMonitor(monitor Monitor) QNTrainerOption {
	return func(t *QNTrainer) { t.monitor = monitor }
}

// NewQNTrainer creates a trainer with validated hyperparameters.
func NewQNTrainer(opts ...QNTrainerOption) (*QNTrainer, error) {
	const op = "NewQNTrainer"
	t := &QNTrainer{
		state:      coremodel.NewStateManager(),
		logger:     log.GetLoggerWithName("quasinewton.trainer"),
		l1Cost:     DefaultL1Cost,
		l2Cost:     DefaultL2Cost,
		updates:    DefaultUpdates,
		maxFctEval: DefaultMaxFctEval,
		threads:    DefaultThreads,
		iterations: DefaultIterations,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.l1Cost < 0 {
		return nil, errors.NewValueError(op, "l1 cost must be >= 0")
	}
	if t.l2Cost < 0 {
		return nil, errors.NewValueError(op, "l2 cost must be >= 0")
	}
	if t.updates <= 0 {
		return nil, errors.NewValueError(op, "number of Hessian updates must be > 0")
	}
	if t.maxFctEval <= 0 {
		return nil, errors.NewValueError(op, "maximum function evaluations must be > 0")
	}
	if t.threads < 1 {
		return nil, errors.NewValueError(op, "thread count must be >= 1")
	}
	if t.iterations <= 0 {
		return nil, errors.NewValueError(op, "number of iterations must be > 0")
	}
	return t, nil
}

// Train fits a maxent model to the indexed events. The context carries
// cooperative cancellation into the minimizer.
func (t *QNTrainer) Train(ctx context.Context, data maxent.DataIndexer) (*maxent.Model, error) {
	numFeatures := len(data.PredLabels())
	numOutcomes := len(data.OutcomeLabels())
	t.logger.Info("training started",
		"events", len(data.Contexts()),
		"predicates", numFeatures,
		"outcomes", numOutcomes,
		"threads", t.threads)

	var objective Function
	if t.threads > 1 {
		parallel, err := NewParallelNegLogLikelihood(data, t.threads)
		if err != nil {
			return nil, err
		}
		defer parallel.Close()
		objective = parallel
	} else {
		single, err := NewNegLogLikelihood(data)
		if err != nil {
			return nil, err
		}
		objective = single
	}

	minimizer, err := NewQNMinimizer(
		WithL1Cost(t.l1Cost),
		WithL2Cost(t.l2Cost),
		WithIterations(t.iterations),
		WithUpdates(t.updates),
		WithMaxFctEval(t.maxFctEval),
		WithMonitor(t.monitor),
		WithEvaluator(NewModelEvaluator(data)),
	)
	if err != nil {
		return nil, err
	}

	parameters, err := minimizer.Minimize(ctx, objective)
	if err != nil {
		return nil, err
	}

	trained, err := t.assembleModel(parameters, data)
	if err != nil {
		return nil, err
	}
	t.lastModel = trained
	t.state.SetFitted()
	t.logger.Info("training finished", "dimension", len(parameters))
	return trained, nil
}

// Model returns the most recently trained model.
func (t *QNTrainer) Model() (*maxent.Model, error) {
	if err := t.state.RequireFitted("QNTrainer", "Model"); err != nil {
		return nil, err
	}
	return t.lastModel, nil
}

// assembleModel slices the flat vector x[outcome*numFeatures+feature] into
// one sparse Context per predicate, dropping exact-zero weights.
func (t *QNTrainer) assembleModel(x []float64, data maxent.DataIndexer) (*maxent.Model, error) {
	numFeatures := len(data.PredLabels())
	numOutcomes := len(data.OutcomeLabels())
	params := make([]maxent.Context, numFeatures)
	for fi := 0; fi < numFeatures; fi++ {
		var outs []int
		var weights []float64
		for oi := 0; oi < numOutcomes; oi++ {
			if w := x[oi*numFeatures+fi]; w != 0 {
				outs = append(outs, oi)
				weights = append(weights, w)
			}
		}
		params[fi] = maxent.Context{Outcomes: outs, Parameters: weights}
	}
	return maxent.NewModel(
		maxent.EvalParameters{Params: params, NumOutcomes: numOutcomes},
		data.PredLabels(),
		data.OutcomeLabels(),
	)
}
