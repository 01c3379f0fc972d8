package quasinewton

import (
	"math"

	"github.com/ezoic/gonlp/core/vecmath"
	"github.com/ezoic/gonlp/maxent"
	"github.com/ezoic/gonlp/pkg/errors"
)

type taskKind int

const (
	taskValue taskKind = iota
	taskGradient
)

// poolTask describes one contiguous slice of events for a worker to fold
// into its private accumulator slot.
type poolTask struct {
	kind       taskKind
	x          []float64
	start, end int
	slot       int
	done       chan<- int
}

// ParallelNegLogLikelihood evaluates the NegLogLikelihood objective with a
// persistent pool of workers. Events are partitioned into contiguous ranges,
// one per worker; each worker writes only its own partial gradient and
// partial value, and the coordinator reduces the slots in fixed order, so
// results differ from the single-threaded objective only in floating-point
// summation order.
//
// Close must be called when the objective is no longer needed to stop the
// pool goroutines.
type ParallelNegLogLikelihood struct {
	*NegLogLikelihood

	threads      int
	partialVals  []float64
	partialGrads [][]float64
	// per-worker scratch, sized numOutcomes
	workerSums   [][]float64
	workerExpect [][]float64

	tasks  chan poolTask
	closed bool
}

// NewParallelNegLogLikelihood builds the parallel objective and starts its
// worker pool.
func NewParallelNegLogLikelihood(data maxent.DataIndexer, threads int) (*ParallelNegLogLikelihood, error) {
	const op = "NewParallelNegLogLikelihood"
	if threads < 1 {
		return nil, errors.NewValueError(op, "thread count must be >= 1")
	}
	base, err := NewNegLogLikelihood(data)
	if err != nil {
		return nil, err
	}
	if threads > base.numContexts {
		threads = base.numContexts
	}

	p := &ParallelNegLogLikelihood{
		NegLogLikelihood: base,
		threads:          threads,
		partialVals:      make([]float64, threads),
		partialGrads:     make([][]float64, threads),
		workerSums:       make([][]float64, threads),
		workerExpect:     make([][]float64, threads),
		tasks:            make(chan poolTask),
	}
	for i := 0; i < threads; i++ {
		p.partialGrads[i] = make([]float64, base.dimension)
		p.workerSums[i] = make([]float64, base.numOutcomes)
		p.workerExpect[i] = make([]float64, base.numOutcomes)
		go p.worker()
	}
	return p, nil
}

// Threads returns the number of pool workers.
func (p *ParallelNegLogLikelihood) Threads() int { return p.threads }

// Close stops the worker pool. The objective must not be evaluated after
// Close. Safe to call more than once.
func (p *ParallelNegLogLikelihood) Close() {
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
}

func (p *ParallelNegLogLikelihood) worker() {
	for t := range p.tasks {
		switch t.kind {
		case taskValue:
			p.partialVals[t.slot] = p.rangeValue(t.x, t.start, t.end, t.slot)
		case taskGradient:
			grad := p.partialGrads[t.slot]
			for i := range grad {
				grad[i] = 0
			}
			p.rangeGradient(t.x, t.start, t.end, t.slot, grad)
		}
		t.done <- t.slot
	}
}

// dispatch fans the event range out to the pool and blocks until every
// worker has finished its slice.
func (p *ParallelNegLogLikelihood) dispatch(kind taskKind, x []float64) {
	done := make(chan int, p.threads)
	chunk := p.numContexts / p.threads
	for slot := 0; slot < p.threads; slot++ {
		start := slot * chunk
		end := start + chunk
		if slot == p.threads-1 {
			end = p.numContexts // last range absorbs the remainder
		}
		p.tasks <- poolTask{kind: kind, x: x, start: start, end: end, slot: slot, done: done}
	}
	for i := 0; i < p.threads; i++ {
		<-done
	}
}

// ValueAt computes the corpus negative log-likelihood at x in parallel.
func (p *ParallelNegLogLikelihood) ValueAt(x []float64) (float64, error) {
	if len(x) != p.dimension {
		return 0, errors.NewDimensionError("ParallelNegLogLikelihood.ValueAt", p.dimension, len(x), 0)
	}
	p.dispatch(taskValue, x)

	// Reduce in slot order for run-to-run determinism.
	negLogLikelihood := 0.0
	for slot := 0; slot < p.threads; slot++ {
		negLogLikelihood += p.partialVals[slot]
	}
	return negLogLikelihood, nil
}

// GradientAt computes the gradient at x in parallel. The returned slice is
// owned by the objective and overwritten on the next call.
func (p *ParallelNegLogLikelihood) GradientAt(x []float64) ([]float64, error) {
	if len(x) != p.dimension {
		return nil, errors.NewDimensionError("ParallelNegLogLikelihood.GradientAt", p.dimension, len(x), 0)
	}
	p.dispatch(taskGradient, x)

	for i := range p.gradient {
		p.gradient[i] = 0
	}
	for slot := 0; slot < p.threads; slot++ {
		partial := p.partialGrads[slot]
		for i := range p.gradient {
			p.gradient[i] += partial[i]
		}
	}
	return p.gradient, nil
}

// rangeValue computes the negative log-likelihood over events [start, end)
// using worker-local scratch.
func (p *ParallelNegLogLikelihood) rangeValue(x []float64, start, end, slot int) float64 {
	sums := p.workerSums[slot]
	negLogLikelihood := 0.0
	for ci := start; ci < end; ci++ {
		p.scoreContextInto(x, ci, sums)
		logSumOfExps := vecmath.LogSumOfExps(sums)
		negLogLikelihood -= (sums[p.outcomes[ci]] - logSumOfExps) * float64(p.counts[ci])
	}
	return negLogLikelihood
}

// rangeGradient accumulates the gradient over events [start, end) into grad.
func (p *ParallelNegLogLikelihood) rangeGradient(x []float64, start, end, slot int, grad []float64) {
	sums := p.workerSums[slot]
	expect := p.workerExpect[slot]
	for ci := start; ci < end; ci++ {
		p.scoreContextInto(x, ci, sums)
		logSumOfExps := vecmath.LogSumOfExps(sums)
		for oi := 0; oi < p.numOutcomes; oi++ {
			expect[oi] = math.Exp(sums[oi] - logSumOfExps)
		}
		context := p.contexts[ci]
		count := float64(p.counts[ci])
		outcome := p.outcomes[ci]
		for oi := 0; oi < p.numOutcomes; oi++ {
			empirical := 0.0
			if oi == outcome {
				empirical = 1.0
			}
			coeff := (expect[oi] - empirical) * count
			for j, feature := range context {
				grad[p.indexOf(oi, feature)] += p.predValue(ci, j) * coeff
			}
		}
	}
}

// scoreContextInto is scoreContext writing into caller-supplied scratch, so
// concurrent workers never share buffers.
func (p *ParallelNegLogLikelihood) scoreContextInto(x []float64, ci int, sums []float64) {
	context := p.contexts[ci]
	for oi := 0; oi < p.numOutcomes; oi++ {
		sum := 0.0
		for j, feature := range context {
			sum += p.predValue(ci, j) * x[p.indexOf(oi, feature)]
		}
		sums[oi] = sum
	}
}
