// Package maxent implements maximum-entropy (multinomial logistic) models
// over sparse, indexed training events, and the data structures shared by
// their trainers.
//
// Training data is represented as a set of indexed events: each event pairs
// an ordered list of active predicate indices (its context) with the index
// of the observed outcome, an optional vector of real-valued feature
// weights, and a times-seen count produced by duplicate compression. The
// quasinewton subpackage fits model parameters against this structure.
package maxent

import (
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/gonlp/pkg/errors"
)

// DataIndexer exposes a completed set of indexed training events. The
// optimizer only ever reads this structure; building it from raw corpora is
// the indexer's job (see IndexEvents) or the caller's.
type DataIndexer interface {
	// Contexts returns, per event, the ordered active predicate indices.
	Contexts() [][]int
	// Values returns, per event, the real value of each active predicate,
	// parallel to Contexts. A nil outer or inner slice means all active
	// predicates carry the implicit value 1.0.
	Values() [][]float64
	// Outcomes returns the observed outcome index per event.
	Outcomes() []int
	// Counts returns how many times each event was seen in the corpus.
	Counts() []int
	// PredLabels returns the predicate names, indexed by predicate id.
	PredLabels() []string
	// OutcomeLabels returns the outcome names, indexed by outcome id.
	OutcomeLabels() []string
}

// IndexedEvents is the concrete DataIndexer used throughout gonlp.
// Immutable once validated; one training run owns it for its duration.
type IndexedEvents struct {
	EventContexts [][]int
	EventValues   [][]float64
	EventOutcomes []int
	EventCounts   []int
	Predicates    []string
	OutcomeNames  []string
}

var _ DataIndexer = (*IndexedEvents)(nil)

func (d *IndexedEvents) Contexts() [][]int       { return d.EventContexts }
func (d *IndexedEvents) Values() [][]float64     { return d.EventValues }
func (d *IndexedEvents) Outcomes() []int         { return d.EventOutcomes }
func (d *IndexedEvents) Counts() []int           { return d.EventCounts }
func (d *IndexedEvents) PredLabels() []string    { return d.Predicates }
func (d *IndexedEvents) OutcomeLabels() []string { return d.OutcomeNames }

// Validate checks the structural invariants: parallel slices agree in
// length, predicate and outcome indices are in range, and value rows (when
// present) are parallel to their contexts.
func (d *IndexedEvents) Validate() error {
	const op = "IndexedEvents.Validate"
	n := len(d.EventContexts)
	if n == 0 {
		return errors.NewModelError(op, "no training events", errors.ErrEmptyData)
	}
	if len(d.EventOutcomes) != n {
		return errors.NewDimensionError(op, n, len(d.EventOutcomes), 0)
	}
	if len(d.EventCounts) != n {
		return errors.NewDimensionError(op, n, len(d.EventCounts), 0)
	}
	if d.EventValues != nil && len(d.EventValues) != n {
		return errors.NewDimensionError(op, n, len(d.EventValues), 0)
	}
	numPreds := len(d.Predicates)
	numOutcomes := len(d.OutcomeNames)
	for i, ctx := range d.EventContexts {
		for _, p := range ctx {
			if p < 0 || p >= numPreds {
				return errors.NewValueError(op, "predicate index out of range")
			}
		}
		if d.EventValues != nil && d.EventValues[i] != nil && len(d.EventValues[i]) != len(ctx) {
			return errors.NewDimensionError(op, len(ctx), len(d.EventValues[i]), i)
		}
		if o := d.EventOutcomes[i]; o < 0 || o >= numOutcomes {
			return errors.NewValueError(op, "outcome index out of range")
		}
		if d.EventCounts[i] <= 0 {
			return errors.NewValueError(op, "event count must be positive")
		}
	}
	return nil
}

// NumEvents returns the number of unique (compressed) events.
func (d *IndexedEvents) NumEvents() int { return len(d.EventContexts) }

// FromMatrix converts a dense design matrix and label vector into indexed
// events: each row becomes one event whose active predicates are the
// non-zero columns, carrying the matrix entries as real values. Predicate
// labels are taken from featureNames when given, synthesized otherwise.
func FromMatrix(x mat.Matrix, y []int, featureNames, outcomeNames []string) (*IndexedEvents, error) {
	const op = "maxent.FromMatrix"
	rows, cols := x.Dims()
	if rows == 0 {
		return nil, errors.NewModelError(op, "empty design matrix", errors.ErrEmptyData)
	}
	if len(y) != rows {
		return nil, errors.NewDimensionError(op, rows, len(y), 0)
	}
	if featureNames == nil {
		featureNames = make([]string, cols)
		for j := range featureNames {
			featureNames[j] = "x" + strconv.Itoa(j)
		}
	} else if len(featureNames) != cols {
		return nil, errors.NewDimensionError(op, cols, len(featureNames), 1)
	}

	maxOutcome := 0
	for _, o := range y {
		if o < 0 {
			return nil, errors.NewValueError(op, "outcome labels must be non-negative")
		}
		if o > maxOutcome {
			maxOutcome = o
		}
	}
	if outcomeNames == nil {
		outcomeNames = make([]string, maxOutcome+1)
		for i := range outcomeNames {
			outcomeNames[i] = "y" + strconv.Itoa(i)
		}
	} else if len(outcomeNames) <= maxOutcome {
		return nil, errors.NewDimensionError(op, maxOutcome+1, len(outcomeNames), 0)
	}

	events := &IndexedEvents{
		EventContexts: make([][]int, rows),
		EventValues:   make([][]float64, rows),
		EventOutcomes: append([]int(nil), y...),
		EventCounts:   make([]int, rows),
		Predicates:    featureNames,
		OutcomeNames:  outcomeNames,
	}
	for i := 0; i < rows; i++ {
		var ctx []int
		var vals []float64
		for j := 0; j < cols; j++ {
			if v := x.At(i, j); v != 0 {
				ctx = append(ctx, j)
				vals = append(vals, v)
			}
		}
		events.EventContexts[i] = ctx
		events.EventValues[i] = vals
		events.EventCounts[i] = 1
	}
	if err := events.Validate(); err != nil {
		return nil, err
	}
	return events, nil
}
