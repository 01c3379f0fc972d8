package maxent

import (
	"fmt"
	"math"
	"strings"

	"github.com/ezoic/gonlp/core/vecmath"
	"github.com/ezoic/gonlp/pkg/errors"
)

// Context holds the sparse weight row of one predicate: the outcome ids with
// non-zero weight and their weights, in parallel slices. Produced once at
// the end of training and immutable afterwards.
type Context struct {
	Outcomes   []int
	Parameters []float64
}

// EvalParameters bundles the per-predicate weight rows with the outcome
// count, forming the numeric core of a trained model.
type EvalParameters struct {
	Params      []Context
	NumOutcomes int
}

// Model is a trained maximum-entropy model. It scores a feature context
// into a probability distribution over outcomes via a softmax of the linear
// per-outcome scores.
type Model struct {
	params        EvalParameters
	predLabels    []string
	outcomeLabels []string
	predIndex     map[string]int
}

// NewModel assembles a trained model from its weight rows and label arrays.
func NewModel(params EvalParameters, predLabels, outcomeLabels []string) (*Model, error) {
	const op = "maxent.NewModel"
	if len(params.Params) != len(predLabels) {
		return nil, errors.NewDimensionError(op, len(predLabels), len(params.Params), 0)
	}
	if params.NumOutcomes != len(outcomeLabels) {
		return nil, errors.NewDimensionError(op, len(outcomeLabels), params.NumOutcomes, 0)
	}
	predIndex := make(map[string]int, len(predLabels))
	for i, p := range predLabels {
		predIndex[p] = i
	}
	return &Model{
		params:        params,
		predLabels:    predLabels,
		outcomeLabels: outcomeLabels,
		predIndex:     predIndex,
	}, nil
}

// Eval returns the outcome probability distribution for a context of active
// predicate indices, each carrying the implicit value 1.0. Out-of-range
// indices are ignored, matching the behavior on unseen predicates.
func (m *Model) Eval(features []int) []float64 {
	return m.EvalValues(features, nil)
}

// EvalValues is Eval with explicit real values per active predicate. A nil
// values slice means all predicates carry 1.0.
func (m *Model) EvalValues(features []int, values []float64) []float64 {
	scores := make([]float64, m.params.NumOutcomes)
	for i, f := range features {
		if f < 0 || f >= len(m.params.Params) {
			continue
		}
		v := 1.0
		if values != nil {
			v = values[i]
		}
		ctx := &m.params.Params[f]
		for j, oi := range ctx.Outcomes {
			scores[oi] += v * ctx.Parameters[j]
		}
	}
	norm := vecmath.LogSumOfExps(scores)
	for oi := range scores {
		scores[oi] = math.Exp(scores[oi] - norm)
	}
	return scores
}

// EvalStrings scores a context given by predicate names. Unknown predicates
// are ignored.
func (m *Model) EvalStrings(features []string) []float64 {
	ids := make([]int, 0, len(features))
	for _, f := range features {
		if id, ok := m.predIndex[f]; ok {
			ids = append(ids, id)
		}
	}
	return m.Eval(ids)
}

// BestOutcome returns the label of the most probable outcome in probs.
func (m *Model) BestOutcome(probs []float64) (string, error) {
	id, err := vecmath.MaxID(probs)
	if err != nil {
		return "", err
	}
	if id >= len(m.outcomeLabels) {
		return "", errors.NewDimensionError("Model.BestOutcome", len(m.outcomeLabels), len(probs), 0)
	}
	return m.outcomeLabels[id], nil
}

// AllOutcomes renders a probability distribution as space-separated
// "label[prob]" pairs, in outcome-id order.
func (m *Model) AllOutcomes(probs []float64) string {
	var b strings.Builder
	for i, p := range probs {
		if i > 0 {
			b.WriteByte(' ')
		}
		label := ""
		if i < len(m.outcomeLabels) {
			label = m.outcomeLabels[i]
		}
		fmt.Fprintf(&b, "%s[%.4f]", label, p)
	}
	return b.String()
}

// Outcome returns the label of outcome id i.
func (m *Model) Outcome(i int) string { return m.outcomeLabels[i] }

// OutcomeLabels returns the outcome label array, indexed by outcome id.
func (m *Model) OutcomeLabels() []string { return m.outcomeLabels }

// PredLabels returns the predicate label array, indexed by predicate id.
func (m *Model) PredLabels() []string { return m.predLabels }

// NumOutcomes returns the number of outcomes the model distinguishes.
func (m *Model) NumOutcomes() int { return m.params.NumOutcomes }

// NumPredicates returns the number of predicates the model knows.
func (m *Model) NumPredicates() int { return len(m.params.Params) }

// Parameters exposes the sparse weight rows, for inspection and tests.
func (m *Model) Parameters() EvalParameters { return m.params }
