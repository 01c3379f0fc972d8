package maxent

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ezoic/gonlp/pkg/errors"
)

// Event is one raw training instance: the string predicates active in its
// context and the observed outcome label.
type Event struct {
	Context []string
	Outcome string
}

// IndexEvents builds an IndexedEvents set from raw string events. Predicates
// occurring fewer than cutoff times across the corpus are dropped; identical
// (context, outcome) pairs are compressed into a single event with a
// times-seen count. Vocabularies are sorted so indexing is deterministic.
func IndexEvents(events []Event, cutoff int) (*IndexedEvents, error) {
	const op = "maxent.IndexEvents"
	if len(events) == 0 {
		return nil, errors.NewModelError(op, "no events", errors.ErrEmptyData)
	}
	if cutoff < 1 {
		return nil, errors.NewValueError(op, "cutoff must be >= 1")
	}

	predCounts := make(map[string]int)
	outcomeSet := make(map[string]struct{})
	for _, ev := range events {
		outcomeSet[ev.Outcome] = struct{}{}
		seen := make(map[string]struct{}, len(ev.Context))
		for _, p := range ev.Context {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			predCounts[p]++
		}
	}

	preds := make([]string, 0, len(predCounts))
	for p, c := range predCounts {
		if c >= cutoff {
			preds = append(preds, p)
		}
	}
	if len(preds) == 0 {
		return nil, errors.NewValueError(op, "cutoff eliminated every predicate")
	}
	sort.Strings(preds)
	predIndex := make(map[string]int, len(preds))
	for i, p := range preds {
		predIndex[p] = i
	}

	outcomes := make([]string, 0, len(outcomeSet))
	for o := range outcomeSet {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	outcomeIndex := make(map[string]int, len(outcomes))
	for i, o := range outcomes {
		outcomeIndex[o] = i
	}

	// Compress duplicate (context, outcome) pairs into times-seen counts.
	type compressed struct {
		ctx     []int
		outcome int
		count   int
	}
	byKey := make(map[string]*compressed)
	var order []string
	for _, ev := range events {
		ctx := make([]int, 0, len(ev.Context))
		for _, p := range ev.Context {
			if id, ok := predIndex[p]; ok {
				ctx = append(ctx, id)
			}
		}
		if len(ctx) == 0 {
			// Event has no surviving predicates; nothing for a model to
			// condition on.
			continue
		}
		sort.Ints(ctx)
		ctx = dedupInts(ctx)

		key := eventKey(ctx, outcomeIndex[ev.Outcome])
		if c, ok := byKey[key]; ok {
			c.count++
			continue
		}
		byKey[key] = &compressed{ctx: ctx, outcome: outcomeIndex[ev.Outcome], count: 1}
		order = append(order, key)
	}
	if len(order) == 0 {
		return nil, errors.NewValueError(op, "no events with surviving predicates")
	}

	indexed := &IndexedEvents{
		EventContexts: make([][]int, len(order)),
		EventOutcomes: make([]int, len(order)),
		EventCounts:   make([]int, len(order)),
		Predicates:    preds,
		OutcomeNames:  outcomes,
	}
	for i, key := range order {
		c := byKey[key]
		indexed.EventContexts[i] = c.ctx
		indexed.EventOutcomes[i] = c.outcome
		indexed.EventCounts[i] = c.count
	}
	if err := indexed.Validate(); err != nil {
		return nil, err
	}
	return indexed, nil
}

func dedupInts(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}

func eventKey(ctx []int, outcome int) string {
	var b strings.Builder
	for _, p := range ctx {
		b.WriteString(strconv.Itoa(p))
		b.WriteByte(' ')
	}
	b.WriteByte('#')
	b.WriteString(strconv.Itoa(outcome))
	return b.String()
}
