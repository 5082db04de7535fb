// =============================================================================
// Meter Aggregator - Accumulator
// =============================================================================
//
// The accumulator is the explicit state of one aggregation run. Every file is
// folded into it in processing order, and Views turns it into the immutable
// output series once all files are in.
//
// PERIODIC DATA:
//   Keyed by YYYY-MM. The first file to mention a month fixes its row
//   position. Later files may fill in a quantity that is still null. When two
//   files disagree on a non-null value the MergePolicy decides. A null never
//   overwrites a value.
//
// INTERVAL DATA:
//   Keyed by (label, day). The first accepted day wins outright; later
//   candidates for the same key are discarded whole.
//
// =============================================================================

package aggregate

import (
	"fmt"

	"github.com/ginjaninja78/meteragg/internal/config"
	"github.com/ginjaninja78/meteragg/internal/dedup"
	"github.com/ginjaninja78/meteragg/internal/types"
)

// =============================================================================
// POLICIES AND OUTCOMES
// =============================================================================

// MergePolicy resolves a disagreement between two files on the same periodic
// quantity.
type MergePolicy string

const (
	LastWins  MergePolicy = config.MergeLastWins
	FirstWins MergePolicy = config.MergeFirstWins
	Strict    MergePolicy = config.MergeStrict
)

// Outcome describes what happened to one candidate period.
type Outcome string

const (
	// Accepted means the period key was new.
	Accepted Outcome = "accepted"
	// Merged means the key existed and at least one quantity changed.
	Merged Outcome = "merged"
	// Duplicate means the candidate did not change the accumulated state.
	Duplicate Outcome = "duplicate"
)

// Conflict is a non-null disagreement on a periodic quantity.
type Conflict struct {
	Period   string
	Quantity types.Quantity
	Existing float64
	Incoming float64
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s %s: %g vs %g", c.Period, c.Quantity, c.Existing, c.Incoming)
}

// =============================================================================
// ACCUMULATOR
// =============================================================================

// Accumulator holds the deduplicated state of a single run. It is not safe
// for concurrent use; runs are sequential.
type Accumulator struct {
	policy MergePolicy

	months  *dedup.Set[string]
	monthly map[string]*types.Pair

	days  *dedup.Set[dedup.DayKey]
	daily []types.SeriesEntry
}

// NewAccumulator creates an empty accumulator. An empty policy means LastWins.
func NewAccumulator(policy MergePolicy) *Accumulator {
	if policy == "" {
		policy = LastWins
	}
	return &Accumulator{
		policy:  policy,
		months:  dedup.New[string](),
		monthly: make(map[string]*types.Pair),
		days:    dedup.New[dedup.DayKey](),
	}
}

// MergePeriod folds one resolved periodic reading.
//
// PARAMETERS:
//   - period: The canonical YYYY-MM key.
//   - in: The resolved quantities. Nil quantities are ignored.
//
// RETURNS:
//   - The outcome for metrics and file reports.
//   - Every non-null disagreement observed, whichever value was kept.
//   - An error wrapping ErrConflictingReading under the Strict policy when
//     there was a disagreement. The state is then left unchanged.
func (a *Accumulator) MergePeriod(period string, in types.Pair) (Outcome, []Conflict, error) {
	if a.months.Add(period) {
		p := clonePair(in)
		a.monthly[period] = &p
		return Accepted, nil, nil
	}

	existing := a.monthly[period]
	next := clonePair(*existing)
	changed := false
	var conflicts []Conflict

	for _, q := range types.Quantities {
		v := in.Get(q)
		if v == nil {
			continue
		}
		cur := next.Get(q)
		if cur == nil {
			next.Set(q, types.Float(*v))
			changed = true
			continue
		}
		if *cur == *v {
			continue
		}

		conflicts = append(conflicts, Conflict{Period: period, Quantity: q, Existing: *cur, Incoming: *v})
		if a.policy == LastWins {
			next.Set(q, types.Float(*v))
			changed = true
		}
	}

	if a.policy == Strict && len(conflicts) > 0 {
		return Duplicate, conflicts, fmt.Errorf("%w: %s", types.ErrConflictingReading, conflicts[0])
	}

	if !changed {
		return Duplicate, conflicts, nil
	}
	*existing = next
	return Merged, conflicts, nil
}

// AddDay folds one emitted interval day. It reports whether the day was
// accepted; a (label, day) pair already present is discarded.
func (a *Accumulator) AddDay(label types.Quantity, b types.DayBucket) bool {
	if !a.days.Add(dedup.Day(label, b)) {
		return false
	}
	a.daily = append(a.daily, types.SeriesEntry{Label: label, Day: b.Day, Value: b.Total})
	return true
}

// Months returns the number of distinct periodic months accepted so far.
func (a *Accumulator) Months() int {
	return a.months.Len()
}

// Days returns the number of distinct (label, day) pairs accepted so far.
func (a *Accumulator) Days() int {
	return a.days.Len()
}

func clonePair(p types.Pair) types.Pair {
	var out types.Pair
	for _, q := range types.Quantities {
		if v := p.Get(q); v != nil {
			out.Set(q, types.Float(*v))
		}
	}
	return out
}
