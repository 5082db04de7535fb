package aggregate

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/ginjaninja78/meteragg/internal/types"
)

// Views is the output of one run. Every slice is owned by the caller.
type Views struct {
	// Monthly has one row per accepted month with the register totals.
	Monthly []types.MonthlyEntry `json:"monthly"`

	// Deltas has one row per accepted month with the change since the
	// previous row carrying a value for the same quantity.
	Deltas []types.MonthlyEntry `json:"deltas"`

	// Yearly is the calendar-year rollup of Monthly, in year order.
	Yearly []types.YearlyEntry `json:"yearly"`

	// Daily has one row per accepted (label, day).
	Daily []types.SeriesEntry `json:"daily"`

	// Cumulative parallels Daily with running per-label sums.
	Cumulative []types.SeriesEntry `json:"cumulative"`
}

// Views builds the output series. Rows are in first-accepted order unless
// sortPeriods is set, in which case monthly rows are sorted by period and
// daily rows by (day, label) before the derived views are computed.
func (a *Accumulator) Views(sortPeriods bool) Views {
	monthly := make([]types.MonthlyEntry, 0, a.months.Len())
	for _, period := range a.months.Keys() {
		monthly = append(monthly, types.MonthlyEntry{Period: period, Pair: clonePair(*a.monthly[period])})
	}

	daily := slices.Clone(a.daily)
	if daily == nil {
		daily = []types.SeriesEntry{}
	}

	if sortPeriods {
		SortMonthly(monthly)
		SortDaily(daily)
	}

	return Views{
		Monthly:    monthly,
		Deltas:     MonthlyDeltas(monthly),
		Yearly:     Yearly(monthly),
		Daily:      daily,
		Cumulative: Cumulative(daily),
	}
}

// SortMonthly stable-sorts rows by period.
func SortMonthly(rows []types.MonthlyEntry) {
	slices.SortStableFunc(rows, func(a, b types.MonthlyEntry) int {
		return strings.Compare(a.Period, b.Period)
	})
}

// SortDaily stable-sorts rows by day, then label.
func SortDaily(rows []types.SeriesEntry) {
	slices.SortStableFunc(rows, func(a, b types.SeriesEntry) int {
		if c := a.Day.Compare(b.Day); c != 0 {
			return c
		}
		return strings.Compare(string(a.Label), string(b.Label))
	})
}

// =============================================================================
// DERIVED VIEWS
// =============================================================================

// Cumulative returns, for each daily row, the running sum of all rows with
// the same label up to and including it, in row order.
func Cumulative(daily []types.SeriesEntry) []types.SeriesEntry {
	out := make([]types.SeriesEntry, 0, len(daily))
	totals := make(map[types.Quantity]float64)
	for _, d := range daily {
		totals[d.Label] += d.Value
		out = append(out, types.SeriesEntry{Label: d.Label, Day: d.Day, Value: totals[d.Label]})
	}
	return out
}

// MonthlyDeltas returns, per row and quantity, the difference from the most
// recent earlier row holding a value for that quantity. The first value of a
// quantity, and every null, has a null delta.
func MonthlyDeltas(monthly []types.MonthlyEntry) []types.MonthlyEntry {
	out := make([]types.MonthlyEntry, 0, len(monthly))
	var last types.Pair
	for _, row := range monthly {
		delta := types.MonthlyEntry{Period: row.Period}
		for _, q := range types.Quantities {
			v := row.Get(q)
			if v == nil {
				continue
			}
			if prev := last.Get(q); prev != nil {
				delta.Set(q, types.Float(*v-*prev))
			}
			last.Set(q, types.Float(*v))
		}
		out = append(out, delta)
	}
	return out
}

// Yearly rolls monthly rows up to calendar years.
//
// For each year the row with the highest month number present is the
// year-end value. Across years in ascending order:
//   - Cumulative is the running sum of year-end values. A null value adds
//     nothing and the previous cumulative is carried.
//   - Difference is the year-end value minus the previous non-null year-end
//     value. With no earlier value it equals the value itself. A null value
//     has a null difference.
func Yearly(monthly []types.MonthlyEntry) []types.YearlyEntry {
	type yearEnd struct {
		month int
		pair  types.Pair
	}
	ends := make(map[int]yearEnd)

	for _, row := range monthly {
		year, month, ok := splitPeriod(row.Period)
		if !ok {
			continue
		}
		if cur, seen := ends[year]; !seen || month > cur.month {
			ends[year] = yearEnd{month: month, pair: row.Pair}
		}
	}

	years := make([]int, 0, len(ends))
	for y := range ends {
		years = append(years, y)
	}
	slices.SortFunc(years, cmp.Compare[int])

	out := make([]types.YearlyEntry, 0, len(years))
	var running, previous types.Pair
	for _, year := range years {
		entry := types.YearlyEntry{Year: year, Value: clonePair(ends[year].pair)}
		for _, q := range types.Quantities {
			v := entry.Value.Get(q)
			if v == nil {
				if r := running.Get(q); r != nil {
					entry.Cumulative.Set(q, types.Float(*r))
				}
				continue
			}

			total := *v
			if r := running.Get(q); r != nil {
				total += *r
			}
			running.Set(q, types.Float(total))
			entry.Cumulative.Set(q, types.Float(total))

			diff := *v
			if p := previous.Get(q); p != nil {
				diff = *v - *p
			}
			entry.Difference.Set(q, types.Float(diff))
			previous.Set(q, types.Float(*v))
		}
		out = append(out, entry)
	}
	return out
}

// splitPeriod parses a YYYY-MM key.
func splitPeriod(period string) (year, month int, ok bool) {
	y, m, found := strings.Cut(period, "-")
	if !found {
		return 0, 0, false
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return 0, 0, false
	}
	month, err = strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}
