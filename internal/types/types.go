// =============================================================================
// Meter Aggregator - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - source, extract, resolve (reading side)
//   - dedup, aggregate, engine (folding side)
//   - validation, export (consumers of a run result)
//
// =============================================================================

package types

import (
	"fmt"
	"time"
)

// =============================================================================
// QUANTITIES
// =============================================================================

// Quantity is the semantic meaning of a value. Labels are kept in the
// vocabulary of the source exports.
type Quantity string

const (
	// Consumption is energy drawn from the grid.
	Consumption Quantity = "Bezug"

	// FeedIn is energy exported to the grid.
	FeedIn Quantity = "Einspeisung"

	// Unknown marks an interval report whose identity matched neither marker.
	// It still flows through the pipeline so misclassified files are visible.
	Unknown Quantity = "Unknown"
)

// Known reports whether q is one of the two resolvable quantities.
func (q Quantity) Known() bool {
	return q == Consumption || q == FeedIn
}

// =============================================================================
// DIALECTS
// =============================================================================

// Dialect tags the schema family a parsed document belongs to.
type Dialect int

const (
	// Unrecognized is a well-formed document that is neither dialect.
	Unrecognized Dialect = iota

	// Periodic is the monthly register-reading export.
	Periodic

	// Interval is the 15-minute load-profile export.
	Interval
)

// String returns the lower-case dialect name used in reports and metrics.
func (d Dialect) String() string {
	switch d {
	case Periodic:
		return "periodic"
	case Interval:
		return "interval"
	default:
		return "unrecognized"
	}
}

// MarshalText lets dialects appear by name in JSON output.
func (d Dialect) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// =============================================================================
// NULLABLE QUANTITY PAIRS
// =============================================================================

// Pair holds a consumption and a feed-in value, either of which may be null.
type Pair struct {
	Consumption *float64 `json:"Bezug"`
	FeedIn      *float64 `json:"Einspeisung"`
}

// Get returns the value for q, or nil for null or an unknown quantity.
func (p Pair) Get(q Quantity) *float64 {
	switch q {
	case Consumption:
		return p.Consumption
	case FeedIn:
		return p.FeedIn
	}
	return nil
}

// Set stores v for q. Unknown quantities are ignored.
func (p *Pair) Set(q Quantity, v *float64) {
	switch q {
	case Consumption:
		p.Consumption = v
	case FeedIn:
		p.FeedIn = v
	}
}

// Float returns a pointer to a copy of v.
func Float(v float64) *float64 {
	return &v
}

// Quantities lists the resolvable quantities in column order.
var Quantities = []Quantity{Consumption, FeedIn}

// =============================================================================
// EXTRACTED READINGS
// =============================================================================

// PeriodicReading is one reporting period from a periodic export.
type PeriodicReading struct {
	// Period is the canonical YYYY-MM key.
	Period string

	// Registers maps a recognised register code to its value.
	Registers map[string]float64
}

// IntervalReport is one interval load-profile export.
type IntervalReport struct {
	DocumentID string
	Label      Quantity
	Start      time.Time
	End        time.Time

	// Volumes holds the observation volumes in document order.
	Volumes []float64

	// InvalidVolumes counts observations whose volume was missing or not a
	// number. They occupy a slot in Volumes with value 0.
	InvalidVolumes int
}

// DayBucket is one calendar day emitted from an interval report.
type DayBucket struct {
	Day   time.Time
	Total float64
	Count int
}

// DayKey formats a day pointer as the canonical YYYY-MM-DD key.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// MonthKey formats a timestamp as the canonical YYYY-MM key.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// =============================================================================
// OUTPUT ROWS
// =============================================================================

// MonthlyEntry is one row of a periodic view.
type MonthlyEntry struct {
	Period string `json:"period"`
	Pair
}

// YearlyEntry is one calendar-year rollup row.
type YearlyEntry struct {
	Year int `json:"year"`

	// Value is the year-end row: the highest month present for Year.
	Value Pair `json:"value"`

	// Cumulative is the running sum of Value across years.
	Cumulative Pair `json:"cumulative"`

	// Difference is the year-over-year first difference of Value.
	Difference Pair `json:"difference"`
}

// SeriesEntry is one row of the daily or cumulative interval view.
type SeriesEntry struct {
	Label Quantity  `json:"label"`
	Day   time.Time `json:"day"`
	Value float64   `json:"value"`
}

// DayString returns the entry's canonical day key.
func (e SeriesEntry) DayString() string {
	return DayKey(e.Day)
}

// =============================================================================
// WARNINGS
// =============================================================================

// WarningCode classifies a non-fatal observation made during a run.
type WarningCode string

const (
	WarnUnrecognizedQuantity WarningCode = "unrecognized_quantity"
	WarnUnrecognizedDialect  WarningCode = "unrecognized_dialect"
	WarnSkippedFile          WarningCode = "skipped_file"
	WarnPartialDay           WarningCode = "partial_day"
	WarnInvalidVolume        WarningCode = "invalid_volume"
	WarnIncompletePeriod     WarningCode = "incomplete_period"
	WarnConflictingReading   WarningCode = "conflicting_reading"
)

// Warning is a non-fatal, file-identifying observation.
type Warning struct {
	Code    WarningCode `json:"code"`
	File    string      `json:"file"`
	Period  string      `json:"period,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Period != "" {
		return fmt.Sprintf("%s: %s [%s]: %s", w.Code, w.File, w.Period, w.Message)
	}
	return fmt.Sprintf("%s: %s: %s", w.Code, w.File, w.Message)
}
