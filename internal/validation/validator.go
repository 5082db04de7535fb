// =============================================================================
// Meter Aggregator - Result Validator
// =============================================================================
//
// This module checks an aggregation result for conditions an operator should
// see before the numbers are used.
//
// ISSUE LEVELS:
//   warning - data quality problems common in real exports
//             (unknown quantity, partial day, invalid volumes, incomplete
//             register pairs, skipped or unrecognised files, conflicts)
//   error   - a result whose views are inconsistent
//             (negative daily totals, non-monotonic cumulative series,
//             duplicate (label, day) rows)
//
// Issues are collected, never thrown. The validate command exits non-zero
// when at least one error-level issue is found.
//
// =============================================================================

package validation

import (
	"fmt"
	"os"
	"strings"

	"github.com/ginjaninja78/meteragg/internal/engine"
	"github.com/ginjaninja78/meteragg/internal/types"
)

// =============================================================================
// ISSUE TYPES
// =============================================================================

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue is a single finding.
type Issue struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string `json:"severity"`

	// Rule names the check that produced the issue.
	Rule string `json:"rule"`

	// File is the input file concerned, when known.
	File string `json:"file,omitempty"`

	// Period is the month or day concerned, when known.
	Period string `json:"period,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message"`
}

// Error implements the error interface.
func (i *Issue) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(i.Severity), i.Rule)
	if i.File != "" {
		fmt.Fprintf(&b, " %s", i.File)
	}
	if i.Period != "" {
		fmt.Fprintf(&b, " [%s]", i.Period)
	}
	fmt.Fprintf(&b, ": %s", i.Message)
	return b.String()
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no error-level issues.
	IsValid bool

	// Issues contains every finding, errors first in check order.
	Issues []*Issue

	ErrorCount   int
	WarningCount int
}

func (v *ValidationResult) add(severity, rule, file, period, msg string) {
	v.Issues = append(v.Issues, &Issue{Severity: severity, Rule: rule, File: file, Period: period, Message: msg})
	if severity == SeverityError {
		v.ErrorCount++
	} else {
		v.WarningCount++
	}
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// Validate checks a run result.
func Validate(result *engine.Result) *ValidationResult {
	v := &ValidationResult{}

	checkDaily(v, result.Views.Daily)
	checkCumulative(v, result.Views.Cumulative)
	checkWarnings(v, result.Warnings)

	v.IsValid = v.ErrorCount == 0
	return v
}

// checkDaily flags negative totals and repeated (label, day) rows.
func checkDaily(v *ValidationResult, daily []types.SeriesEntry) {
	seen := make(map[string]bool, len(daily))
	for _, d := range daily {
		key := string(d.Label) + "/" + d.DayString()
		if seen[key] {
			v.add(SeverityError, "duplicate_day", "", d.DayString(),
				fmt.Sprintf("%s appears more than once in the daily view", d.Label))
		}
		seen[key] = true

		if d.Value < 0 {
			v.add(SeverityError, "negative_daily_total", "", d.DayString(),
				fmt.Sprintf("%s daily total %g is negative", d.Label, d.Value))
		}
	}
}

// checkCumulative flags a cumulative series that decreases for a label.
func checkCumulative(v *ValidationResult, cumulative []types.SeriesEntry) {
	last := make(map[types.Quantity]float64)
	for _, c := range cumulative {
		if prev, ok := last[c.Label]; ok && c.Value < prev {
			v.add(SeverityError, "non_monotonic_cumulative", "", c.DayString(),
				fmt.Sprintf("%s cumulative drops from %g to %g", c.Label, prev, c.Value))
		}
		last[c.Label] = c.Value
	}
}

// checkWarnings turns the run's own warnings into warning-level issues.
func checkWarnings(v *ValidationResult, warnings []types.Warning) {
	for _, w := range warnings {
		v.add(SeverityWarning, string(w.Code), w.File, w.Period, w.Message)
	}
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

// FormatIssues formats issues for display or logging.
func FormatIssues(issues []*Issue) string {
	if len(issues) == 0 {
		return "No validation issues."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation completed with %d issue(s):\n\n", len(issues)))
	for i, issue := range issues {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, issue.Error()))
	}
	return builder.String()
}

// WriteIssueLog writes FormatIssues output to filePath.
func WriteIssueLog(issues []*Issue, filePath string) error {
	if err := os.WriteFile(filePath, []byte(FormatIssues(issues)), 0o644); err != nil {
		return fmt.Errorf("failed to write validation log: %w", err)
	}
	return nil
}
