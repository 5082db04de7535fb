// =============================================================================
// Meter Aggregator - Interval Extractor
// =============================================================================
//
// This module reads interval load-profile exports in the http://www.strom.ch
// namespace and splits their observation stream into calendar days.
//
// DAY SPLITTING:
//   A quarter-hour profile carries exactly 96 observations per day. Every 96
//   observations close a day and advance the day pointer by one calendar day.
//   A trailing remainder is emitted as a final, partial day.
//
//     97 observations starting 2024-03-01  ->  2024-03-01 (96), 2024-03-02 (1)
//
// =============================================================================

package extract

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/meteragg/internal/resolve"
	"github.com/ginjaninja78/meteragg/internal/source"
	"github.com/ginjaninja78/meteragg/internal/types"
)

// IntervalsPerDay is the number of 15-minute observations in one day.
const IntervalsPerDay = 96

// Interval extracts the report of an interval document.
//
// RETURNS:
//   - The report with its label already resolved from the document identity.
//   - A *types.FileError wrapping ErrMissingField if DocumentID,
//     StartDateTime or EndDateTime is absent or unparseable.
//
// Observations are read in document order. One whose Volume is missing or
// not a number keeps its slot with value 0 and is counted in InvalidVolumes.
func Interval(doc *source.Document) (*types.IntervalReport, error) {
	root := doc.Root()
	ns := source.IntervalNamespace

	text := func(tag string) (string, error) {
		el := source.FindFirst(root, ns, tag)
		if el == nil || strings.TrimSpace(el.Text()) == "" {
			return "", types.NewFileError(doc.Path, types.MissingField(tag))
		}
		return strings.TrimSpace(el.Text()), nil
	}
	timestamp := func(tag string) (time.Time, error) {
		v, err := text(tag)
		if err != nil {
			return time.Time{}, err
		}
		t, err := ParseNaive(v)
		if err != nil {
			return time.Time{}, types.NewFileError(doc.Path, fmt.Errorf("%w: %s: %v", types.ErrMissingField, tag, err))
		}
		return t, nil
	}

	id, err := text("DocumentID")
	if err != nil {
		return nil, err
	}
	start, err := timestamp("StartDateTime")
	if err != nil {
		return nil, err
	}
	end, err := timestamp("EndDateTime")
	if err != nil {
		return nil, err
	}

	report := &types.IntervalReport{
		DocumentID: id,
		Label:      resolve.Label(id),
		Start:      start,
		End:        end,
	}

	for _, obs := range source.FindAll(root, ns, "Observation") {
		volume := 0.0
		el := source.FindFirst(obs, ns, "Volume")
		if el == nil {
			report.InvalidVolumes++
		} else if v, err := strconv.ParseFloat(strings.TrimSpace(el.Text()), 64); err != nil {
			report.InvalidVolumes++
		} else {
			volume = v
		}
		report.Volumes = append(report.Volumes, volume)
	}

	return report, nil
}

// Days splits a report's volumes into calendar-day buckets, starting at the
// calendar date of the report's start timestamp. A report without
// observations yields no days.
func Days(report *types.IntervalReport) []types.DayBucket {
	var days []types.DayBucket

	day := calendarDay(report.Start)
	bucket := types.DayBucket{Day: day}

	for _, v := range report.Volumes {
		bucket.Total += v
		bucket.Count++
		if bucket.Count == IntervalsPerDay {
			days = append(days, bucket)
			day = day.AddDate(0, 0, 1)
			bucket = types.DayBucket{Day: day}
		}
	}
	if bucket.Count > 0 {
		days = append(days, bucket)
	}

	return days
}

// Partial reports whether the bucket holds fewer than a full day of
// observations.
func Partial(b types.DayBucket) bool {
	return b.Count < IntervalsPerDay
}
