// =============================================================================
// Meter Aggregator - Register Extractor
// =============================================================================
//
// This module reads periodic register exports. Every TimePeriod element in
// the tree becomes one PeriodicReading keyed by the YYYY-MM of its end
// timestamp. Only the four recognised register codes are retained.
//
// =============================================================================

package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/meteragg/internal/resolve"
	"github.com/ginjaninja78/meteragg/internal/source"
	"github.com/ginjaninja78/meteragg/internal/types"
)

const (
	periodTag = "TimePeriod"
	rowTag    = "ValueRow"
	endAttr   = "end"
	obisAttr  = "obis"
	valueAttr = "value"
)

// Periodic extracts every reporting period of a periodic document, in
// document order.
//
// RETURNS:
//   - One reading per TimePeriod element. A period may appear more than
//     once; merging is the aggregator's job.
//   - A *types.FileError wrapping ErrMissingField if a period has no usable
//     end timestamp.
//
// A value row without a register code, or whose value is missing or not a
// decimal, is ignored. The affected quantity then resolves to null.
func Periodic(doc *source.Document) ([]types.PeriodicReading, error) {
	var readings []types.PeriodicReading

	for _, period := range source.FindByTag(doc.Root(), periodTag) {
		end := period.SelectAttr(endAttr)
		if end == nil {
			return nil, types.NewFileError(doc.Path, types.MissingField("TimePeriod@end"))
		}
		ts, err := ParseNaive(end.Value)
		if err != nil {
			return nil, types.NewFileError(doc.Path, fmt.Errorf("%w: %v", types.ErrMissingField, err))
		}

		reading := types.PeriodicReading{
			Period:    types.MonthKey(ts),
			Registers: make(map[string]float64),
		}

		// Rows are collected from anywhere below the period. A repeated code
		// keeps its last occurrence.
		for _, row := range source.FindByTag(period, rowTag) {
			code := strings.TrimSpace(row.SelectAttrValue(obisAttr, ""))
			if !resolve.IsRegister(code) {
				continue
			}
			raw := row.SelectAttr(valueAttr)
			if raw == nil {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(raw.Value), 64)
			if err != nil {
				continue
			}
			reading.Registers[code] = v
		}

		readings = append(readings, reading)
	}

	return readings, nil
}
