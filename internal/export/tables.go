// =============================================================================
// Meter Aggregator - Export Tables
// =============================================================================
//
// Every export format works from the same tabular rendering of the views:
//
//   daily, cumulative       Sensor_ID | DateTime | Value
//   monthly, deltas         Period | Bezug | Einspeisung
//   yearly                  Year | Bezug | Einspeisung | *_Cumulative | *_Difference
//
// Sensor identifiers are ID742 for consumption and ID735 for everything
// else. Cells are string, int or float64; nil is a null value.
//
// =============================================================================

package export

import (
	"fmt"
	"strconv"

	"github.com/ginjaninja78/meteragg/internal/aggregate"
	"github.com/ginjaninja78/meteragg/internal/resolve"
	"github.com/ginjaninja78/meteragg/internal/types"
)

// View names, in output order.
const (
	ViewDaily      = "daily"
	ViewCumulative = "cumulative"
	ViewMonthly    = "monthly"
	ViewDeltas     = "deltas"
	ViewYearly     = "yearly"
)

// Views lists every view name in output order.
var Views = []string{ViewDaily, ViewCumulative, ViewMonthly, ViewDeltas, ViewYearly}

// Table is one view rendered as rows.
type Table struct {
	View   string
	Header []string
	Rows   [][]any
}

// Tables renders every view of v in output order.
func Tables(v aggregate.Views) []Table {
	return []Table{
		seriesTable(ViewDaily, v.Daily),
		seriesTable(ViewCumulative, v.Cumulative),
		monthlyTable(ViewMonthly, v.Monthly),
		monthlyTable(ViewDeltas, v.Deltas),
		yearlyTable(v.Yearly),
	}
}

// TableFor renders a single view by name.
func TableFor(v aggregate.Views, view string) (Table, error) {
	for _, t := range Tables(v) {
		if t.View == view {
			return t, nil
		}
	}
	return Table{}, fmt.Errorf("unknown view %q", view)
}

func seriesTable(view string, rows []types.SeriesEntry) Table {
	t := Table{View: view, Header: []string{"Sensor_ID", "DateTime", "Value"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{resolve.SensorID(r.Label), r.DayString(), r.Value})
	}
	return t
}

func monthlyTable(view string, rows []types.MonthlyEntry) Table {
	t := Table{View: view, Header: []string{"Period", string(types.Consumption), string(types.FeedIn)}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Period, cell(r.Consumption), cell(r.FeedIn)})
	}
	return t
}

func yearlyTable(rows []types.YearlyEntry) Table {
	c, f := string(types.Consumption), string(types.FeedIn)
	t := Table{View: ViewYearly, Header: []string{
		"Year", c, f,
		c + "_Cumulative", f + "_Cumulative",
		c + "_Difference", f + "_Difference",
	}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.Year,
			cell(r.Value.Consumption), cell(r.Value.FeedIn),
			cell(r.Cumulative.Consumption), cell(r.Cumulative.FeedIn),
			cell(r.Difference.Consumption), cell(r.Difference.FeedIn),
		})
	}
	return t
}

func cell(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// Strings formats every row with precision decimals. Nulls become empty
// strings.
func (t Table) Strings(precision int) [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		line := make([]string, len(row))
		for i, c := range row {
			line[i] = formatCell(c, precision)
		}
		out = append(out, line)
	}
	return out
}

func formatCell(c any, precision int) string {
	switch v := c.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', precision, 64)
	case int:
		return strconv.Itoa(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
