// =============================================================================
// Meter Aggregator - Main Entry Point
// =============================================================================
//
// Meter Aggregator reconciles periodic register exports and 15-minute
// interval load profiles into monthly, yearly and daily consumption and
// feed-in series.
//
// USAGE:
//   meteragg aggregate   - Print the aggregated views
//   meteragg export      - Write the views as csv, json, xlsx, parquet or pdf
//   meteragg validate    - Check the input for data problems
//   meteragg version     - Display the application version
//
// LAYOUT:
//   cmd/        : Cobra command definitions
//   internal/   : Reader, extractors, aggregation engine and exporters
//   pkg/utils/  : Output naming, archiving and the run summary
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/meteragg/cmd"
)

func main() {
	cmd.Execute()
}
