// =============================================================================
// Meter Aggregator - Aggregate Command
// =============================================================================
//
// This file defines the 'aggregate' command. It runs the engine over the
// input directory and prints the requested views as tables.
//
// COMMAND USAGE:
//   meteragg aggregate [flags]
//
// FLAGS:
//   --view   : daily, cumulative, monthly, deltas, yearly or all (repeatable)
//   --files  : Also print the per-file report
//
// PROCESSING PIPELINE:
//   1. Load configuration and build the engine
//   2. Discover and parse every file in the input directory
//   3. Fold periodic and interval readings into the accumulator
//   4. Print each requested view
//   5. Print warnings
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ginjaninja78/meteragg/internal/engine"
	"github.com/ginjaninja78/meteragg/internal/export"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// views lists the views to print.
var views []string

// showFiles prints the per-file report after the views.
var showFiles bool

// =============================================================================
// AGGREGATE COMMAND DEFINITION
// =============================================================================

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate meter exports and print the result",
	Long: `The aggregate command reads every file in the input directory, reconciles
overlapping readings and prints the normalized views.

Periodic exports contribute monthly Bezug and Einspeisung values. Interval
load profiles contribute daily totals; a day that was already accepted for
the same quantity is ignored.

Nothing is written to disk except the optional metrics textfile.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runAggregate(cmd, os.Stdout)
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(aggregateCmd)

	aggregateCmd.Flags().StringSliceVar(
		&views,
		"view",
		[]string{export.ViewMonthly, export.ViewYearly},
		"Views to print: daily, cumulative, monthly, deltas, yearly or all",
	)

	aggregateCmd.Flags().BoolVar(
		&showFiles,
		"files",
		false,
		"Print the per-file report",
	)
}

// =============================================================================
// MAIN AGGREGATE FUNCTION
// =============================================================================

func runAggregate(cmd *cobra.Command, out io.Writer) error {
	selected, err := selectViews(views)
	if err != nil {
		return err
	}

	s, err := setup("aggregate")
	if err != nil {
		return err
	}

	result, err := s.aggregate(cmd.Context())
	if err != nil {
		return err
	}

	heading := color.New(color.FgCyan, color.Bold)
	for _, view := range selected {
		table, err := export.TableFor(result.Views, view)
		if err != nil {
			return err
		}
		heading.Fprintf(out, "\n%s\n", view)
		if err := export.RenderTable(out, table, s.cfg.Precision); err != nil {
			return err
		}
	}

	if showFiles {
		printFiles(out, result)
	}
	printWarnings(out, result)

	fmt.Fprintf(out, "\nRun %s: %d file(s), %d month(s), %d day(s) in %s\n",
		result.ShortID(), len(result.Files), len(result.Views.Monthly),
		len(result.Views.Daily), result.Duration.Round(time.Millisecond))
	return nil
}

// selectViews expands "all" and rejects unknown view names.
func selectViews(requested []string) ([]string, error) {
	var selected []string
	for _, v := range requested {
		if v == "all" {
			return export.Views, nil
		}
		if !slices.Contains(export.Views, v) {
			return nil, fmt.Errorf("unknown view %q", v)
		}
		if !slices.Contains(selected, v) {
			selected = append(selected, v)
		}
	}
	if len(selected) == 0 {
		return []string{export.ViewMonthly}, nil
	}
	return selected, nil
}

func printFiles(out io.Writer, result *engine.Result) {
	width := pathWidth()
	fmt.Fprintln(out)
	for _, f := range result.Files {
		status := color.GreenString(string(f.Status))
		if f.Status != engine.StatusOK {
			status = color.RedString(string(f.Status))
		}
		fmt.Fprintf(out, "%-10s %-12s %s  accepted=%d merged=%d duplicates=%d\n",
			status, f.Dialect, truncatePath(f.Path, width), f.Accepted, f.Merged, f.Duplicates)
		if f.Error != "" {
			fmt.Fprintf(out, "           %s\n", f.Error)
		}
	}
}

// pathWidth is the room left for a path on a file line of the terminal.
func pathWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	// status, dialect and the three counters
	available := width - 60
	if available < 20 {
		return 20
	}
	return available
}

// truncatePath keeps the tail of path, which holds the file name.
func truncatePath(path string, width int) string {
	if len(path) <= width {
		return path
	}
	return "..." + path[len(path)-width+3:]
}

func printWarnings(out io.Writer, result *engine.Result) {
	if len(result.Warnings) == 0 {
		return
	}
	warn := color.New(color.FgYellow)
	fmt.Fprintln(out)
	for _, w := range result.Warnings {
		warn.Fprintln(out, w.String())
	}
}
