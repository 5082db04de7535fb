// =============================================================================
// Meter Aggregator - Export Command
// =============================================================================
//
// This file defines the 'export' command, which runs the engine and writes
// the result to the output directory in the configured formats.
//
// COMMAND USAGE:
//   meteragg export [flags]
//
// FLAGS:
//   --format        : csv, json, xlsx, parquet, pdf (comma separated)
//   --out           : Output directory (overrides output_dir)
//   --archive       : Move successfully folded input files to archive_dir
//   --archive-dated : Archive under YYYY/MM/DD subdirectories
//
// On success a run summary (run_summary_<run>.txt) is written next to the
// exports.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/meteragg/internal/config"
	"github.com/ginjaninja78/meteragg/internal/engine"
	"github.com/ginjaninja78/meteragg/internal/export"
	"github.com/ginjaninja78/meteragg/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// archiveInputs moves folded input files to the archive directory.
var archiveInputs bool

// =============================================================================
// EXPORT COMMAND DEFINITION
// =============================================================================

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Aggregate meter exports and write the result to disk",
	Long: `The export command runs the same aggregation as 'aggregate' and writes
every view in each requested format:

  csv      one file per view (daily, cumulative, monthly, deltas, yearly)
  json     the whole run result, including per-file reports and warnings
  xlsx     one workbook with a sheet per view
  parquet  series and monthly record files
  pdf      a printable yearly and monthly report

With --archive, files that were folded into the result are moved to the
archive directory once every export has been written.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd)
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(exportCmd)

	flags := exportCmd.Flags()
	flags.StringSlice("format", nil, "Export formats: csv, json, xlsx, parquet, pdf")
	flags.String("out", "", "Output directory (overrides output_dir)")
	flags.BoolVar(&archiveInputs, "archive", false, "Archive input files after a successful export")
	flags.Bool("archive-dated", false, "Archive into YYYY/MM/DD subdirectories of archive_dir")

	bindFlag("formats", flags.Lookup("format"))
	bindFlag("output_dir", flags.Lookup("out"))
	bindFlag("archive_timestamp_subdirs", flags.Lookup("archive-dated"))
}

// =============================================================================
// MAIN EXPORT FUNCTION
// =============================================================================

func runExport(cmd *cobra.Command) error {
	s, err := setup("export")
	if err != nil {
		return err
	}

	result, err := s.aggregate(cmd.Context())
	if err != nil {
		return err
	}

	fm := newFileManager(s.cfg)
	if err := fm.EnsureDirectories(); err != nil {
		return err
	}

	// =========================================================================
	// STEP 1: Write exports
	// =========================================================================
	w := export.NewWriter(s.cfg.OutputDir, s.cfg.OutputNameFormat, s.cfg.Precision)
	outputs, err := w.Write(result, s.cfg.Formats)
	if err != nil {
		return err
	}
	for _, p := range outputs {
		s.logger.Info("export written", "path", p)
	}

	// =========================================================================
	// STEP 2: Archive inputs
	// =========================================================================
	var archived []string
	if archiveInputs {
		archived, err = fm.ArchiveInputFiles(foldedFiles(result))
		if err != nil {
			return err
		}
		s.logger.Info("inputs archived", "count", len(archived), "dir", s.cfg.ArchiveDir)
	}

	// =========================================================================
	// STEP 3: Write summary
	// =========================================================================
	summaryPath, err := utils.WriteSummaryLog(summarize(result, outputs, archived), s.cfg.OutputDir)
	if err != nil {
		return err
	}

	color.Green("Exported %d file(s) for run %s", len(outputs), result.ShortID())
	fmt.Fprintf(os.Stdout, "Summary: %s\n", summaryPath)
	if len(result.Warnings) > 0 {
		color.Yellow("%d warning(s); see the summary for details", len(result.Warnings))
	}
	return nil
}

func newFileManager(cfg *config.Config) *utils.FileManager {
	fm := utils.NewFileManager(cfg.OutputDir, cfg.ArchiveDir)
	fm.UseTimestampSubdirs = cfg.ArchiveTimestampSubdirs
	return fm
}

// foldedFiles returns the inputs that contributed to the result.
func foldedFiles(result *engine.Result) []string {
	var paths []string
	for _, f := range result.Files {
		if f.Status == engine.StatusOK {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

func summarize(result *engine.Result, outputs, archived []string) utils.ProcessingSummary {
	summary := utils.ProcessingSummary{
		RunID:     result.RunID,
		Directory: result.Directory,
		StartTime: result.StartedAt,
		EndTime:   time.Now(),
		Months:    len(result.Views.Monthly),
		Days:      len(result.Views.Daily),
		Outputs:   outputs,
		Archived:  archived,
	}
	for _, f := range result.Files {
		summary.Files = append(summary.Files, utils.SummaryFile{
			Path:       f.Path,
			Dialect:    f.Dialect.String(),
			Status:     string(f.Status),
			Accepted:   f.Accepted,
			Merged:     f.Merged,
			Duplicates: f.Duplicates,
			Error:      f.Error,
		})
	}
	for _, w := range result.Warnings {
		summary.Warnings = append(summary.Warnings, w.String())
	}
	return summary
}
