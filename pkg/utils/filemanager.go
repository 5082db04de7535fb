// =============================================================================
// Meter Aggregator - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the export command:
//   - Directory management
//   - Output file naming
//   - Source file archival (moving exported input files)
//   - Run summary logs
//
// ARCHIVAL STRATEGY:
//   - Source files are moved to archive_dir only after every export format
//     has been written successfully
//   - Files that were skipped during the run stay where they are
//   - A rename that fails across devices falls back to copy and delete
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations around an aggregation run.
type FileManager struct {
	// OutputDir is the directory where exports and summaries are written.
	OutputDir string

	// ArchiveDir is the directory for archived source files.
	ArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: input_archive/2024/01/15/file.xml
	UseTimestampSubdirs bool

	now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(outputDir, archiveDir string) *FileManager {
	return &FileManager{
		OutputDir:  outputDir,
		ArchiveDir: archiveDir,
		now:        time.Now,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates the output and archive directories if they don't
// exist. The input directory is never created.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.OutputDir, fm.ArchiveDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves a source file to the archive directory.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails. The source file is then left in place.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	archivePath := fm.getArchivePath(filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Cross-device moves need copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// ArchiveInputFiles archives every path, stopping at the first failure.
func (fm *FileManager) ArchiveInputFiles(paths []string) ([]string, error) {
	archived := make([]string, 0, len(paths))
	for _, p := range paths {
		dst, err := fm.ArchiveInputFile(p)
		if err != nil {
			return archived, fmt.Errorf("failed to archive %s: %w", p, err)
		}
		archived = append(archived, dst)
	}
	return archived, nil
}

func (fm *FileManager) getArchivePath(filePath string) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		now := fm.now()
		return filepath.Join(
			fm.ArchiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName,
		)
	}

	return filepath.Join(fm.ArchiveDir, fileName)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName expands an output name format.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYYMMDD)
//     any key of params, e.g. {view}, {run}, {ext}
//   - params: A map of placeholder values.
//
// RETURNS:
//   - The generated file name. If the format has no {ext} placeholder and
//     params has an "ext", the extension is appended.
//
// EXAMPLE:
//
//	format: "{view}_{run}.{ext}"
//	params: {"view": "daily", "run": "1a2b3c4d", "ext": "csv"}
//	output: "daily_1a2b3c4d.csv"
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.NewString(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext := params["ext"]; ext != "" && !strings.Contains(format, "{ext}") &&
		!strings.HasSuffix(strings.ToLower(result), "."+strings.ToLower(ext)) {
		result += "." + ext
	}

	return result
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about one export run.
type ProcessingSummary struct {
	RunID     string
	Directory string
	StartTime time.Time
	EndTime   time.Time

	Files    []SummaryFile
	Months   int
	Days     int
	Warnings []string

	Outputs  []string
	Archived []string
}

// SummaryFile is one input file line of a summary.
type SummaryFile struct {
	Path       string
	Dialect    string
	Status     string
	Accepted   int
	Merged     int
	Duplicates int
	Error      string
}

// WriteSummaryLog writes a run summary to the output directory.
//
// RETURNS:
//   - The path to the summary file (run_summary_<run>.txt).
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("run_summary_%s.txt", shortID(summary.RunID)))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	rule := strings.Repeat("=", 80) + "\n"
	thin := strings.Repeat("-", 80) + "\n"

	fmt.Fprintf(writer, "Meter Aggregator - Run Summary\n%s\n", rule)
	fmt.Fprintf(writer, "Run Information:\n"+
		"  Run ID:     %s\n"+
		"  Directory:  %s\n"+
		"  Start Time: %s\n"+
		"  End Time:   %s\n"+
		"  Duration:   %s\n\n",
		summary.RunID,
		summary.Directory,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String())

	fmt.Fprintf(writer, "Statistics:\n"+
		"  Files:    %d\n"+
		"  Months:   %d\n"+
		"  Days:     %d\n"+
		"  Warnings: %d\n\n",
		len(summary.Files), summary.Months, summary.Days, len(summary.Warnings))

	if len(summary.Files) > 0 {
		writer.WriteString("Files:\n" + thin)
		for _, f := range summary.Files {
			fmt.Fprintf(writer, "  %-12s %-12s %s\n", f.Status, f.Dialect, f.Path)
			if f.Error != "" {
				fmt.Fprintf(writer, "      error: %s\n", f.Error)
			} else {
				fmt.Fprintf(writer, "      accepted %d, merged %d, duplicates %d\n", f.Accepted, f.Merged, f.Duplicates)
			}
		}
		writer.WriteString("\n")
	}

	if len(summary.Warnings) > 0 {
		writer.WriteString("Warnings:\n" + thin)
		for _, w := range summary.Warnings {
			fmt.Fprintf(writer, "  %s\n", w)
		}
		writer.WriteString("\n")
	}

	if len(summary.Outputs) > 0 {
		writer.WriteString("Outputs:\n" + thin)
		for _, o := range summary.Outputs {
			fmt.Fprintf(writer, "  %s\n", o)
		}
		writer.WriteString("\n")
	}

	if len(summary.Archived) > 0 {
		writer.WriteString("Archived:\n" + thin)
		for _, a := range summary.Archived {
			fmt.Fprintf(writer, "  %s\n", a)
		}
		writer.WriteString("\n")
	}

	writer.WriteString(rule + "End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}
