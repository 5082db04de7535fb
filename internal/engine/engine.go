// =============================================================================
// Meter Aggregator - Engine
// =============================================================================
//
// This module contains the core aggregation logic. It orchestrates one run
// over a directory of meter exports, from file discovery to output series.
//
// AGGREGATION PIPELINE:
//   1. Discover the regular files of the input directory, in name order
//   2. Parse each file into an element tree and detect its dialect
//   3. Extract periodic readings or the interval report
//   4. Resolve register codes or document identity into quantities
//   5. Deduplicate and merge into the run's accumulator
//   6. Derive the monthly, yearly, daily and cumulative views
//
// CONCURRENCY:
//   Files are processed one at a time, each fully folded before the next one
//   is opened. A run either returns a complete Result or an error naming the
//   file that stopped it; it never returns partial data.
//
// =============================================================================

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/meteragg/internal/aggregate"
	"github.com/ginjaninja78/meteragg/internal/config"
	"github.com/ginjaninja78/meteragg/internal/extract"
	"github.com/ginjaninja78/meteragg/internal/log"
	"github.com/ginjaninja78/meteragg/internal/metrics"
	"github.com/ginjaninja78/meteragg/internal/resolve"
	"github.com/ginjaninja78/meteragg/internal/source"
	"github.com/ginjaninja78/meteragg/internal/types"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// FileStatus is the outcome of one input file.
type FileStatus string

const (
	StatusOK           FileStatus = "ok"
	StatusSkipped      FileStatus = "skipped"
	StatusUnrecognized FileStatus = "unrecognized"
)

// FileReport describes what a run did with one input file.
type FileReport struct {
	// Path is the input file.
	Path string `json:"path"`

	// Dialect is the detected schema family. Unrecognized for files that
	// could not be parsed.
	Dialect types.Dialect `json:"dialect"`

	// Status tells whether the file was folded into the result.
	Status FileStatus `json:"status"`

	// Error is set for skipped files.
	Error string `json:"error,omitempty"`

	// DocumentID and Label are set for interval files.
	DocumentID string         `json:"document_id,omitempty"`
	Label      types.Quantity `json:"label,omitempty"`

	// Periods is the number of candidate periods (months or days) the file
	// offered. Accepted + Merged + Duplicates == Periods.
	Periods    int `json:"periods"`
	Accepted   int `json:"accepted"`
	Merged     int `json:"merged"`
	Duplicates int `json:"duplicates"`

	// InvalidVolumes counts interval observations without a usable volume.
	InvalidVolumes int `json:"invalid_volumes,omitempty"`

	// PartialDay is set when the last emitted day has fewer than 96
	// observations.
	PartialDay bool `json:"partial_day,omitempty"`

	// IncompletePeriods lists months where a quantity had only one of its
	// two sub-registers.
	IncompletePeriods []string `json:"incomplete_periods,omitempty"`
}

// Result is the complete, immutable outcome of one run.
type Result struct {
	RunID     string        `json:"run_id"`
	Directory string        `json:"directory"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	Files    []FileReport    `json:"files"`
	Warnings []types.Warning `json:"warnings"`

	Views aggregate.Views `json:"views"`
}

// ShortID returns the first block of the run identifier, used in output
// file names.
func (r *Result) ShortID() string {
	if len(r.RunID) >= 8 {
		return r.RunID[:8]
	}
	return r.RunID
}

// =============================================================================
// ENGINE STRUCTURE
// =============================================================================

// Options controls the policies of a run.
type Options struct {
	// OnError is config.OnErrorFail or config.OnErrorSkip.
	OnError string

	// MergePolicy resolves periodic disagreements.
	MergePolicy aggregate.MergePolicy

	// SortPeriods normalizes output rows to calendar order.
	SortPeriods bool
}

// OptionsFromConfig maps the processing settings of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		OnError:     cfg.OnError,
		MergePolicy: aggregate.MergePolicy(cfg.MergePolicy),
		SortPeriods: cfg.SortPeriods,
	}
}

// Logger is the logging interface used by the engine. *slog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Engine runs aggregations. An Engine holds no per-run state and may be
// reused; each Run builds its own accumulator.
type Engine struct {
	opts    Options
	logger  Logger
	metrics *metrics.Recorder
}

// New creates an Engine. Missing options fall back to fail-fast and
// last-wins.
func New(opts Options) *Engine {
	if opts.OnError == "" {
		opts.OnError = config.OnErrorFail
	}
	if opts.MergePolicy == "" {
		opts.MergePolicy = aggregate.LastWins
	}
	return &Engine{
		opts:    opts,
		logger:  log.Discard(),
		metrics: metrics.New(),
	}
}

// SetLogger replaces the engine's logger.
func (e *Engine) SetLogger(l Logger) {
	if l != nil {
		e.logger = l
	}
}

// SetMetrics replaces the engine's metrics recorder.
func (e *Engine) SetMetrics(m *metrics.Recorder) {
	if m != nil {
		e.metrics = m
	}
}

// Metrics returns the recorder the engine reports to.
func (e *Engine) Metrics() *metrics.Recorder {
	return e.metrics
}

// Aggregate runs the default engine over dir.
func Aggregate(dir string) (*Result, error) {
	return New(Options{}).Run(context.Background(), dir)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// run is the mutable state of one Run call.
type run struct {
	acc      *aggregate.Accumulator
	files    []FileReport
	warnings []types.Warning
}

func (r *run) warn(code types.WarningCode, file, period, msg string) {
	r.warnings = append(r.warnings, types.Warning{Code: code, File: file, Period: period, Message: msg})
}

// Run aggregates every file in dir.
//
// RETURNS:
//   - The Result, once every file has been folded.
//   - ErrDirectoryNotFound if dir is missing.
//   - A *types.FileError for the first file that stopped the run. Under the
//     skip policy malformed and unrecognised files are listed instead.
//   - ctx.Err() if the context is cancelled between files.
func (e *Engine) Run(ctx context.Context, dir string) (*Result, error) {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: DISCOVER FILES
	// =========================================================================

	paths, err := source.Discover(dir)
	if err != nil {
		return nil, err
	}
	e.logger.Info("starting aggregation", "dir", dir, "files", len(paths), "on_error", e.opts.OnError, "merge_policy", string(e.opts.MergePolicy))

	r := &run{acc: aggregate.NewAccumulator(e.opts.MergePolicy)}

	// =========================================================================
	// STEP 2: FOLD EACH FILE
	// =========================================================================

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		report, err := e.processFile(r, path)
		if err != nil {
			if e.opts.OnError != config.OnErrorSkip || !skippable(err) {
				e.metrics.File(report.Dialect.String(), "failed")
				e.logger.Error("aggregation aborted", "path", path, "error", err)
				return nil, err
			}

			report.Status = StatusSkipped
			report.Error = err.Error()
			r.warn(types.WarnSkippedFile, path, "", err.Error())
			e.logger.Warn("file skipped", "path", path, "error", err)
		}

		e.metrics.File(report.Dialect.String(), string(report.Status))
		r.files = append(r.files, report)
	}

	// =========================================================================
	// STEP 3: DERIVE VIEWS
	// =========================================================================

	views := r.acc.Views(e.opts.SortPeriods)

	result := &Result{
		RunID:     uuid.NewString(),
		Directory: dir,
		StartedAt: startTime,
		Duration:  time.Since(startTime),
		Files:     r.files,
		Warnings:  r.warnings,
		Views:     views,
	}
	if result.Files == nil {
		result.Files = []FileReport{}
	}
	if result.Warnings == nil {
		result.Warnings = []types.Warning{}
	}

	e.metrics.Run(result.Duration)
	e.logger.Info("aggregation complete",
		"run_id", result.RunID,
		"files", len(result.Files),
		"months", len(views.Monthly),
		"days", len(views.Daily),
		"warnings", len(result.Warnings),
		"duration", result.Duration)

	return result, nil
}

// skippable reports whether the skip policy may absorb err. Conflicts under
// the strict merge policy always abort.
func skippable(err error) bool {
	return errors.Is(err, types.ErrUnreadableFile) ||
		errors.Is(err, types.ErrMalformedDocument) ||
		errors.Is(err, types.ErrMissingField) ||
		errors.Is(err, types.ErrUnrecognizedDialect)
}

// processFile parses one file and folds it into the run. The returned report
// is always usable, even alongside an error.
func (e *Engine) processFile(r *run, path string) (FileReport, error) {
	report := FileReport{Path: path, Status: StatusOK}

	doc, err := source.Parse(path)
	if err != nil {
		return report, err
	}
	report.Dialect = doc.Dialect

	switch doc.Dialect {
	case types.Periodic:
		err = e.foldPeriodic(r, doc, &report)
	case types.Interval:
		err = e.foldInterval(r, doc, &report)
	default:
		if e.opts.OnError != config.OnErrorSkip {
			return report, types.NewFileError(path, types.ErrUnrecognizedDialect)
		}
		report.Status = StatusUnrecognized
		r.warn(types.WarnUnrecognizedDialect, path, "", "document matches neither the periodic nor the interval dialect")
		e.logger.Warn("unrecognized document", "path", path)
		return report, nil
	}
	if err != nil {
		return report, err
	}

	e.logger.Debug("file folded",
		"path", path,
		"dialect", doc.Dialect.String(),
		"periods", report.Periods,
		"accepted", report.Accepted,
		"merged", report.Merged,
		"duplicates", report.Duplicates,
		"months_total", r.acc.Months(),
		"days_total", r.acc.Days())
	return report, nil
}

// =============================================================================
// DIALECT FOLDING
// =============================================================================

func (e *Engine) foldPeriodic(r *run, doc *source.Document, report *FileReport) error {
	readings, err := extract.Periodic(doc)
	if err != nil {
		return err
	}

	dialect := types.Periodic.String()
	for _, reading := range readings {
		report.Periods++

		incomplete := resolve.Incomplete(reading.Registers)
		if len(incomplete) > 0 {
			report.IncompletePeriods = append(report.IncompletePeriods, reading.Period)
		}
		for _, q := range incomplete {
			r.warn(types.WarnIncompletePeriod, doc.Path, reading.Period, missingRegister(q, reading.Registers))
		}

		outcome, conflicts, err := r.acc.MergePeriod(reading.Period, resolve.Periodic(reading.Registers))
		if err != nil {
			return types.NewFileError(doc.Path, err)
		}
		for _, c := range conflicts {
			r.warn(types.WarnConflictingReading, doc.Path, c.Period,
				fmt.Sprintf("%s disagrees with an earlier file (%g vs %g), policy %s", c.Quantity, c.Existing, c.Incoming, e.opts.MergePolicy))
		}

		switch outcome {
		case aggregate.Accepted:
			report.Accepted++
		case aggregate.Merged:
			report.Merged++
		default:
			report.Duplicates++
		}
		e.metrics.Period(dialect, string(outcome))
	}

	return nil
}

// missingRegister describes which sub-register of q is absent.
func missingRegister(q types.Quantity, registers map[string]float64) string {
	codes, _ := resolve.Registers(q)
	missing := codes[1]
	if _, ok := registers[codes[0]]; !ok {
		missing = codes[0]
	}
	return fmt.Sprintf("%s is null: register %s is missing", q, missing)
}

func (e *Engine) foldInterval(r *run, doc *source.Document, report *FileReport) error {
	ir, err := extract.Interval(doc)
	if err != nil {
		return err
	}

	report.DocumentID = ir.DocumentID
	report.Label = ir.Label
	report.InvalidVolumes = ir.InvalidVolumes

	if !ir.Label.Known() {
		r.warn(types.WarnUnrecognizedQuantity, doc.Path, "",
			fmt.Sprintf("%v: document %q", types.ErrUnrecognizedQuantity, ir.DocumentID))
		e.logger.Warn("unrecognized quantity", "path", doc.Path, "document_id", ir.DocumentID)
	}
	if ir.InvalidVolumes > 0 {
		r.warn(types.WarnInvalidVolume, doc.Path, "",
			fmt.Sprintf("%d observations without a usable volume counted as 0", ir.InvalidVolumes))
	}

	days := extract.Days(ir)
	dialect := types.Interval.String()

	for i, bucket := range days {
		report.Periods++

		if i == len(days)-1 && extract.Partial(bucket) {
			report.PartialDay = true
			r.warn(types.WarnPartialDay, doc.Path, types.DayKey(bucket.Day),
				fmt.Sprintf("last day has %d of %d observations", bucket.Count, extract.IntervalsPerDay))
		}

		outcome := aggregate.Duplicate
		if r.acc.AddDay(ir.Label, bucket) {
			outcome = aggregate.Accepted
			report.Accepted++
		} else {
			report.Duplicates++
		}
		e.metrics.Period(dialect, string(outcome))
	}

	return nil
}
