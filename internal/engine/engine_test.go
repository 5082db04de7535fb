package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/meteragg/internal/aggregate"
	"github.com/ginjaninja78/meteragg/internal/config"
	"github.com/ginjaninja78/meteragg/internal/resolve"
	"github.com/ginjaninja78/meteragg/internal/testutil"
	"github.com/ginjaninja78/meteragg/internal/types"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func consumptionRows(high, low string) []testutil.Row {
	return []testutil.Row{
		{Obis: resolve.ConsumptionHigh, Value: high},
		{Obis: resolve.ConsumptionLow, Value: low},
	}
}

func feedInRows(high, low string) []testutil.Row {
	return []testutil.Row{
		{Obis: resolve.FeedInHigh, Value: high},
		{Obis: resolve.FeedInLow, Value: low},
	}
}

func runDir(t *testing.T, opts Options, dir string) *Result {
	t.Helper()
	result, err := New(opts).Run(context.Background(), dir)
	require.NoError(t, err)
	return result
}

func TestRun_PeriodicSums(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "esl.xml", testutil.ESL(
		testutil.Period{End: "2024-01-31T00:00:00", Rows: consumptionRows("100.0", "50.0")},
		testutil.Period{End: "2024-02-29T00:00:00", Rows: []testutil.Row{{Obis: resolve.ConsumptionHigh, Value: "120.0"}}},
	))

	result := runDir(t, Options{}, dir)

	monthly := result.Views.Monthly
	require.Len(t, monthly, 2)
	assert.Equal(t, 150.0, *monthly[0].Consumption)
	assert.Nil(t, monthly[0].FeedIn)
	assert.Nil(t, monthly[1].Consumption, "absent sub-register yields null")

	require.Len(t, result.Files, 1)
	assert.Equal(t, types.Periodic, result.Files[0].Dialect)
	assert.Equal(t, StatusOK, result.Files[0].Status)
	assert.Equal(t, []string{"2024-02"}, result.Files[0].IncompletePeriods)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, types.WarnIncompletePeriod, result.Warnings[0].Code)
	assert.Equal(t, "2024-02", result.Warnings[0].Period)
	assert.Equal(t, "Bezug is null: register 1-1:1.8.2 is missing", result.Warnings[0].Message)
}

func TestRun_NullMerge(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.xml", testutil.ESL(
		testutil.Period{End: "2024-03-31T00:00:00", Rows: feedInRows("5", "7")},
	))
	testutil.WriteFile(t, dir, "b.xml", testutil.ESL(
		testutil.Period{End: "2024-03-31T00:00:00", Rows: consumptionRows("300", "200")},
	))

	result := runDir(t, Options{}, dir)

	require.Len(t, result.Views.Monthly, 1)
	row := result.Views.Monthly[0]
	assert.Equal(t, "2024-03", row.Period)
	require.NotNil(t, row.Consumption)
	require.NotNil(t, row.FeedIn)
	assert.Equal(t, 500.0, *row.Consumption)
	assert.Equal(t, 12.0, *row.FeedIn)
	assert.Equal(t, 1, result.Files[1].Merged)
}

func TestRun_MergePolicies(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.xml", testutil.ESL(
		testutil.Period{End: "2024-01-31T00:00:00", Rows: consumptionRows("100", "50")},
	))
	testutil.WriteFile(t, dir, "b.xml", testutil.ESL(
		testutil.Period{End: "2024-01-31T00:00:00", Rows: consumptionRows("100", "60")},
	))

	last := runDir(t, Options{MergePolicy: aggregate.LastWins}, dir)
	assert.Equal(t, 160.0, *last.Views.Monthly[0].Consumption)
	require.Len(t, last.Warnings, 1)
	assert.Equal(t, types.WarnConflictingReading, last.Warnings[0].Code)

	first := runDir(t, Options{MergePolicy: aggregate.FirstWins}, dir)
	assert.Equal(t, 150.0, *first.Views.Monthly[0].Consumption)
	assert.Equal(t, 1, first.Files[1].Duplicates)

	_, err := New(Options{MergePolicy: aggregate.Strict, OnError: config.OnErrorSkip}).Run(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConflictingReading)

	var fe *types.FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, filepath.Join(dir, "b.xml"), fe.Path)
}

func TestRun_LexicalOrder(t *testing.T) {
	dir := t.TempDir()
	// Written out of order; b.xml must still be processed last.
	testutil.WriteFile(t, dir, "b.xml", testutil.ESL(
		testutil.Period{End: "2024-01-31T00:00:00", Rows: consumptionRows("1", "1")},
	))
	testutil.WriteFile(t, dir, "a.xml", testutil.ESL(
		testutil.Period{End: "2024-02-29T00:00:00", Rows: consumptionRows("2", "2")},
		testutil.Period{End: "2024-01-31T00:00:00", Rows: consumptionRows("5", "5")},
	))

	result := runDir(t, Options{}, dir)

	assert.Equal(t, filepath.Join(dir, "a.xml"), result.Files[0].Path)
	assert.Equal(t, "2024-02", result.Views.Monthly[0].Period, "first-accepted order")
	assert.Equal(t, 2.0, *result.Views.Monthly[1].Consumption, "b.xml wins under last-wins")

	sorted := runDir(t, Options{SortPeriods: true}, dir)
	assert.Equal(t, "2024-01", sorted.Views.Monthly[0].Period)
}

func TestRun_IntervalOverlapFirstFileWins(t *testing.T) {
	dir := t.TempDir()
	// a.xml covers March 1st and 2nd, b.xml March 2nd and 3rd.
	testutil.WriteFile(t, dir, "a.xml", testutil.SDAT("X_ID742", "2024-03-01T00:00:00Z", "2024-03-03T00:00:00Z", testutil.Volumes(192, "1")))
	testutil.WriteFile(t, dir, "b.xml", testutil.SDAT("X_ID742", "2024-03-02T00:00:00Z", "2024-03-04T00:00:00Z", testutil.Volumes(192, "2")))

	result := runDir(t, Options{}, dir)

	daily := result.Views.Daily
	require.Len(t, daily, 3)
	assert.Equal(t, []time.Time{day(2024, 3, 1), day(2024, 3, 2), day(2024, 3, 3)},
		[]time.Time{daily[0].Day, daily[1].Day, daily[2].Day})
	assert.InDelta(t, 96.0, daily[1].Value, 1e-9, "overlapping day comes from the first file")
	assert.InDelta(t, 192.0, daily[2].Value, 1e-9)

	cumulative := result.Views.Cumulative
	require.Len(t, cumulative, 3)
	assert.InDelta(t, 384.0, cumulative[2].Value, 1e-9)
	for i := 1; i < len(cumulative); i++ {
		assert.GreaterOrEqual(t, cumulative[i].Value, cumulative[i-1].Value)
	}

	assert.Equal(t, 1, result.Files[1].Duplicates)
	assert.Equal(t, 1, result.Files[1].Accepted)
}

func TestRun_IntervalLabelsAreIndependent(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.xml", testutil.SDAT("X_ID742", "2024-03-01T00:00:00Z", "2024-03-02T00:00:00Z", testutil.Volumes(96, "1")))
	testutil.WriteFile(t, dir, "b.xml", testutil.SDAT("X_ID735", "2024-03-01T00:00:00Z", "2024-03-02T00:00:00Z", testutil.Volumes(96, "0.5")))

	result := runDir(t, Options{}, dir)

	require.Len(t, result.Views.Daily, 2)
	assert.Equal(t, types.Consumption, result.Views.Daily[0].Label)
	assert.Equal(t, types.FeedIn, result.Views.Daily[1].Label)
	assert.InDelta(t, 48.0, result.Views.Cumulative[1].Value, 1e-9)
}

func TestRun_IntervalRollover(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "sdat.xml", testutil.SDAT("X_ID735", "2024-03-01T23:00:00Z", "2024-03-02T23:15:00Z", testutil.Volumes(97, "0.25")))

	result := runDir(t, Options{}, dir)

	daily := result.Views.Daily
	require.Len(t, daily, 2)
	assert.Equal(t, day(2024, 3, 1), daily[0].Day)
	assert.InDelta(t, 24.0, daily[0].Value, 1e-9)
	assert.Equal(t, day(2024, 3, 2), daily[1].Day)
	assert.InDelta(t, 0.25, daily[1].Value, 1e-9)

	assert.True(t, result.Files[0].PartialDay)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, types.WarnPartialDay, result.Warnings[0].Code)
	assert.Equal(t, "2024-03-02", result.Warnings[0].Period)
}

func TestRun_UnknownQuantityFlowsThrough(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "sdat.xml", testutil.SDAT("X_ID999", "2024-03-01T00:00:00Z", "2024-03-02T00:00:00Z", testutil.Volumes(96, "1")))

	result := runDir(t, Options{}, dir)

	require.Len(t, result.Views.Daily, 1)
	assert.Equal(t, types.Unknown, result.Views.Daily[0].Label)
	assert.Equal(t, types.Unknown, result.Files[0].Label)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, types.WarnUnrecognizedQuantity, result.Warnings[0].Code)
}

func TestRun_YearlySelection(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "esl.xml", testutil.ESL(
		testutil.Period{End: "2023-11-30T00:00:00", Rows: consumptionRows("400", "50")},
		testutil.Period{End: "2023-12-31T00:00:00", Rows: consumptionRows("480", "20")},
	))

	result := runDir(t, Options{}, dir)

	require.Len(t, result.Views.Yearly, 1)
	y := result.Views.Yearly[0]
	assert.Equal(t, 2023, y.Year)
	assert.Equal(t, 500.0, *y.Value.Consumption)
	assert.Equal(t, 500.0, *y.Cumulative.Consumption)
	assert.Equal(t, 500.0, *y.Difference.Consumption, "first year's difference equals its value")
}

func TestRun_Idempotent(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.xml", testutil.ESL(
		testutil.Period{End: "2024-01-31T00:00:00", Rows: append(consumptionRows("1", "2"), feedInRows("3", "4")...)},
	))
	testutil.WriteFile(t, dir, "b.xml", testutil.SDAT("X_ID742", "2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z", testutil.Volumes(100, "1")))

	e := New(Options{})
	first, err := e.Run(context.Background(), dir)
	require.NoError(t, err)
	second, err := e.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, first.Views, second.Views)
	assert.Equal(t, first.Files, second.Files)
	assert.Equal(t, first.Warnings, second.Warnings)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_MalformedFailFast(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.xml", testutil.ESL(
		testutil.Period{End: "2024-01-31T00:00:00", Rows: consumptionRows("1", "2")},
	))
	bad := testutil.WriteFile(t, dir, "b.xml", "<ESLBillingData><TimePeriod end=></ESLBillingData>")

	result, err := New(Options{}).Run(context.Background(), dir)
	assert.Nil(t, result, "no partial result")
	assert.ErrorIs(t, err, types.ErrMalformedDocument)

	var fe *types.FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, bad, fe.Path)
}

func TestRun_SkipPolicy(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.xml", "not xml at all")
	testutil.WriteFile(t, dir, "b.xml", testutil.ESL(
		testutil.Period{End: "2024-01-31T00:00:00", Rows: consumptionRows("1", "2")},
	))
	testutil.WriteFile(t, dir, "c.xml", `<Invoice><Line amount="1"/></Invoice>`)
	testutil.WriteFile(t, dir, "d.xml", `<ESLBillingData><TimePeriod><ValueRow obis="1-1:1.8.1" value="1"/></TimePeriod></ESLBillingData>`)

	result := runDir(t, Options{OnError: config.OnErrorSkip}, dir)

	require.Len(t, result.Files, 4)
	assert.Equal(t, StatusSkipped, result.Files[0].Status)
	assert.NotEmpty(t, result.Files[0].Error)
	assert.Equal(t, StatusOK, result.Files[1].Status)
	assert.Equal(t, StatusUnrecognized, result.Files[2].Status)
	assert.Equal(t, StatusSkipped, result.Files[3].Status, "missing end timestamp")

	require.Len(t, result.Views.Monthly, 1)
	assert.Equal(t, 3.0, *result.Views.Monthly[0].Consumption)

	codes := make([]types.WarningCode, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []types.WarningCode{types.WarnSkippedFile, types.WarnUnrecognizedDialect, types.WarnSkippedFile}, codes)
}

func TestRun_BrokenSymlink(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.xml", testutil.ESL(
		testutil.Period{End: "2024-01-31T00:00:00", Rows: consumptionRows("1", "2")},
	))
	broken := filepath.Join(dir, "b.xml")
	if err := os.Symlink(filepath.Join(dir, "gone.xml"), broken); err != nil {
		t.Skip("symlinks not supported")
	}

	_, err := New(Options{}).Run(context.Background(), dir)
	assert.ErrorIs(t, err, types.ErrUnreadableFile)

	result := runDir(t, Options{OnError: config.OnErrorSkip}, dir)
	require.Len(t, result.Files, 2)
	assert.Equal(t, StatusSkipped, result.Files[1].Status)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, types.WarnSkippedFile, result.Warnings[0].Code)
	assert.Equal(t, broken, result.Warnings[0].File)
}

func TestRun_UnrecognizedFailFast(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "c.xml", `<Invoice/>`)

	_, err := New(Options{}).Run(context.Background(), dir)
	assert.ErrorIs(t, err, types.ErrUnrecognizedDialect)
}

func TestRun_DirectoryNotFound(t *testing.T) {
	_, err := Aggregate(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, types.ErrDirectoryNotFound)
}

func TestRun_EmptyDirectory(t *testing.T) {
	result := runDir(t, Options{}, t.TempDir())
	assert.Empty(t, result.Files)
	assert.Empty(t, result.Views.Monthly)
	assert.Empty(t, result.Views.Daily)
	assert.Len(t, result.ShortID(), 8)
}

func TestRun_Cancelled(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.xml", `<Invoice/>`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}).Run(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_Metrics(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.xml", testutil.SDAT("X_ID742", "2024-03-01T00:00:00Z", "2024-03-03T00:00:00Z", testutil.Volumes(192, "1")))
	testutil.WriteFile(t, dir, "b.xml", testutil.SDAT("X_ID742", "2024-03-02T00:00:00Z", "2024-03-03T00:00:00Z", testutil.Volumes(96, "1")))

	e := New(Options{})
	_, err := e.Run(context.Background(), dir)
	require.NoError(t, err)

	m := e.Metrics()
	assert.Equal(t, 2.0, promtest.ToFloat64(m.FilesTotal.WithLabelValues("interval", "ok")))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.PeriodsTotal.WithLabelValues("interval", "accepted")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.PeriodsTotal.WithLabelValues("interval", "duplicate")))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.MergePolicy = config.MergeStrict
	cfg.SortPeriods = true

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, aggregate.Strict, opts.MergePolicy)
	assert.Equal(t, config.OnErrorFail, opts.OnError)
	assert.True(t, opts.SortPeriods)
}
