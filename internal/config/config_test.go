package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, OnErrorFail, cfg.OnError)
	assert.Equal(t, MergeLastWins, cfg.MergePolicy)
	assert.Equal(t, []string{"csv"}, cfg.Formats)
	assert.Equal(t, "{view}_{run}.{ext}", cfg.OutputNameFormat)
	assert.Equal(t, 2, cfg.Precision)
	assert.False(t, cfg.SortPeriods)
	require.NoError(t, cfg.Validate())
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
input_dir: /data/meters
on_error: skip
merge_policy: strict
sort_periods: true
formats: [csv, xlsx]
precision: 3
`))
	require.NoError(t, err)

	assert.Equal(t, "/data/meters", cfg.InputDir)
	assert.Equal(t, OnErrorSkip, cfg.OnError)
	assert.Equal(t, MergeStrict, cfg.MergePolicy)
	assert.True(t, cfg.SortPeriods)
	assert.Equal(t, []string{"csv", "xlsx"}, cfg.Formats)
	assert.Equal(t, 3, cfg.Precision)
	assert.Equal(t, "info", cfg.LogLevel, "unset keys keep defaults")
}

func TestParse_ZeroPrecision(t *testing.T) {
	cfg, err := Parse([]byte("precision: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Precision)

	cfg, err = Parse([]byte("log_level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Precision, "absent key keeps the default")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad on_error", "on_error: retry"},
		{"bad merge policy", "merge_policy: average"},
		{"bad format", "formats: [docx]"},
		{"bad log format", "log_format: xml"},
		{"bad yaml", "input_dir: [unclosed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err, "an explicitly named file must exist")
}

func TestLoad_DefaultPathMissing(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output_dir: ./exports\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./exports", cfg.OutputDir)
}

func TestOverlay(t *testing.T) {
	cfg := Default()
	v := viper.New()
	v.Set("input_dir", "/override")
	v.Set("sort_periods", true)
	v.Set("archive_timestamp_subdirs", true)
	v.Set("formats", []string{"json,parquet"})
	v.Set("precision", 4)

	require.NoError(t, Overlay(cfg, v))

	assert.Equal(t, "/override", cfg.InputDir)
	assert.True(t, cfg.SortPeriods)
	assert.True(t, cfg.ArchiveTimestampSubdirs)
	assert.Equal(t, []string{"json", "parquet"}, cfg.Formats)
	assert.Equal(t, 4, cfg.Precision)
	assert.Equal(t, "./output", cfg.OutputDir, "unset keys are left alone")
}

func TestOverlay_RejectsInvalid(t *testing.T) {
	cfg := Default()
	v := viper.New()
	v.Set("merge_policy", "whatever")

	assert.Error(t, Overlay(cfg, v))
}
