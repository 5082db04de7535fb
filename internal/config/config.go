// =============================================================================
// Meter Aggregator - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing the application
// configuration. Settings come from three layers, later layers winning:
//   1. Built-in defaults
//   2. The YAML configuration file (config.yaml)
//   3. Environment variables (METERAGG_*) and command-line flags
//
// The third layer is resolved by Viper in the cmd package and applied here
// through Overlay, so the precedence rules live next to the defaults.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// POLICY VALUES
// =============================================================================

const (
	// OnErrorFail aborts the whole run on the first structural error.
	OnErrorFail = "fail"
	// OnErrorSkip records the failing file in the result and continues.
	OnErrorSkip = "skip"

	// MergeLastWins lets a later file overwrite a non-null periodic value.
	MergeLastWins = "last-wins"
	// MergeFirstWins keeps the first non-null periodic value seen.
	MergeFirstWins = "first-wins"
	// MergeStrict aborts the run when two files disagree on a value.
	MergeStrict = "strict"
)

// DefaultPath is the configuration file looked up when --config is not given.
const DefaultPath = "config.yaml"

// SupportedFormats lists the export formats understood by the export package.
var SupportedFormats = []string{"csv", "json", "xlsx", "parquet", "pdf"}

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the global application configuration.
type Config struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory of meter-export files to aggregate.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir is where exports and the run summary are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// ArchiveDir receives the source files after an archived export.
	// Default: "./input_archive"
	ArchiveDir string `yaml:"archive_dir"`

	// ArchiveTimestampSubdirs files archived inputs under YYYY/MM/DD
	// subdirectories of ArchiveDir.
	// Default: false
	ArchiveTimestampSubdirs bool `yaml:"archive_timestamp_subdirs"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects the slog handler: "text" or "json".
	// Default: "text"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// OnError is the policy for unparsable or unrecognised files.
	// "fail" aborts the run; "skip" lists the file in the result and goes on.
	// Default: "fail"
	OnError string `yaml:"on_error"`

	// MergePolicy resolves two files disagreeing on a periodic value.
	// Default: "last-wins"
	MergePolicy string `yaml:"merge_policy"`

	// SortPeriods normalizes output rows to calendar order. When false, rows
	// keep the order in which their periods were first accepted.
	// Default: false
	SortPeriods bool `yaml:"sort_periods"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// Formats lists the export formats written by the export command.
	// Default: ["csv"]
	Formats []string `yaml:"formats"`

	// OutputNameFormat defines export file names.
	// Placeholders:
	//   {view}      - View name (daily, cumulative, monthly, ...)
	//   {run}       - Short run identifier
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {ext}       - Format extension
	// Default: "{view}_{run}.{ext}"
	OutputNameFormat string `yaml:"output_name_format"`

	// Precision is the number of decimals in tables and CSV output.
	// Default: 2
	Precision int `yaml:"precision"`

	// MetricsFile, when set, receives a Prometheus textfile after each run.
	MetricsFile string `yaml:"metrics_file"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Precision: 2}
	applyDefaults(cfg)
	return cfg
}

// Load loads the configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the configuration file. A missing file at
//     DefaultPath is not an error; defaults apply. Any other missing path is.
//
// RETURNS:
//   - A pointer to the Config struct.
//   - An error if the file cannot be read, parsed or validated.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && configPath == DefaultPath {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration bytes over the defaults and validates.
// Keys absent from data keep their default value; a key present with a
// zero value, such as "precision: 0", is kept.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills empty string and list options. Precision has no empty
// value and is defaulted by Default only.
func applyDefaults(cfg *Config) {
	if cfg.InputDir == "" {
		cfg.InputDir = "./input"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.ArchiveDir == "" {
		cfg.ArchiveDir = "./input_archive"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.OnError == "" {
		cfg.OnError = OnErrorFail
	}
	if cfg.MergePolicy == "" {
		cfg.MergePolicy = MergeLastWins
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = []string{"csv"}
	}
	if cfg.OutputNameFormat == "" {
		cfg.OutputNameFormat = "{view}_{run}.{ext}"
	}
}

// Validate checks enumerated settings. Directories are not created here;
// the input directory must already exist and is checked by the source reader.
func (c *Config) Validate() error {
	var problems []string

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid log_level %q", c.LogLevel))
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("invalid log_format %q: must be text or json", c.LogFormat))
	}

	switch c.OnError {
	case OnErrorFail, OnErrorSkip:
	default:
		problems = append(problems, fmt.Sprintf("invalid on_error %q: must be %s or %s", c.OnError, OnErrorFail, OnErrorSkip))
	}

	switch c.MergePolicy {
	case MergeLastWins, MergeFirstWins, MergeStrict:
	default:
		problems = append(problems, fmt.Sprintf("invalid merge_policy %q", c.MergePolicy))
	}

	for _, f := range c.Formats {
		if !isSupportedFormat(f) {
			problems = append(problems, fmt.Sprintf("unsupported format %q", f))
		}
	}

	if c.Precision < 0 {
		problems = append(problems, "precision must not be negative")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func isSupportedFormat(f string) bool {
	for _, s := range SupportedFormats {
		if strings.EqualFold(f, s) {
			return true
		}
	}
	return false
}

// =============================================================================
// ENVIRONMENT AND FLAG OVERLAY
// =============================================================================

// Source is the subset of *viper.Viper used by Overlay.
type Source interface {
	IsSet(key string) bool
	GetString(key string) string
	GetBool(key string) bool
	GetInt(key string) int
	GetStringSlice(key string) []string
}

// Overlay copies every key set in src over cfg and re-validates. Keys use the
// same names as the YAML file.
func Overlay(cfg *Config, src Source) error {
	strs := map[string]*string{
		"input_dir":          &cfg.InputDir,
		"output_dir":         &cfg.OutputDir,
		"archive_dir":        &cfg.ArchiveDir,
		"log_level":          &cfg.LogLevel,
		"log_format":         &cfg.LogFormat,
		"on_error":           &cfg.OnError,
		"merge_policy":       &cfg.MergePolicy,
		"output_name_format": &cfg.OutputNameFormat,
		"metrics_file":       &cfg.MetricsFile,
	}
	for key, dst := range strs {
		if src.IsSet(key) {
			if v := src.GetString(key); v != "" {
				*dst = v
			}
		}
	}

	if src.IsSet("sort_periods") {
		cfg.SortPeriods = src.GetBool("sort_periods")
	}
	if src.IsSet("archive_timestamp_subdirs") {
		cfg.ArchiveTimestampSubdirs = src.GetBool("archive_timestamp_subdirs")
	}
	if src.IsSet("precision") {
		cfg.Precision = src.GetInt("precision")
	}
	if src.IsSet("formats") {
		if formats := splitFormats(src.GetStringSlice("formats")); len(formats) > 0 {
			cfg.Formats = formats
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// splitFormats accepts both ["csv","json"] and ["csv,json"], the latter being
// what a comma-separated environment variable turns into.
func splitFormats(in []string) []string {
	var out []string
	for _, item := range in {
		for _, f := range strings.Split(item, ",") {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, strings.ToLower(f))
			}
		}
	}
	return out
}
