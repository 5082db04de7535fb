// =============================================================================
// Meter Aggregator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (meteragg)
//   ├── aggregateCmd (meteragg aggregate)
//   ├── exportCmd    (meteragg export)
//   ├── validateCmd  (meteragg validate)
//   └── versionCmd   (meteragg version)
//
// CONFIGURATION:
//   Settings are resolved in this order, later layers winning:
//   1. Built-in defaults
//   2. The YAML configuration file (--config, default config.yaml)
//   3. A .env file in the working directory
//   4. METERAGG_* environment variables (e.g. METERAGG_INPUT_DIR)
//   5. Command-line flags
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ginjaninja78/meteragg/internal/config"
	"github.com/ginjaninja78/meteragg/internal/engine"
	"github.com/ginjaninja78/meteragg/internal/log"
	"github.com/ginjaninja78/meteragg/internal/metrics"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// settings overlays environment variables and flags onto the file config.
var settings = viper.New()

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "meteragg",
	Short: "Meter Aggregator - Reconcile and aggregate utility meter exports",
	Long: `Meter Aggregator reads a directory of utility meter exports, reconciles
overlapping readings and produces normalized consumption (Bezug) and feed-in
(Einspeisung) series.

Supported inputs:
  - Periodic register exports (TimePeriod / ValueRow with OBIS codes)
  - 15-minute interval load profiles (http://www.strom.ch namespace)

Example Usage:
  meteragg aggregate --dir ./input         # Print the monthly and yearly views
  meteragg export --format csv,xlsx        # Write exports to the output directory
  meteragg validate                        # Check the input for data problems`,

	SilenceUsage: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", config.DefaultPath, "Path to the configuration file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	flags.String("dir", "", "Input directory of meter exports (overrides input_dir)")
	flags.String("on-error", "", "Policy for unparsable files: fail or skip")
	flags.String("merge-policy", "", "Periodic merge policy: last-wins, first-wins or strict")
	flags.Bool("sort", false, "Sort output rows by period instead of first-accepted order")
	flags.String("log-format", "", "Log format: text or json")
	flags.String("metrics-file", "", "Write Prometheus metrics to this textfile after the run")

	bindFlag("input_dir", flags.Lookup("dir"))
	bindFlag("on_error", flags.Lookup("on-error"))
	bindFlag("merge_policy", flags.Lookup("merge-policy"))
	bindFlag("sort_periods", flags.Lookup("sort"))
	bindFlag("log_format", flags.Lookup("log-format"))
	bindFlag("metrics_file", flags.Lookup("metrics-file"))

	settings.SetEnvPrefix("METERAGG")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
}

// =============================================================================
// SHARED COMMAND HELPERS
// =============================================================================

// session is what every command needs before touching the input.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	engine *engine.Engine
}

// setup loads configuration, builds the logger and the engine.
func setup(component string) (*session, error) {
	// A missing .env file is normal.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := config.Overlay(cfg, settings); err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	logger := log.New(log.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Component: component,
	})

	e := engine.New(engine.OptionsFromConfig(cfg))
	e.SetLogger(logger)
	e.SetMetrics(metrics.New())

	return &session{cfg: cfg, logger: logger, engine: e}, nil
}

// aggregate runs the engine over the configured input directory and writes
// the metrics textfile when one is configured.
func (s *session) aggregate(ctx context.Context) (*engine.Result, error) {
	result, err := s.engine.Run(ctx, s.cfg.InputDir)

	if s.cfg.MetricsFile != "" {
		if merr := s.engine.Metrics().WriteTextfile(s.cfg.MetricsFile); merr != nil {
			s.logger.Warn("metrics not written", "path", s.cfg.MetricsFile, "error", merr)
		}
	}

	return result, err
}

func bindFlag(key string, flag *pflag.Flag) {
	if err := settings.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s: %v", key, err))
	}
}
