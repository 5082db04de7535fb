// =============================================================================
// Meter Aggregator - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which aggregates the input and
// checks the result for data problems without writing any exports.
//
// COMMAND USAGE:
//   meteragg validate [flags]
//
// FLAGS:
//   --issue-log : Also write the issues to this file
//
// EXIT STATUS:
//   0 when there are no error-level issues, 1 otherwise. Warnings alone do
//   not fail validation.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/meteragg/internal/validation"
)

// issueLog is an optional path receiving the validation issues.
var issueLog string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the input directory for data problems",
	Long: `The validate command runs the aggregation and then checks the result:

  - every (quantity, day) pair appears once in the daily series
  - daily totals are not negative
  - cumulative series never decrease
  - run warnings (unknown quantities, partial days, conflicts) are reported

Run this before 'export' to see what an export would contain.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(
		&issueLog,
		"issue-log",
		"",
		"Write validation issues to this file",
	)
}

func runValidate(cmd *cobra.Command) error {
	s, err := setup("validate")
	if err != nil {
		return err
	}

	result, err := s.aggregate(cmd.Context())
	if err != nil {
		return err
	}

	v := validation.Validate(result)

	if issueLog != "" {
		if err := validation.WriteIssueLog(v.Issues, issueLog); err != nil {
			return err
		}
	}

	for _, issue := range v.Issues {
		if issue.Severity == validation.SeverityError {
			color.Red("%s", issue.Error())
		} else {
			color.Yellow("%s", issue.Error())
		}
	}

	if !v.IsValid {
		return fmt.Errorf("validation failed with %d error(s)", v.ErrorCount)
	}

	if len(v.Issues) == 0 {
		fmt.Fprintln(os.Stdout, validation.FormatIssues(v.Issues))
	}
	color.Green("Validation passed: %d file(s), %d warning(s)", len(result.Files), v.WarningCount)
	return nil
}
