package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rulekit/internal/compiler"
	"github.com/roach88/rulekit/internal/ir"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Objects []string // stage object ids for reference checks
	Strict  bool     // warnings fail validation
}

// ValidationResult is the validate command's output.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Project  string                     `json:"project"`
	Hash     string                     `json:"hash,omitempty"`
	Rules    int                        `json:"rules"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.ValidationError `json:"warnings,omitempty"`
	Cycles   []compiler.CycleWarning    `json:"cycles,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <project>",
		Short: "Check a project without playing it",
		Long: `Load a project (.json, .yaml, .cue file or a CUE directory) and check it.

Duplicate or empty rule ids are errors: the engine refuses to start a
session on them. Unknown references, unknown condition or action kinds,
out-of-range parameters and feedback cycles between rules are warnings:
the engine tolerates them and reports diagnostics at runtime.

Exit codes:
  0 - Project valid (warnings allowed unless --strict)
  1 - Validation errors
  2 - Project could not be loaded

Examples:
  rulekit validate ./game.yaml
  rulekit validate ./project/ --objects star,door
  rulekit validate ./game.json --strict --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Objects, "objects", nil, "stage object ids to check references against")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "treat warnings as errors")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	snap, err := loadProject(f, path)
	if err != nil {
		return err
	}

	var vopts []compiler.ValidateOption
	if len(opts.Objects) > 0 {
		vopts = append(vopts, compiler.WithObjects(opts.Objects...))
	}
	res := compiler.Validate(snap, vopts...)

	result := ValidationResult{
		Valid:    res.OK() && !(opts.Strict && len(res.Warnings) > 0),
		Project:  path,
		Rules:    len(snap.Rules),
		Errors:   res.Errors,
		Warnings: res.Warnings,
		Cycles:   res.Cycles,
	}
	if hash, err := ir.SnapshotHash(snap); err == nil {
		result.Hash = hash
	}

	if result.Valid {
		if f.Format == "json" {
			return f.Success(result)
		}
		fmt.Fprintf(f.Writer, "✓ %s valid (%d rules)\n", path, result.Rules)
		writeFindings(f, "Warnings", res.Warnings)
		writeCycles(f, res.Cycles)
		return nil
	}

	failed := len(res.Errors)
	if failed == 0 {
		failed = len(res.Warnings)
	}
	msg := fmt.Sprintf("validation failed with %d problem(s)", failed)

	if f.Format == "json" {
		first := firstFinding(res)
		if err := f.Failure(first.Code, first.Message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	fmt.Fprintln(f.Writer, "✗ Validation failed")
	writeFindings(f, "Errors", res.Errors)
	writeFindings(f, "Warnings", res.Warnings)
	writeCycles(f, res.Cycles)
	return NewExitError(ExitFailure, msg)
}

func firstFinding(res *compiler.Result) compiler.ValidationError {
	if len(res.Errors) > 0 {
		return res.Errors[0]
	}
	return res.Warnings[0]
}

func writeFindings(f *OutputFormatter, title string, findings []compiler.ValidationError) {
	if len(findings) == 0 {
		return
	}
	fmt.Fprintf(f.Writer, "\n%s:\n", title)
	for _, e := range findings {
		fmt.Fprintf(f.Writer, "  %s %s: %s\n", e.Code, e.Field, e.Message)
	}
}

func writeCycles(f *OutputFormatter, cycles []compiler.CycleWarning) {
	if len(cycles) == 0 || !f.Verbose {
		return
	}
	fmt.Fprintln(f.Writer, "\nFeedback:")
	for _, c := range cycles {
		fmt.Fprintf(f.Writer, "  [%s] %s\n", c.Level, strings.Join(c.Path, " -> "))
	}
}
