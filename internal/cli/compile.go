package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/rulekit/internal/compiler"
	"github.com/roach88/rulekit/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file; stdout when empty
}

// CompileResult is the compile command's JSON output.
type CompileResult struct {
	Hash     string `json:"hash"`
	Rules    int    `json:"rules"`
	Counters int    `json:"counters"`
	Flags    int    `json:"flags"`
	Output   string `json:"output,omitempty"`
	Warnings int    `json:"warnings"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <project>",
		Short: "Compile a project to canonical snapshot JSON",
		Long: `Load and validate a project, then write it as canonical JSON.

The output is the snapshot the engine plays: schema defaults filled in,
keys sorted, numbers in shortest form. Its content hash identifies the
project in the session log, so the same rules written in JSON, YAML or
CUE compile to the same hash.

Examples:
  rulekit compile ./game.cue
  rulekit compile ./game.yaml -o snapshot.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	snap, err := loadProject(f, path)
	if err != nil {
		return err
	}

	res := compiler.Validate(snap)
	if !res.OK() {
		first := res.Errors[0]
		_ = f.Error(first.Code, first.Error(), res.Errors)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(res.Errors)))
	}
	for _, w := range res.Warnings {
		f.VerboseLog("warning: %s", w.Error())
	}

	data, err := ir.MarshalCanonical(snap)
	if err != nil {
		return WrapExitError(ExitCommandError, "encode snapshot", err)
	}
	hash, err := ir.SnapshotHash(snap)
	if err != nil {
		return WrapExitError(ExitCommandError, "hash snapshot", err)
	}

	result := CompileResult{
		Hash:     hash,
		Rules:    len(snap.Rules),
		Counters: len(snap.Counters),
		Flags:    len(snap.Flags),
		Output:   opts.Output,
		Warnings: len(res.Warnings),
	}

	if opts.Output == "" {
		if f.Format == "json" {
			return f.Success(result)
		}
		fmt.Fprintln(f.Writer, string(data))
		return nil
	}

	if err := os.WriteFile(opts.Output, data, 0644); err != nil {
		return WrapExitError(ExitCommandError, "write output", err)
	}
	if f.Format == "json" {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "✓ Compiled %d rules to %s\n", result.Rules, opts.Output)
	fmt.Fprintf(f.Writer, "  hash %s\n", hash)
	return nil
}
