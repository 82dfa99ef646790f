package cli

import (
	"errors"
	"fmt"

	"github.com/roach88/rulekit/internal/compiler"
	"github.com/roach88/rulekit/internal/ir"
)

// LoadErrorDetails locates a load error in its source file.
type LoadErrorDetails struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// loadProject reads a project, printing any load error through f. The
// returned error is an *ExitError with ExitCommandError.
func loadProject(f *OutputFormatter, path string) (*ir.Snapshot, error) {
	snap, err := compiler.LoadProject(path)
	if err == nil {
		f.VerboseLog("Loaded %d rule(s) from %s", len(snap.Rules), path)
		return snap, nil
	}
	return nil, reportLoadError(f, err)
}

func reportLoadError(f *OutputFormatter, err error) error {
	code, message := compiler.ErrCodeGeneric, err.Error()
	var details any

	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		code, message = loadErr.Code, loadErr.Message
		if loadErr.Pos.IsValid() {
			details = LoadErrorDetails{
				File:   loadErr.Pos.Filename(),
				Line:   loadErr.Pos.Line(),
				Column: loadErr.Pos.Column(),
			}
			message = fmt.Sprintf("%s:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), message)
		}
	}

	_ = f.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
