package compiler

import (
	_ "embed"

	"cuelang.org/go/cue"

	"github.com/roach88/rulekit/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// projectSchema compiles the embedded schema in ctx and returns #Project.
func projectSchema(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(ErrCodeGeneric, err)
	}
	return v.LookupPath(cue.ParsePath("#Project")), nil
}

// CompileProject checks a CUE value against #Project and decodes it into
// a Snapshot. Schema defaults (enabled rules, zero initial values) are
// filled in before decoding.
//
// The value should be the project struct itself:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`rules: [...]`)
//	snap, err := CompileProject(v)
func CompileProject(v cue.Value) (*ir.Snapshot, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(ErrCodeLoadFailed, err)
	}

	schema, err := projectSchema(v.Context())
	if err != nil {
		return nil, err
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(ErrCodeSchema, err)
	}

	data, err := unified.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(ErrCodeSchema, err)
	}

	snap, err := ir.ParseSnapshot(data)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDecode, Message: err.Error()}
	}
	return snap, nil
}
