// Package compiler turns authored project files into an ir.Snapshot.
//
// Projects can be written as JSON (the authoring tool's export format),
// YAML or CUE. Every format is checked against the embedded #Project CUE
// schema before it is decoded, so structural corruption is reported with a
// source position. Validate then checks the decoded snapshot: problems
// that make a session impossible to start are errors, problems the engine
// tolerates at runtime (unknown references, unknown kinds, out-of-range
// parameters) are warnings.
package compiler
