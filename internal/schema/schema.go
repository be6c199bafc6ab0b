// Package schema validates operation wire JSON against the embedded CUE
// schema before it is appended to the log.
//
// Validation is stricter than decoding: decoding accepts anything with a
// usable envelope so the log can always be folded, while validation
// rejects payloads that would be dropped. Unrecognized type tags pass
// validation because newer writers may add types.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed operation.cue
var operationCUE string

// Validator checks operation documents. It is not safe for concurrent use.
type Validator struct {
	ctx      *cue.Context
	envelope cue.Value
	data     cue.Value
}

// New compiles the embedded schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(operationCUE, cue.Filename("operation.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{
		ctx:      ctx,
		envelope: root.LookupPath(cue.ParsePath("#Envelope")),
		data:     root.LookupPath(cue.ParsePath("#Data")),
	}, nil
}

// KnownType reports whether the schema has a payload definition for tag.
func (v *Validator) KnownType(tag string) bool {
	return v.data.LookupPath(cue.MakePath(cue.Str(tag))).Exists()
}

// Validate checks one operation document. filename is used in error
// positions.
func (v *Validator) Validate(filename string, raw []byte) error {
	return v.validate(filename, raw, -1)
}

// ValidateList checks a JSON array of operations or a single operation and
// returns the first violation.
func (v *Validator) ValidateList(filename string, raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return v.validate(filename, trimmed, -1)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return &ValidationError{Index: -1, Message: err.Error()}
	}
	for i, item := range items {
		if err := v.validate(filename, item, i); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validate(filename string, raw []byte, index int) error {
	if !json.Valid(raw) {
		return &ValidationError{Index: index, Message: "not valid JSON"}
	}
	doc := v.ctx.CompileBytes(raw, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return formatCUEError(err, index)
	}

	if err := doc.Unify(v.envelope).Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err, index)
	}

	tag, err := typeTag(doc)
	if err != nil {
		return &ValidationError{Index: index, Path: "type", Message: err.Error(), Pos: doc.Pos()}
	}
	def := v.data.LookupPath(cue.MakePath(cue.Str(tag)))
	if !def.Exists() {
		return nil
	}

	data := doc.LookupPath(cue.ParsePath("data"))
	if !data.Exists() {
		return &ValidationError{Index: index, Path: "data", Message: fmt.Sprintf("data is required for %s", tag), Pos: doc.Pos()}
	}
	if err := data.Unify(def).Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err, index)
	}
	return nil
}

// typeTag returns type, falling back to op_code.
func typeTag(doc cue.Value) (string, error) {
	for _, field := range []string{"type", "op_code"} {
		f := doc.LookupPath(cue.ParsePath(field))
		if !f.Exists() {
			continue
		}
		return f.String()
	}
	return "", fmt.Errorf("type is required")
}
