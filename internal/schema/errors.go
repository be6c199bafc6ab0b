package schema

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// ValidationError describes the first schema violation in a document.
type ValidationError struct {
	// Index is the position of the operation in a list, or -1.
	Index   int
	Path    string
	Message string
	Pos     token.Pos
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Pos.IsValid() {
		fmt.Fprintf(&b, "%s:%d:%d: ", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	if e.Index >= 0 {
		fmt.Fprintf(&b, "operation[%d]: ", e.Index)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, "%s: ", e.Path)
	}
	b.WriteString(e.Message)
	return b.String()
}

// IsValidationError returns true if err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// formatCUEError extracts path and position info from CUE errors.
func formatCUEError(err error, index int) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Index: index, Message: err.Error()}
	}

	first := errs[0]
	format, args := first.Msg()
	ve := &ValidationError{
		Index:   index,
		Path:    strings.Join(first.Path(), "."),
		Message: fmt.Sprintf(format, args...),
	}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ve.Pos = positions[0]
	}
	return ve
}
