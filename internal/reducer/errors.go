package reducer

import (
	"errors"
	"fmt"

	"github.com/roach88/trustlog/internal/op"
)

// DropCode categorizes why an operation was not applied.
type DropCode string

const (
	// DropDuplicateCreate indicates CREATE_MEMBER for an existing member.
	DropDuplicateCreate DropCode = "DUPLICATE_CREATE"

	// DropMissingMember indicates the creator or target does not exist.
	DropMissingMember DropCode = "MISSING_MEMBER"

	// DropUnknownType indicates a type tag outside op.Types().
	DropUnknownType DropCode = "UNKNOWN_TYPE"

	// DropInvalidPrecondition indicates state the operation relies on is
	// absent or already consumed.
	DropInvalidPrecondition DropCode = "INVALID_PRECONDITION"

	// DropInvalidPayload indicates the payload could not be used.
	DropInvalidPayload DropCode = "INVALID_PAYLOAD"
)

// DropCodes returns every drop code in a stable order.
func DropCodes() []DropCode {
	return []DropCode{
		DropDuplicateCreate,
		DropMissingMember,
		DropUnknownType,
		DropInvalidPrecondition,
		DropInvalidPayload,
	}
}

// DropError describes an operation the fold skipped.
type DropError struct {
	Code        DropCode
	OperationID op.OperationID
	Type        op.Type
	Seq         int64
	Message     string
}

// Error implements the error interface.
func (e *DropError) Error() string {
	if e.Seq > 0 {
		return fmt.Sprintf("%s: %s (op=%s, type=%s, seq=%d)", e.Code, e.Message, e.OperationID, e.Type, e.Seq)
	}
	return fmt.Sprintf("%s: %s (op=%s, type=%s)", e.Code, e.Message, e.OperationID, e.Type)
}

// IsDropCode reports whether err is a DropError with the given code.
// Uses errors.As to handle wrapped errors.
func IsDropCode(err error, code DropCode) bool {
	var de *DropError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

func drop(o op.Operation, code DropCode, format string, args ...any) *DropError {
	return &DropError{
		Code:        code,
		OperationID: o.ID,
		Type:        o.Type,
		Seq:         o.Seq,
		Message:     fmt.Sprintf(format, args...),
	}
}
