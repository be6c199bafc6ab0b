package ability

import (
	"errors"
	"fmt"

	"github.com/roach88/trustlog/internal/op"
)

// MissingMemberError is returned when a query names a member that does not
// exist in the snapshot it was evaluated against.
type MissingMemberError struct {
	ID op.MemberID

	// Version is the snapshot version the lookup ran against.
	Version uint64
}

// Error implements the error interface.
func (e *MissingMemberError) Error() string {
	return fmt.Sprintf("member %s not found (snapshot version %d)", e.ID, e.Version)
}

// IsMissingMember returns true if err is a MissingMemberError.
// Uses errors.As to handle wrapped errors.
func IsMissingMember(err error) bool {
	var me *MissingMemberError
	return errors.As(err, &me)
}
