package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/trustlog/internal/ability"
	"github.com/roach88/trustlog/internal/ledger"
	"github.com/roach88/trustlog/internal/member"
	"github.com/roach88/trustlog/internal/op"
	"github.com/roach88/trustlog/internal/reducer"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // assertion type
	Subject  string // member or operation under test
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Subject != "" {
		fmt.Fprintf(&buf, " (%s)", e.Subject)
	}
	fmt.Fprintf(&buf, "\n  Expected: %s\n  Actual: %s", e.Expected, e.Actual)
	return buf.String()
}

// outcome is what assertions are evaluated against.
type outcome struct {
	snap    *member.Snapshot
	engine  *ability.Engine
	drops   []*reducer.DropError
	applied map[op.OperationID]bool
}

// evaluate checks a single assertion.
func evaluate(a Assertion, out outcome) error {
	switch a.Type {
	case AssertExists:
		return expectBool(a, a.Member, out.snap.HasMember(op.MemberID(a.Member)))

	case AssertIsVerified:
		m, err := mustMember(a, out)
		if err != nil {
			return err
		}
		return expectBool(a, a.Member, m.IsVerified())

	case AssertGoodStanding:
		ok, err := out.engine.IsInGoodStanding(op.MemberID(a.Member))
		if err != nil {
			return err
		}
		return expectBool(a, a.Member, ok)

	case AssertCanFlag:
		ok, err := out.engine.CanFlag(op.MemberID(a.Member))
		if err != nil {
			return err
		}
		return expectBool(a, a.Member, ok)

	case AssertCanCreate:
		ok, err := out.engine.CanCreateOperation(op.Type(a.OpType), op.MemberID(a.Member))
		if err != nil {
			return &AssertionError{
				Type:     a.Type,
				Subject:  a.OpType + " " + a.Member,
				Expected: fmt.Sprintf("%t", a.Expected()),
				Actual:   err.Error(),
			}
		}
		return expectBool(a, a.OpType+" "+a.Member, ok)

	case AssertMissingMember:
		_, err := out.engine.CanCreateOperation(op.Type(a.OpType), op.MemberID(a.Member))
		if !ability.IsMissingMember(err) {
			return &AssertionError{
				Type:     a.Type,
				Subject:  a.OpType + " " + a.Member,
				Expected: "missing member error",
				Actual:   fmt.Sprintf("%v", err),
			}
		}
		return nil

	case AssertVerifiedByCount:
		m, err := mustMember(a, out)
		if err != nil {
			return err
		}
		return expectCount(a, m.VerifiedBy().Len())

	case AssertFlagCount:
		m, err := mustMember(a, out)
		if err != nil {
			return err
		}
		return expectCount(a, m.OperationsFlaggingThisMember().Len())

	case AssertBalance:
		m, err := mustMember(a, out)
		if err != nil {
			return err
		}
		want := ledger.MustParse(a.Amount)
		if m.Balance().Cmp(want) != 0 {
			return &AssertionError{
				Type:     a.Type,
				Subject:  a.Member,
				Expected: want.String(),
				Actual:   m.Balance().String(),
			}
		}
		return nil

	case AssertDropped:
		return assertDropped(a, out)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertDropped(a Assertion, out outcome) error {
	id := op.OperationID(a.Operation)
	for _, d := range out.drops {
		if d.OperationID != id {
			continue
		}
		if a.Code != "" && string(d.Code) != a.Code {
			return &AssertionError{
				Type:     a.Type,
				Subject:  a.Operation,
				Expected: "dropped with " + a.Code,
				Actual:   "dropped with " + string(d.Code),
			}
		}
		return nil
	}

	actual := "not in log"
	if out.applied[id] {
		actual = "applied"
	}
	return &AssertionError{
		Type:     a.Type,
		Subject:  a.Operation,
		Expected: "dropped",
		Actual:   actual,
	}
}

func mustMember(a Assertion, out outcome) (member.Member, error) {
	m, ok := out.snap.Member(op.MemberID(a.Member))
	if !ok {
		return member.Member{}, &AssertionError{
			Type:     a.Type,
			Subject:  a.Member,
			Expected: "member exists",
			Actual:   "no such member",
		}
	}
	return m, nil
}

func expectBool(a Assertion, subject string, actual bool) error {
	if actual == a.Expected() {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Subject:  subject,
		Expected: fmt.Sprintf("%t", a.Expected()),
		Actual:   fmt.Sprintf("%t", actual),
	}
}

func expectCount(a Assertion, actual int) error {
	if actual == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Subject:  a.Member,
		Expected: fmt.Sprintf("%d", *a.Count),
		Actual:   fmt.Sprintf("%d", actual),
	}
}
