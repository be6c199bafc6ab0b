// Package ledger provides exact decimal arithmetic for member balances.
//
// Amounts carry at most MaxDigits significant digits, and their plain form
// has at most MaxDigits digits on either side of the point. Arithmetic
// never rounds: a result that cannot be held exactly is an error.
package ledger

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// MaxDigits bounds the precision of an Amount. 34 digits matches decimal128.
const MaxDigits = 34

// arith is shared by all Amount operations.
var arith = apd.Context{
	Precision:   MaxDigits,
	MaxExponent: apd.MaxExponent,
	MinExponent: apd.MinExponent,
	Traps:       apd.DefaultTraps | apd.Inexact,
}

// Amount is an immutable decimal quantity of currency.
// The zero value is 0.
type Amount struct {
	d apd.Decimal
}

// Zero returns the zero amount.
func Zero() Amount {
	return Amount{}
}

// Parse reads a decimal string such as "10", "-2.5" or "1e3".
// NaN and infinities are rejected.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("parse amount: empty string")
	}
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.Form != apd.Finite {
		return Amount{}, fmt.Errorf("parse amount %q: not a finite number", s)
	}
	if err := checkRange(d); err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount{d: *d}, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or with constant inputs.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// checkRange rejects amounts outside the precision the ledger holds.
func checkRange(d *apd.Decimal) error {
	digits := d.NumDigits()
	if d.IsZero() {
		digits = 1
	}
	switch {
	case digits > MaxDigits:
		return fmt.Errorf("more than %d significant digits", MaxDigits)
	case digits+int64(d.Exponent) > MaxDigits:
		return fmt.Errorf("more than %d integer digits", MaxDigits)
	case d.Exponent < -MaxDigits:
		return fmt.Errorf("more than %d fractional digits", MaxDigits)
	}
	return nil
}

// Add returns a + b. It fails when the exact sum does not fit.
func (a Amount) Add(b Amount) (Amount, error) {
	var out apd.Decimal
	if _, err := arith.Add(&out, &a.d, &b.d); err != nil {
		return Amount{}, fmt.Errorf("add %s + %s: %w", a, b, err)
	}
	if err := checkRange(&out); err != nil {
		return Amount{}, fmt.Errorf("add %s + %s: %w", a, b, err)
	}
	return Amount{d: out}, nil
}

// Sub returns a - b. It fails when the exact difference does not fit.
func (a Amount) Sub(b Amount) (Amount, error) {
	var out apd.Decimal
	if _, err := arith.Sub(&out, &a.d, &b.d); err != nil {
		return Amount{}, fmt.Errorf("sub %s - %s: %w", a, b, err)
	}
	if err := checkRange(&out); err != nil {
		return Amount{}, fmt.Errorf("sub %s - %s: %w", a, b, err)
	}
	return Amount{d: out}, nil
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.d.Cmp(&b.d)
}

// Sign returns -1, 0 or +1.
func (a Amount) Sign() int {
	return a.d.Sign()
}

// IsZero reports whether a equals zero.
func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

// String returns the plain (non-exponent) decimal form.
func (a Amount) String() string {
	return a.d.Text('f')
}

// MarshalJSON encodes the amount as a JSON string to avoid float loss.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a JSON string or a bare JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
