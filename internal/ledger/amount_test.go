package ledger

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10", "10"},
		{" 2.50 ", "2.50"},
		{"-3.1", "-3.1"},
		{"1e3", "1000"},
		{"0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			a, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.String())
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{"", "abc", "NaN", "Infinity", "1.2.3"} {
		_, err := Parse(in)
		assert.Error(t, err, "input %q", in)
	}
}

func add(t *testing.T, a, b Amount) Amount {
	t.Helper()
	out, err := a.Add(b)
	require.NoError(t, err)
	return out
}

func sub(t *testing.T, a, b Amount) Amount {
	t.Helper()
	out, err := a.Sub(b)
	require.NoError(t, err)
	return out
}

func TestArithmetic(t *testing.T) {
	balance := Zero()
	balance = add(t, balance, MustParse("10"))
	balance = add(t, balance, MustParse("0.25"))
	balance = sub(t, balance, MustParse("3.5"))

	assert.Equal(t, "6.75", balance.String())
	assert.Equal(t, 1, balance.Sign())
	assert.Equal(t, 0, balance.Cmp(MustParse("6.750")))
	assert.False(t, balance.IsZero())

	overdrawn := sub(t, balance, MustParse("7"))
	assert.Equal(t, -1, overdrawn.Sign())
	assert.Equal(t, "-0.25", overdrawn.String())
}

func TestAdd_DoesNotMutateOperands(t *testing.T) {
	a := MustParse("1.5")
	b := MustParse("2")
	_ = add(t, a, b)
	assert.Equal(t, "1.5", a.String())
	assert.Equal(t, "2", b.String())
}

func TestZeroValue(t *testing.T) {
	var a Amount
	assert.True(t, a.IsZero())
	assert.Equal(t, "0", a.String())
	assert.Equal(t, "4", add(t, a, MustParse("4")).String())
}

func TestParse_RejectsOutOfRange(t *testing.T) {
	for _, in := range []string{
		"9.9e100000",
		"1e34",
		"1e-35",
		"1234567890123456789012345678901234.5",
	} {
		_, err := Parse(in)
		assert.Error(t, err, "input %q", in)
	}

	nines := strings.Repeat("9", MaxDigits)
	_, err := Parse(nines)
	assert.NoError(t, err)
	_, err = Parse("0." + nines)
	assert.NoError(t, err)
}

func TestArithmeticFailsInsteadOfRounding(t *testing.T) {
	nines := strings.Repeat("9", MaxDigits)
	largest := MustParse(nines)

	_, err := largest.Add(MustParse("1"))
	assert.Error(t, err, "sum needs more integer digits")

	_, err = largest.Add(MustParse("0.5"))
	assert.Error(t, err, "sum needs more significant digits")

	_, err = MustParse("-" + nines).Sub(MustParse("1"))
	assert.Error(t, err)

	sum, err := largest.Sub(MustParse("1"))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("9", MaxDigits-1)+"8", sum.String())
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(MustParse("12.30"))
	require.NoError(t, err)
	assert.Equal(t, `"12.30"`, string(data))

	var fromString, fromNumber Amount
	require.NoError(t, json.Unmarshal([]byte(`"7.5"`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`7.5`), &fromNumber))
	assert.Equal(t, 0, fromString.Cmp(fromNumber))

	var bad Amount
	assert.Error(t, json.Unmarshal([]byte(`"lots"`), &bad))
}
