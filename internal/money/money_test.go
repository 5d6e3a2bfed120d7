package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cad(s string) Money {
	return New(decimal.RequireFromString(s), "CAD")
}

func TestAddSubRoundTrip(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"100.00", "50.00"},
		{"0.0001", "0.0002"},
		{"-12.3456", "7.1"},
		{"99999999999999.9999", "0.0001"},
		{"0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.a+"+"+tt.b, func(t *testing.T) {
			a, b := cad(tt.a), cad(tt.b)

			sum, err := a.Add(b)
			require.NoError(t, err)
			back, err := sum.Sub(b)
			require.NoError(t, err)

			assert.True(t, back.Equal(a), "got %s want %s", back, a)
		})
	}
}

func TestCurrencyMismatch(t *testing.T) {
	c := cad("100.00")
	u := New(decimal.RequireFromString("50.00"), "USD")

	_, err := c.Add(u)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
	_, err = c.Sub(u)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
	_, err = c.Cmp(u)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	comparisons := map[string]func(Money) (bool, error){
		"GreaterThan":        c.GreaterThan,
		"LessThan":           c.LessThan,
		"GreaterThanOrEqual": c.GreaterThanOrEqual,
		"LessThanOrEqual":    c.LessThanOrEqual,
	}
	for name, cmp := range comparisons {
		t.Run(name, func(t *testing.T) {
			ok, err := cmp(u)
			assert.ErrorIs(t, err, ErrCurrencyMismatch)
			assert.False(t, ok)
		})
	}
}

func TestComparisons(t *testing.T) {
	small, big := cad("10.00"), cad("10.01")

	gt, err := big.GreaterThan(small)
	require.NoError(t, err)
	assert.True(t, gt)

	lt, err := big.LessThan(small)
	require.NoError(t, err)
	assert.False(t, lt)

	ge, err := small.GreaterThanOrEqual(cad("10"))
	require.NoError(t, err)
	assert.True(t, ge)

	le, err := small.LessThanOrEqual(cad("9.99"))
	require.NoError(t, err)
	assert.False(t, le)
}

func TestNegAbsNeverFail(t *testing.T) {
	m := cad("-42.5")

	assert.True(t, m.Neg().Equal(cad("42.5")))
	assert.True(t, m.Abs().Equal(cad("42.5")))
	assert.True(t, m.Abs().Abs().Equal(m.Abs()))
	assert.Equal(t, "CAD", m.Neg().Currency())
}

func TestZeroAndSum(t *testing.T) {
	z := Zero("EUR")
	assert.True(t, z.IsZero())
	assert.Equal(t, "EUR", z.Currency())

	total, err := Sum("CAD", cad("60.00"), cad("40.00"))
	require.NoError(t, err)
	assert.True(t, total.Equal(cad("100")))

	_, err = Sum("CAD", cad("1"), New(decimal.NewFromInt(1), "USD"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestValidateCurrencyCode(t *testing.T) {
	tests := []struct {
		code    string
		wantErr bool
	}{
		{"CAD", false},
		{"USD", false},
		{"cad", true},
		{"CA", true},
		{"CADX", true},
		{"C4D", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := ValidateCurrencyCode(tt.code)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCurrency)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "12.50 CAD", cad("12.5").String())
	assert.Equal(t, "12.3456 CAD", cad("12.3456").String())
	assert.Equal(t, "500 JPY", New(decimal.NewFromInt(500), "JPY").String())
}

func TestJSONKeepsExactAmount(t *testing.T) {
	in := cad("0.1000")

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"0.1","currency":"CAD"}`, string(data))

	var out Money
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, out.Equal(in))
}
