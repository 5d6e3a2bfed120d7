// Package money provides an exact, currency-tagged monetary value.
//
// Amounts are decimal.Decimal values and never pass through a float. Binary
// operations require both operands to carry the same currency code and fail
// with ErrCurrencyMismatch otherwise; no operation ever converts.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ErrCurrencyMismatch is returned when two values with different currencies
// are combined or compared.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// ErrInvalidCurrency is returned by ValidateCurrencyCode.
var ErrInvalidCurrency = errors.New("currency must be a 3-letter ISO code")

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Money is an amount in a single currency.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// New returns a Money. The currency code is trusted as given; validate it at
// the boundary with ValidateCurrencyCode.
func New(amount decimal.Decimal, currency string) Money {
	return Money{amount: amount, currency: currency}
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Parse builds a Money from a decimal string such as "-12.3400".
func Parse(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("Parse: invalid amount %q: %w", amount, err)
	}
	return New(d, currency), nil
}

// ValidateCurrencyCode checks that code is exactly three uppercase ASCII letters.
func ValidateCurrencyCode(code string) error {
	if !currencyPattern.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return nil
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() string        { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }
func (m Money) IsPositive() bool        { return m.amount.IsPositive() }

// Neg returns the value with its sign flipped.
func (m Money) Neg() Money { return Money{amount: m.amount.Neg(), currency: m.currency} }

// Abs returns the absolute value.
func (m Money) Abs() Money { return Money{amount: m.amount.Abs(), currency: m.currency} }

// Add returns m + n.
func (m Money) Add(n Money) (Money, error) {
	if err := sameCurrency(m, n); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(n.amount), currency: m.currency}, nil
}

// Sub returns m - n.
func (m Money) Sub(n Money) (Money, error) {
	if err := sameCurrency(m, n); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(n.amount), currency: m.currency}, nil
}

// Cmp returns -1, 0 or 1 like decimal.Cmp.
func (m Money) Cmp(n Money) (int, error) {
	if err := sameCurrency(m, n); err != nil {
		return 0, err
	}
	return m.amount.Cmp(n.amount), nil
}

func (m Money) GreaterThan(n Money) (bool, error) {
	c, err := m.Cmp(n)
	return c > 0, err
}

func (m Money) LessThan(n Money) (bool, error) {
	c, err := m.Cmp(n)
	return c < 0, err
}

func (m Money) GreaterThanOrEqual(n Money) (bool, error) {
	c, err := m.Cmp(n)
	return err == nil && c >= 0, err
}

func (m Money) LessThanOrEqual(n Money) (bool, error) {
	c, err := m.Cmp(n)
	return err == nil && c <= 0, err
}

// Equal reports exact equality of amount and currency. 10.5 and 10.50 are equal.
func (m Money) Equal(n Money) bool {
	return m.currency == n.currency && m.amount.Equal(n.amount)
}

// Sum adds values onto a zero of the given currency.
func Sum(currency string, values ...Money) (Money, error) {
	total := Zero(currency)
	for _, v := range values {
		var err error
		if total, err = total.Add(v); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}

func sameCurrency(a, b Money) error {
	if a.currency != b.currency {
		return fmt.Errorf("%w: %s and %s, use explicit FX conversion", ErrCurrencyMismatch, a.currency, b.currency)
	}
	return nil
}

// fraction returns the ISO minor-unit digits of the currency, 2 when unknown.
func (m Money) fraction() int32 {
	if c := gomoney.GetCurrency(m.currency); c != nil {
		return int32(c.Fraction)
	}
	return 2
}

// String renders the amount with at least the currency's minor-unit digits,
// e.g. "12.50 CAD". Extra stored precision is kept, never rounded away.
func (m Money) String() string {
	digits := m.fraction()
	if exp := -m.amount.Exponent(); exp > digits {
		digits = exp
	}
	return m.amount.StringFixed(digits) + " " + m.currency
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON encodes the amount as a string to keep it exact.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.String(), Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := Parse(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
