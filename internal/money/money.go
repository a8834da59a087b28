// Package money provides fixed-point currency arithmetic with two fractional
// digits. All derived ledger figures are computed in this type; binary floats
// never enter a sum.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Money is an immutable amount with two decimal places.
type Money struct {
	amount decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// Tolerance absorbs rounding noise when comparing balances (0.01 unit).
var Tolerance = Money{amount: decimal.New(1, -2)}

// ErrInvalid indicates a value that cannot be parsed as an amount.
var ErrInvalid = errors.New("money: invalid amount")

// Parse converts raw user input into Money, rounding half-up to two decimal
// places. Rounding happens here, at the boundary, and nowhere else.
func Parse(s string) (Money, error) {
	if s == "" {
		return Money{}, ErrInvalid
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return Money{amount: d.Round(2)}, nil
}

// MustParse is Parse for trusted literals, panicking on malformed input.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal wraps an already-exact decimal without re-rounding.
func FromDecimal(d decimal.Decimal) Money {
	return Money{amount: d}
}

// Decimal exposes the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{amount: m.amount.Add(o.amount)}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{amount: m.amount.Sub(o.amount)}
}

// MulInt returns m multiplied by an integer quantity.
func (m Money) MulInt(qty int64) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(qty))}
}

// Cmp compares two amounts: -1 if m < o, 0 if equal, 1 if m > o.
func (m Money) Cmp(o Money) int {
	return m.amount.Cmp(o.amount)
}

// GreaterThan reports whether m > o.
func (m Money) GreaterThan(o Money) bool {
	return m.amount.Cmp(o.amount) > 0
}

// LessThanOrEqual reports whether m <= o.
func (m Money) LessThanOrEqual(o Money) bool {
	return m.amount.Cmp(o.amount) <= 0
}

// IsPositive reports whether m > 0.
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative reports whether m < 0.
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// IsZero reports whether m == 0.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// Sum adds a slice of amounts.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// String renders the amount with exactly two fractional digits.
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

// MarshalJSON encodes the amount as a decimal string, never a float.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(m.String())), nil
}

// UnmarshalJSON accepts a decimal string and rounds per Parse.
func (m *Money) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, data)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (m *Money) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return err
	}
	m.amount = d
	return nil
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) {
	return m.amount.Value()
}
