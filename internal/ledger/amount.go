// Package ledger holds the fixed-scale decimal type used for every balance,
// reward and withdrawal amount.
package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every amount is held at.
const Scale = 4

var ErrInvalidAmount = errors.New("invalid amount")

// maxAbs matches the numeric(18,4) columns amounts are stored in.
var maxAbs = decimal.New(1, 14)

// Amount is a currency value with exactly Scale fractional digits.
// The zero value is 0.0000.
type Amount struct {
	d decimal.Decimal
}

func Zero() Amount {
	return Amount{}
}

// Parse converts a decimal string into an Amount. Input with more
// fractional precision than Scale, non-numeric input and empty input
// are rejected with ErrInvalidAmount.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	if !d.Equal(d.Round(Scale)) || d.Abs().GreaterThanOrEqual(maxAbs) {
		return Amount{}, ErrInvalidAmount
	}
	return Amount{d: d.Round(Scale)}, nil
}

// MustParse is Parse for constants; it panics on bad input.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic("ledger: bad amount " + s)
	}
	return a
}

// FromInt returns n whole units.
func FromInt(n int64) Amount {
	return Amount{d: decimal.NewFromInt(n)}
}

func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }
func (a Amount) Neg() Amount         { return Amount{d: a.d.Neg()} }

// Mul scales the amount by an integer factor.
func (a Amount) Mul(n int64) Amount {
	return Amount{d: a.d.Mul(decimal.NewFromInt(n))}
}

func (a Amount) Cmp(b Amount) int          { return a.d.Cmp(b.d) }
func (a Amount) Equal(b Amount) bool       { return a.d.Equal(b.d) }
func (a Amount) LessThan(b Amount) bool    { return a.d.LessThan(b.d) }
func (a Amount) GreaterThan(b Amount) bool { return a.d.GreaterThan(b.d) }
func (a Amount) IsZero() bool              { return a.d.IsZero() }
func (a Amount) IsNegative() bool          { return a.d.IsNegative() }
func (a Amount) IsPositive() bool          { return a.d.IsPositive() }

// String renders the canonical form with exactly Scale fractional digits.
func (a Amount) String() string {
	return a.d.StringFixed(Scale)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts both a quoted decimal string and a bare JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return ErrInvalidAmount
	}
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Scan reads a numeric column that was selected as text.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Zero()
		return nil
	case string:
		return a.scanString(v)
	case []byte:
		return a.scanString(string(v))
	case int64:
		*a = FromInt(v)
		return nil
	default:
		return fmt.Errorf("ledger: cannot scan %T into Amount", src)
	}
}

func (a *Amount) scanString(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("ledger: scan %q: %w", s, err)
	}
	*a = Amount{d: d.Round(Scale)}
	return nil
}

// Sum adds up a list of amounts.
func Sum(amounts ...Amount) Amount {
	total := Zero()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
