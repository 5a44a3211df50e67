// Package money is a fixed-point currency amount stored as integer minor units.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places kept for every amount.
const Scale = 2

const unit = 100

// Amount is a signed currency value in minor units (1 = 0.01).
type Amount int64

// Max is the largest magnitude a numeric(14,2) column holds.
const Max Amount = 99_999_999_999_999

var ErrInvalidAmount = errors.New("invalid money amount")

func FromMinor(minor int64) Amount { return Amount(minor) }

// FromDecimal rounds d half away from zero to the minor unit. Values beyond Max
// are rejected rather than truncated.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	shifted := d.Round(Scale).Shift(Scale)
	if shifted.Abs().GreaterThan(decimal.NewFromInt(int64(Max))) {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidAmount, d.String())
	}
	return Amount(shifted.IntPart()), nil
}

// Parse reads a decimal string such as "8000", "12.5" or "-0.01".
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d)
}

// MustParse is Parse for literals in tests and seeds.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Minor() int64 { return int64(a) }

func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Scale)
}

func (a Amount) Add(b Amount) Amount { return a + b }
func (a Amount) Sub(b Amount) Amount { return a - b }
func (a Amount) Neg() Amount         { return -a }

// MulInt is the line subtotal for a unit price and a quantity.
func (a Amount) MulInt(n int) Amount { return a * Amount(n) }

// MulIntWithin is MulInt that reports false instead of leaving [-Max, Max].
func (a Amount) MulIntWithin(n int) (Amount, bool) {
	if n == 0 || a == 0 {
		return 0, true
	}
	abs, k := a, Amount(n)
	if abs < 0 {
		abs = -abs
	}
	if k < 0 {
		k = -k
	}
	if abs > Max/k {
		return 0, false
	}
	return a * Amount(n), true
}

// InRange reports whether a fits a numeric(14,2) column.
func (a Amount) InRange() bool { return a >= -Max && a <= Max }

func (a Amount) Cmp(b Amount) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (a Amount) IsZero() bool     { return a == 0 }
func (a Amount) IsPositive() bool { return a > 0 }
func (a Amount) IsNegative() bool { return a < 0 }

// Sum adds amounts in minor units.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, x := range amounts {
		total += x
	}
	return total
}

// String renders the amount with exactly two decimals, e.g. "21000.00".
func (a Amount) String() string {
	return a.Decimal().StringFixed(Scale)
}

// Grouped renders the integer part with thousands separators, for chat messages.
func (a Amount) Grouped() string {
	s := a.String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if frac != "00" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = 0
		return nil
	case int64:
		if v > int64(Max)/unit || v < -int64(Max)/unit {
			return fmt.Errorf("%w: %d is out of range", ErrInvalidAmount, v)
		}
		*a = Amount(v * unit)
		return nil
	case float64:
		parsed, err := FromDecimal(decimal.NewFromFloat(v))
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	}
	return fmt.Errorf("money: cannot scan %T", src)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts both a JSON string ("80.00") and a JSON number (80).
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*a = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
