// Package money provides exact-decimal monetary amounts.
//
// Amounts are persisted as canonical decimal strings, never as native
// floats, so repeated add/subtract round-trips stay exact. The same
// operations back the balance-adjustment deltas inside the storage
// layer's units of work.
package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is an exact decimal monetary value.
//
// The zero value is a valid amount of zero.
type Amount struct {
	value decimal.Decimal
}

// Zero is the zero amount.
var Zero = Amount{}

// Parse converts a canonical decimal string into an Amount.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount{value: d}, nil
}

// MustParse is Parse for literals in tests and fixtures; it panics on
// invalid input.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromInt returns the amount for a whole number of currency units.
func FromInt(n int64) Amount {
	return Amount{value: decimal.NewFromInt(n)}
}

// String returns the canonical decimal representation, the exact form
// stored in the database.
func (a Amount) String() string { return a.value.String() }

func (a Amount) Add(b Amount) Amount { return Amount{value: a.value.Add(b.value)} }
func (a Amount) Sub(b Amount) Amount { return Amount{value: a.value.Sub(b.value)} }
func (a Amount) Neg() Amount         { return Amount{value: a.value.Neg()} }
func (a Amount) Abs() Amount         { return Amount{value: a.value.Abs()} }

func (a Amount) Equal(b Amount) bool { return a.value.Equal(b.value) }
func (a Amount) Cmp(b Amount) int    { return a.value.Cmp(b.value) }
func (a Amount) IsZero() bool        { return a.value.IsZero() }
func (a Amount) IsNegative() bool    { return a.value.IsNegative() }
func (a Amount) IsPositive() bool    { return a.value.IsPositive() }

// Sum adds all amounts exactly.
func Sum(amounts ...Amount) Amount {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Scan implements sql.Scanner, accepting the canonical string form.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Zero
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case []byte:
		return a.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into money.Amount", src)
	}
}

// Value implements driver.Valuer, emitting the canonical string form.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}
