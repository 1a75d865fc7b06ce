// Package money provides the decimal amount type used for every monetary
// field in the chit ledger.
//
// Amounts are stored in MongoDB as Decimal128 so aggregation pipelines can do
// exact arithmetic on them. Older documents written with int32/int64/double
// values are still readable.
package money

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Amount is a non-floating monetary value.
type Amount struct {
	decimal.Decimal
}

var (
	// ErrTooPrecise means the amount has fractions of a paisa.
	ErrTooPrecise = errors.New("amount has more than two decimal places")
	// ErrOutOfRange means the amount has too many digits for Decimal128.
	ErrOutOfRange = errors.New("amount is too large to store")
)

// Zero is the zero amount.
var Zero = Amount{decimal.Zero}

// New wraps a decimal.Decimal.
func New(d decimal.Decimal) Amount { return Amount{d} }

// FromInt returns an Amount for a whole number of currency units.
func FromInt(v int64) Amount { return Amount{decimal.NewFromInt(v)} }

// FromFloat converts a float64. Only use at system edges (tests, config).
func FromFloat(v float64) Amount { return Amount{decimal.NewFromFloat(v)} }

// Parse parses a decimal string such as "5000" or "2500.50".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount{d}, nil
}

// MustParse is Parse that panics on error. Intended for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Add(b Amount) Amount { return Amount{a.Decimal.Add(b.Decimal)} }
func (a Amount) Sub(b Amount) Amount { return Amount{a.Decimal.Sub(b.Decimal)} }

// MulInt multiplies by an integer count (e.g. slots).
func (a Amount) MulInt(n int) Amount { return Amount{a.Decimal.Mul(decimal.NewFromInt(int64(n)))} }

// Percent returns p percent of a, rounded to 2 places.
func (a Amount) Percent(p decimal.Decimal) Amount {
	return Amount{a.Decimal.Mul(p).Div(decimal.NewFromInt(100)).Round(2)}
}

// NonNegative clamps negative values to zero.
func (a Amount) NonNegative() Amount {
	if a.Decimal.IsNegative() {
		return Zero
	}
	return a
}

// Max returns the larger of a and b.
func Max(a, b Amount) Amount {
	if a.Decimal.GreaterThanOrEqual(b.Decimal) {
		return a
	}
	return b
}

// Check reports whether the amount can be recorded: at most two decimal
// places and within Decimal128's 34 significant digits.
func (a Amount) Check() error {
	if !a.Decimal.Equal(a.Decimal.Round(2)) {
		return ErrTooPrecise
	}
	if _, err := primitive.ParseDecimal128(a.Decimal.String()); err != nil {
		return ErrOutOfRange
	}
	return nil
}

// Format renders the amount with two decimals, e.g. "5000.00".
func (a Amount) Format() string { return a.Decimal.StringFixed(2) }

// MarshalBSONValue stores the amount as Decimal128.
func (a Amount) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d, err := primitive.ParseDecimal128(a.Decimal.String())
	if err != nil {
		return 0, nil, fmt.Errorf("amount to decimal128: %w", err)
	}
	return bson.MarshalValue(d)
}

// UnmarshalBSONValue accepts Decimal128, double, int32, int64, string and null.
func (a *Amount) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Decimal128:
		d, err := decimal.NewFromString(rv.Decimal128().String())
		if err != nil {
			return fmt.Errorf("decimal128 to amount: %w", err)
		}
		a.Decimal = d
	case bsontype.Double:
		a.Decimal = decimal.NewFromFloat(rv.Double())
	case bsontype.Int32:
		a.Decimal = decimal.NewFromInt(int64(rv.Int32()))
	case bsontype.Int64:
		a.Decimal = decimal.NewFromInt(rv.Int64())
	case bsontype.String:
		d, err := decimal.NewFromString(rv.StringValue())
		if err != nil {
			return fmt.Errorf("string to amount: %w", err)
		}
		a.Decimal = d
	case bsontype.Null, bsontype.Undefined:
		a.Decimal = decimal.Zero
	default:
		return fmt.Errorf("cannot decode %s into money.Amount", t)
	}
	return nil
}

// MarshalJSON renders the amount as a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted decimal strings.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := json.Unmarshal(b, &d); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	a.Decimal = d
	return nil
}
