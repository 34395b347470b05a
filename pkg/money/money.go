// Package money holds exact decimal amounts. Values are never converted to
// binary floating point; JSON uses the wrapped form {"$numberDecimal":"199.00"}.
package money

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const scale = 2

type Money struct {
	d decimal.Decimal
}

var Zero = Money{}

// Parse reads a decimal amount and rounds it half away from zero to two
// fractional digits, the same way a NUMERIC(12,2) column stores it.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Money{d: d.Round(scale)}, nil
}

// MustParse is for constants and tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

func (m Money) Mul(qty int) Money { return Money{d: m.d.Mul(decimal.NewFromInt(int64(qty)))} }

func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

func (m Money) IsPositive() bool { return m.d.IsPositive() }

func (m Money) IsNegative() bool { return m.d.IsNegative() }

// String renders the amount with two fractional digits, e.g. "597.00".
func (m Money) String() string { return m.d.StringFixed(scale) }

type wireDecimal struct {
	NumberDecimal string `json:"$numberDecimal"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireDecimal{NumberDecimal: m.String()})
}

// UnmarshalJSON accepts the wrapped object, a JSON string, or a JSON number.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = Money{}
		return nil
	}

	var raw string
	switch data[0] {
	case '{':
		var w wireDecimal
		if err := json.Unmarshal(data, &w); err != nil {
			return fmt.Errorf("decode decimal object: %w", err)
		}
		raw = w.NumberDecimal
	case '"':
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode decimal string: %w", err)
		}
	default:
		raw = string(data)
	}

	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
