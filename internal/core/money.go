// Package core provides money parsing and formatting utilities.
//
// Amounts are whole Rupiah. Display strings use Indonesian grouping
// ("Rp 1.000.000"); input strings may carry the same dots.
package core

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a masked form value ("1.000.000") to an amount.
//
// Every non-digit is dropped, the way the input mask strips them while
// typing. A blank or zero result is ErrInvalidAmount.
//
// Examples:
//   ParseAmount("1.000.000") -> 1000000, nil
//   ParseAmount("Rp 25.500") -> 25500, nil
//   ParseAmount("0")         -> 0, ErrInvalidAmount
func ParseAmount(s string) (int64, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return 0, ErrInvalidAmount
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatRupiah renders n with dot thousands separators, optionally prefixed
// with "Rp ".
func FormatRupiah(n int64, withSymbol bool) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := groupThousands(strconv.FormatInt(n, 10))
	if withSymbol {
		s = "Rp " + s
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatRupiahDecimal rounds a fractional amount (averages, projections) to a
// whole Rupiah before formatting.
func FormatRupiahDecimal(d decimal.Decimal, withSymbol bool) string {
	return FormatRupiah(d.Round(0).IntPart(), withSymbol)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	pre := len(digits) % 3
	if pre > 0 {
		b.WriteString(digits[:pre])
	}
	for i := pre; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// String renders the amount with the currency symbol.
func (m Money) String() string {
	return FormatRupiah(m.Amount, true)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.Amount, 10)), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string; spreadsheet
// backed servers return either.
func (m *Money) UnmarshalJSON(b []byte) error {
	v, err := flexInt(b)
	if err != nil {
		return ErrInvalidAmount
	}
	m.Amount = v
	return nil
}

// flexInt decodes an integer sent as a number ("12", "12.0") or a string.
func flexInt(b []byte) (int64, error) {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return 0, err
	}
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case float64:
		return decimal.NewFromFloat(v).Round(0).IntPart(), nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return 0, err
		}
		return d.Round(0).IntPart(), nil
	default:
		return 0, strconv.ErrSyntax
	}
}
