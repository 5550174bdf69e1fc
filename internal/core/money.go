// Package core provides the board domain: money handling, installment
// splitting, transfers and board-order reconciliation.
//
// All amounts are carried as integer cents. Arithmetic happens in the
// integer domain; shopspring/decimal is used only at the text boundary.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in cents (minor units).
type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ParseAmountToCents converts human-entered amount text to cents.
//
// Both "." and "," are accepted. When both appear, the one appearing last
// in the string is the decimal separator and the other is stripped as a
// thousands separator; when only one appears it is the decimal separator.
// At most two fractional digits are accepted; a third digit fails with
// ErrTooManyDecimals rather than the generic ErrInvalidAmount.
//
// Examples:
//
//	ParseAmountToCents("500")      -> 50000, nil
//	ParseAmountToCents("500,00")   -> 50000, nil
//	ParseAmountToCents("1.234,56") -> 123456, nil
//	ParseAmountToCents("1234.56")  -> 123456, nil
func ParseAmountToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Amounts are unsigned; direction is carried by the operation.
		return 0, ErrInvalidAmount
	}

	normalized, err := normalizeSeparators(s)
	if err != nil {
		return 0, err
	}

	intPart, fracPart, err := splitAmountParts(normalized)
	if err != nil {
		return 0, err
	}
	if len(fracPart) > 2 {
		return 0, ErrTooManyDecimals
	}
	// Pad a missing or single-digit fraction to two digits.
	for len(fracPart) < 2 {
		fracPart += "0"
	}

	d, err := decimal.NewFromString(intPart + "." + fracPart)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	if !cents.IsInteger() || cents.IsNegative() {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// normalizeSeparators rewrites s so that "." is the decimal separator and
// no thousands separators remain.
func normalizeSeparators(s string) (string, error) {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		// The separator appearing last is the decimal one.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	// A repeated decimal separator is malformed, e.g. "1.2.3".
	if strings.Count(s, ".") > 1 || strings.Contains(s, ",") {
		return "", ErrInvalidAmount
	}
	return s, nil
}

// splitAmountParts checks the "digits, optional point, optional fraction"
// shape and returns both parts.
func splitAmountParts(s string) (string, string, error) {
	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		return "", "", ErrInvalidAmount
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return "", "", ErrInvalidAmount
	}
	return intPart, fracPart, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatCents renders cents as a pt-BR currency string with exactly two
// fractional digits, e.g. 123456 -> "R$ 1.234,56". It never fails.
func FormatCents(cents int64) string {
	d := decimal.New(cents, -2)
	fixed := d.Abs().StringFixed(2) // "1234.56"
	intPart := fixed[:len(fixed)-3]
	fracPart := fixed[len(fixed)-2:]

	var b strings.Builder
	b.WriteString("R$ ")
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(fracPart)
	return b.String()
}
