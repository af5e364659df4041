// Package core holds the bill domain model: calendar dates, money,
// recurrence expansion and status derivation. Everything here is pure; all
// I/O lives behind the store adapters.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Money is a monetary amount in centavos. Arithmetic stays in integer cents;
// float conversion exists only for display.
type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Reais returns the major-unit value as a float64 for display purposes only.
func (m Money) Reais() float64 {
	return float64(m.Cents) / 100.0
}

// FormatBRL renders the amount as "R$ 1.234,56".
func (m Money) FormatBRL() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	intPart := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "R$ " + b.String() + "," + pad2(cents%100)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// ParseMoney converts externally sourced amount spellings to cents. It
// accepts currency prefixes and both locale conventions:
//
//	"R$ 1.234,56" -> 123456   (pt-BR: dot thousands, comma decimal)
//	"1,234.56"    -> 123456   (en-US: comma thousands, dot decimal)
//	"1234,56"     -> 123456
//	"1234.56"     -> 123456
//	"1234"        -> 123400
//
// The third decimal digit rounds half-up. Negative and empty values are
// rejected; this is a parsing boundary for adapters, validation of business
// rules (amount > 0) happens in BillDraft.Validate.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// pt-BR: "." thousands, "," decimal
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// en-US: "," thousands, "." decimal
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		s = strings.Replace(s, ",", ".", 1)
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return Money{}, ErrInvalidAmount
	}

	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	return Money{Cents: iv*100 + frac}, nil
}
