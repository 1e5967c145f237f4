package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxUnits keeps units*100 inside int64.
const maxUnits = math.MaxInt64/100 - 1

// ParseAmount converts a decimal string in major units to cents. Both "."
// and "," are accepted as the decimal separator and the third fractional
// digit rounds half up, so "12.345" is 1235. Signs, grouping separators and
// a second separator are rejected. Zero parses; positivity is checked by
// Validate.
func ParseAmount(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	units, frac, _ := strings.Cut(s, ".")
	if units == "" && frac == "" {
		return 0, ErrInvalidAmount
	}
	if units == "" {
		units = "0"
	}
	if !digits(units) || !digits(frac) {
		return 0, ErrInvalidAmount
	}
	n, err := strconv.ParseInt(units, 10, 64)
	if err != nil || n > maxUnits {
		return 0, ErrInvalidAmount
	}

	frac += "000"
	cents := n*100 + int64(frac[0]-'0')*10 + int64(frac[1]-'0')
	if frac[2] >= '5' {
		cents++
	}
	return cents, nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String formats the amount with two decimals, e.g. "1234.50".
func (m Money) String() string {
	sign := ""
	c := m.Cents
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// MarshalJSON writes the amount in cents.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Cents)
}

// UnmarshalJSON reads an integer number of cents, or a decimal string in
// major units such as "12.50" as typed into a form.
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		cents, err := ParseAmount(s)
		if err != nil {
			return fmt.Errorf("amount %q: %w", s, err)
		}
		m.Cents = cents
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	return json.Unmarshal(b, &m.Cents)
}

// RoundCents rounds a fractional cent value half away from zero.
func RoundCents(v float64) int64 {
	return int64(math.Round(v))
}
