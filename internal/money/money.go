package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Money represents a monetary value stored in minor units (cents).
type Money int64

// Bps represents a rate in basis points (1% == 100 bps).
type Bps int64

// ErrPrecision is returned when a value carries more than two decimal places.
var ErrPrecision = errors.New("money: more than two decimal places")

// Parse converts a decimal string such as "800", "799.5" or "12000.00" into
// minor units. Values finer than the currency precision are rejected rather
// than rounded so configuration mistakes surface at load time.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("money: empty value")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("money: parse %q: %w", s, err)
	}
	var minor int64
	if frac != "" {
		if len(frac) > 2 {
			return 0, fmt.Errorf("%w: %q", ErrPrecision, s)
		}
		for len(frac) < 2 {
			frac += "0"
		}
		minor, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("money: parse %q: %w", s, err)
		}
	}
	value := major*100 + minor
	if neg {
		value = -value
	}
	return Money(value), nil
}

// ParseBps converts a percentage such as "5" or "2.25" into basis points.
// Rates finer than 0.01% are rejected.
func ParseBps(s string) (Bps, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("money: empty rate")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("money: parse rate %q: %w", s, err)
	}
	var minor int64
	if frac != "" {
		if len(frac) > 2 {
			return 0, fmt.Errorf("money: rate %q finer than 0.01%%", s)
		}
		for len(frac) < 2 {
			frac += "0"
		}
		minor, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("money: parse rate %q: %w", s, err)
		}
	}
	return Bps(major*100 + minor), nil
}

// MulQty scales the amount by an item quantity.
func (m Money) MulQty(qty int) Money {
	return m * Money(qty)
}

// ApplyBps applies a basis-point rate to the amount, rounding half-up to the
// nearest minor unit. The arithmetic is pure int64 so repeated runs are
// bit-identical.
func (m Money) ApplyBps(rate Bps) Money {
	if m <= 0 || rate <= 0 {
		return 0
	}
	return Money((int64(m)*int64(rate) + 5000) / 10000)
}

// String renders the amount in major units with two decimal places.
func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON renders the amount as a plain JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both integer and decimal JSON numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		return errors.New("money: null amount")
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Min returns the smaller of two rates.
func Min(a, b Bps) Bps {
	if a < b {
		return a
	}
	return b
}
