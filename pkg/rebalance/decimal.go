package rebalance

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RoundingMode selects how RoundDecimal resolves discarded digits.
type RoundingMode string

const (
	RoundUp        RoundingMode = "UP"   // away from zero
	RoundDown      RoundingMode = "DOWN" // toward zero
	RoundCeil      RoundingMode = "CEIL"
	RoundFloor     RoundingMode = "FLOOR"
	RoundHalfUp    RoundingMode = "HALF_UP"
	RoundHalfDown  RoundingMode = "HALF_DOWN"
	RoundHalfEven  RoundingMode = "HALF_EVEN"
	RoundHalfCeil  RoundingMode = "HALF_CEIL"
	RoundHalfFloor RoundingMode = "HALF_FLOOR"
)

var oneHundred = decimal.NewFromInt(100)

// ParseDecimal converts a string, integer, float, or decimal into a
// decimal.Decimal. String inputs may carry a leading sign and exponent
// notation ("+1e3" parses to 1000). Non-numeric input fails with
// INVALID_DECIMAL.
func ParseDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return decimal.Zero, NewError(ErrCodeInvalidDecimal, "empty decimal string")
		}
		d, err := decimal.NewFromString(trimmed)
		if err != nil {
			return decimal.Zero, WrapError(ErrCodeInvalidDecimal, "invalid decimal string "+trimmed, err)
		}
		return d, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	default:
		return decimal.Zero, Errorf(ErrCodeInvalidDecimal, "unsupported decimal input type %T", value)
	}
}

// SumDecimals folds addition over the operands.
func SumDecimals(first decimal.Decimal, rest ...decimal.Decimal) decimal.Decimal {
	result := first
	for _, d := range rest {
		result = result.Add(d)
	}
	return result
}

// SubDecimals folds subtraction left to right.
func SubDecimals(first decimal.Decimal, rest ...decimal.Decimal) decimal.Decimal {
	result := first
	for _, d := range rest {
		result = result.Sub(d)
	}
	return result
}

// MulDecimals folds multiplication over the operands.
func MulDecimals(first decimal.Decimal, rest ...decimal.Decimal) decimal.Decimal {
	result := first
	for _, d := range rest {
		result = result.Mul(d)
	}
	return result
}

// DivDecimals folds division left to right. Any zero divisor fails with
// DIVISION_BY_ZERO.
func DivDecimals(first decimal.Decimal, rest ...decimal.Decimal) (decimal.Decimal, error) {
	result := first
	for _, d := range rest {
		if d.IsZero() {
			return decimal.Zero, NewError(ErrCodeDivisionByZero, "division by zero")
		}
		result = result.Div(d)
	}
	return result, nil
}

// CompareDecimals returns -1, 0, or 1.
func CompareDecimals(a, b decimal.Decimal) int {
	return a.Cmp(b)
}

// MaxDecimal returns the largest of a non-empty list.
func MaxDecimal(values ...decimal.Decimal) (decimal.Decimal, error) {
	if len(values) == 0 {
		return decimal.Zero, NewError(ErrCodeInvalidInput, "max of empty list")
	}
	result := values[0]
	for _, d := range values[1:] {
		if d.GreaterThan(result) {
			result = d
		}
	}
	return result, nil
}

// MinDecimal returns the smallest of a non-empty list.
func MinDecimal(values ...decimal.Decimal) (decimal.Decimal, error) {
	if len(values) == 0 {
		return decimal.Zero, NewError(ErrCodeInvalidInput, "min of empty list")
	}
	result := values[0]
	for _, d := range values[1:] {
		if d.LessThan(result) {
			result = d
		}
	}
	return result, nil
}

// IsPositiveDecimal reports d > 0, or d >= 0 when includeZero is set.
func IsPositiveDecimal(d decimal.Decimal, includeZero bool) bool {
	if includeZero && d.IsZero() {
		return true
	}
	return d.IsPositive()
}

// IsNegativeDecimal reports d < 0, or d <= 0 when includeZero is set.
func IsNegativeDecimal(d decimal.Decimal, includeZero bool) bool {
	if includeZero && d.IsZero() {
		return true
	}
	return d.IsNegative()
}

// RoundDecimal rounds d to the given number of decimal places using mode.
// An unrecognized mode fails with INVALID_INPUT.
func RoundDecimal(d decimal.Decimal, places int32, mode RoundingMode) (decimal.Decimal, error) {
	switch mode {
	case RoundUp:
		return d.RoundUp(places), nil
	case RoundDown:
		return d.RoundDown(places), nil
	case RoundCeil:
		return d.RoundCeil(places), nil
	case RoundFloor:
		return d.RoundFloor(places), nil
	case RoundHalfUp, "":
		return d.Round(places), nil
	case RoundHalfEven:
		return d.RoundBank(places), nil
	case RoundHalfDown:
		if isExactHalf(d, places) {
			return d.RoundDown(places), nil
		}
		return d.Round(places), nil
	case RoundHalfCeil:
		if isExactHalf(d, places) {
			return d.RoundCeil(places), nil
		}
		return d.Round(places), nil
	case RoundHalfFloor:
		if isExactHalf(d, places) {
			return d.RoundFloor(places), nil
		}
		return d.Round(places), nil
	default:
		return decimal.Zero, Errorf(ErrCodeInvalidInput, "unknown rounding mode %q", mode)
	}
}

// isExactHalf reports whether the first discarded digit is exactly 5 with
// nothing after it, i.e. the value sits exactly between two rounding steps.
func isExactHalf(d decimal.Decimal, places int32) bool {
	shifted := d.Shift(places)
	frac := shifted.Sub(shifted.Truncate(0)).Abs()
	return frac.Equal(decimal.New(5, -1))
}

// FormatOptions controls FormatDecimal output.
type FormatOptions struct {
	// DecimalPlaces fixes the fraction length when non-nil.
	DecimalPlaces *int32
	// RoundingMode applies when DecimalPlaces is set; defaults to HALF_UP.
	RoundingMode RoundingMode
	// TrimTrailingZeros strips trailing fractional zeros after formatting.
	TrimTrailingZeros bool
}

// FormatDecimal renders d without exponent notation.
func FormatDecimal(d decimal.Decimal, opts FormatOptions) (string, error) {
	if opts.DecimalPlaces == nil {
		s := d.String()
		if opts.TrimTrailingZeros {
			return trimTrailingZeros(s), nil
		}
		return s, nil
	}
	places := *opts.DecimalPlaces
	if places < 0 {
		return "", NewError(ErrCodeInvalidInput, "decimal places must be non-negative")
	}
	rounded, err := RoundDecimal(d, places, opts.RoundingMode)
	if err != nil {
		return "", err
	}
	s := rounded.StringFixed(places)
	if opts.TrimTrailingZeros {
		return trimTrailingZeros(s), nil
	}
	return s, nil
}

func trimTrailingZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
