package marketplace

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const defaultCurrency = "USD"

var (
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
	minInt64 = decimal.NewFromInt(math.MinInt64)
)

func normalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return defaultCurrency
	}
	return code
}

// MinorUnitScale returns the number of decimal places in a currency's minor unit
// (2 for USD, 0 for JPY).
func MinorUnitScale(code string) (int32, error) {
	unit, err := currency.ParseISO(normalizeCurrency(code))
	if err != nil {
		return 0, fmt.Errorf("unknown currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale), nil
}

// ParseMinorUnits converts a provider amount string such as "123.45" into
// integer minor units (12345 for USD) using exact decimal arithmetic. Amounts
// finer than the minor unit are rounded half away from zero. An empty amount
// is zero. Amounts that do not fit in an int64 are rejected.
func ParseMinorUnits(amount, code string) (int64, error) {
	amount = strings.TrimSpace(strings.ReplaceAll(amount, ",", ""))
	if amount == "" {
		return 0, nil
	}
	scale, err := MinorUnitScale(code)
	if err != nil {
		return 0, err
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	minor, err := toInt64(value.Shift(scale))
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", amount, err)
	}
	return minor, nil
}

// toInt64 rounds d half away from zero and returns it as an int64.
// IntPart wraps on overflow, so the range is checked first.
func toInt64(d decimal.Decimal) (int64, error) {
	rounded := d.Round(0)
	if rounded.GreaterThan(maxInt64) || rounded.LessThan(minInt64) {
		return 0, fmt.Errorf("value %s out of int64 range", rounded.String())
	}
	return rounded.IntPart(), nil
}
