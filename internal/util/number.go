package util

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

type Locale string

const (
	// LocaleLatAm reads "1.234,56": dots group thousands, the comma is decimal.
	LocaleLatAm Locale = "latam"
	// LocaleUS reads "1,234.56".
	LocaleUS Locale = "us"
	// LocaleAuto takes the rightmost of ',' and '.' as the decimal separator.
	LocaleAuto Locale = "auto"
)

var reNotNumeric = regexp.MustCompile(`[^0-9.,\-]`)

func ParseLocale(value string) Locale {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "us", "en", "en-us":
		return LocaleUS
	case "auto":
		return LocaleAuto
	default:
		return LocaleLatAm
	}
}

// ParseDecimal coerces a cell into a decimal. Typed numeric cells are taken
// as-is; text goes through currency/space stripping and the locale's
// separator rules. ok is false when nothing numeric remains.
func ParseDecimal(v any, locale Locale) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, false
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case string:
		return parseDecimalText(t, locale)
	default:
		return parseDecimalText(CellString(t), locale)
	}
}

func parseDecimalText(raw string, locale Locale) (decimal.Decimal, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "\u00A0", " "))
	if IsBlankText(s) {
		return decimal.Zero, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = reNotNumeric.ReplaceAllString(s, "")
	if strings.HasSuffix(s, "-") {
		negative = !negative
		s = strings.TrimSuffix(s, "-")
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimPrefix(s, "-")
	}
	if strings.Contains(s, "-") {
		return decimal.Zero, false
	}

	s = normalizeSeparators(s, locale)
	if s == "" || s == "." {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

func normalizeSeparators(s string, locale Locale) string {
	switch locale {
	case LocaleUS:
		return strings.ReplaceAll(s, ",", "")
	case LocaleAuto:
		lastComma := strings.LastIndex(s, ",")
		lastDot := strings.LastIndex(s, ".")
		if lastComma < 0 && lastDot < 0 {
			return s
		}
		if lastComma > lastDot {
			return strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
		}
		return strings.ReplaceAll(s, ",", "")
	default:
		return strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
	}
}
