package util

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reNonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	reSpaces  = regexp.MustCompile(`\s+`)

	titleCaser = cases.Title(language.Spanish)
)

// FoldAccents decomposes the input and drops combining marks, so "Bogotá"
// becomes "Bogota" and "ñ" becomes "n".
func FoldAccents(input string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, input)
	if err != nil {
		return input
	}
	return out
}

func CollapseSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// NormalizeTitle is the comparison form used by the title matcher.
func NormalizeTitle(input string) string {
	s := strings.ToLower(input)
	s = FoldAccents(s)
	s = reNonWord.ReplaceAllString(s, " ")
	return CollapseSpaces(s)
}

// NormalizeColumn is the comparison form of a raw column header.
func NormalizeColumn(input string) string {
	return CollapseSpaces(strings.ToUpper(strings.ReplaceAll(input, "\u00A0", " ")))
}

// NormalizeKey is the comparison form of join keys and catalog codes.
func NormalizeKey(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}

// UpperFolded upper-cases and strips accents, for substring rules over
// free text ("ÉXITO" and "EXITO" compare equal).
func UpperFolded(input string) string {
	return strings.ToUpper(FoldAccents(CollapseSpaces(input)))
}

func TitleCase(input string) string {
	return titleCaser.String(strings.ToLower(CollapseSpaces(input)))
}

// CellString renders a grid cell as trimmed text. Whole floats print without
// a fractional part so that invoice numbers read from numeric cells ("1001")
// compare equal to the same numbers read as text.
func CellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return ""
		}
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// IsBlankText reports values that spreadsheets use for "no data".
func IsBlankText(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NAN", "NONE", "NULL", "#N/A", "#N/D", "N/D", "NAT":
		return true
	}
	return false
}
