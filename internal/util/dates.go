package util

import (
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var dayFirstLayouts = []string{
	"2/1/2006",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"2/1/2006 3:04:05 PM",
}

var fallbackLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006/01/02 15:04:05",
	"2.1.2006",
	"2-1-2006",
	"2-1-06",
	"2/1/06",
	"2-Jan-2006",
	"2-Jan-06",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"20060102",
}

// ParseDayFirst accepts typed date cells and dd/mm/yyyy text.
func ParseDayFirst(v any) (*time.Time, bool) {
	return parseDate(v, dayFirstLayouts)
}

// ParseAnyDate is the unrestricted pass used when most values in a column
// fail the day-first pass.
func ParseAnyDate(v any) (*time.Time, bool) {
	if t, ok := parseDate(v, dayFirstLayouts); ok {
		return t, ok
	}
	return parseDate(v, fallbackLayouts)
}

// ParseDateColumn parses a whole column day-first and retries every value
// with the unrestricted layouts when more than half of the column fails.
func ParseDateColumn(values []any) ([]*time.Time, bool) {
	out := make([]*time.Time, len(values))
	failed := 0
	for i, v := range values {
		t, ok := ParseDayFirst(v)
		if !ok {
			failed++
			continue
		}
		out[i] = t
	}
	if len(values) == 0 || float64(failed) <= float64(len(values))*0.5 {
		return out, false
	}
	for i, v := range values {
		if out[i] != nil {
			continue
		}
		if t, ok := ParseAnyDate(v); ok {
			out[i] = t
		}
	}
	return out, true
}

func parseDate(v any, layouts []string) (*time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case time.Time:
		if t.IsZero() {
			return nil, false
		}
		d := civil(t)
		return &d, true
	case float64:
		return fromSerial(t)
	case int:
		return fromSerial(float64(t))
	case string:
		s := strings.TrimSpace(t)
		if IsBlankText(s) {
			return nil, false
		}
		for _, layout := range layouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				d := civil(parsed)
				return &d, true
			}
		}
	}
	return nil, false
}

func fromSerial(serial float64) (*time.Time, bool) {
	// 1 = 1900-01-01, 2958465 = 9999-12-31
	if serial < 1 || serial > 2958465 {
		return nil, false
	}
	parsed, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return nil, false
	}
	d := civil(parsed)
	return &d, true
}

// civil drops the clock and location; the pipeline works with calendar dates.
func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
