package calendar

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

type civilDate struct {
	y int
	m time.Month
	d int
}

func toCivil(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{y, m, d}
}

// Calendar counts Monday to Friday days that are not holidays. It is
// immutable once built.
type Calendar struct {
	holidays map[civilDate]struct{}
}

func New(holidays []time.Time) *Calendar {
	c := &Calendar{holidays: make(map[civilDate]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[toCivil(h)] = struct{}{}
	}
	return c
}

// Colombia returns the calendar with the bundled 2024-2026 holidays.
func Colombia() *Calendar {
	return New(colombiaHolidays())
}

// With returns a copy of c extended with more holidays.
func (c *Calendar) With(holidays []time.Time) *Calendar {
	out := &Calendar{holidays: make(map[civilDate]struct{}, len(c.holidays)+len(holidays))}
	for k := range c.holidays {
		out.holidays[k] = struct{}{}
	}
	for _, h := range holidays {
		out.holidays[toCivil(h)] = struct{}{}
	}
	return out
}

func (c *Calendar) IsHoliday(t time.Time) bool {
	_, ok := c.holidays[toCivil(t)]
	return ok
}

func (c *Calendar) IsBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.IsHoliday(t)
}

// BusinessDays counts business days in [start, end). The count is negative
// when end precedes start. ok is false when either date is missing.
func (c *Calendar) BusinessDays(start, end *time.Time) (int, bool) {
	if start == nil || end == nil {
		return 0, false
	}
	from := civil(*start)
	to := civil(*end)
	sign := 1
	if to.Before(from) {
		from, to = to, from
		sign = -1
	}
	n := 0
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		if c.IsBusinessDay(d) {
			n++
		}
	}
	return sign * n, true
}

// AddBusinessDays rolls a non-business start forward to the next business
// day, then advances n business days (backwards when n is negative).
func (c *Calendar) AddBusinessDays(start *time.Time, n int) (time.Time, bool) {
	if start == nil {
		return time.Time{}, false
	}
	d := civil(*start)
	for !c.IsBusinessDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	for n > 0 {
		d = d.AddDate(0, 0, step)
		if c.IsBusinessDay(d) {
			n--
		}
	}
	return d, true
}

// DueWithin reports whether due falls between now and n business days
// after now. Past due dates are included.
func (c *Calendar) DueWithin(now, due *time.Time, n int) (bool, bool) {
	days, ok := c.BusinessDays(now, due)
	if !ok {
		return false, false
	}
	return days <= n, true
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type holidayFile struct {
	Holidays map[int][]string `yaml:"holidays"`
}

// LoadHolidays reads extra holidays from a YAML file shaped as
//
//	holidays:
//	  2027: ["2027-01-01", "2027-01-11"]
func LoadHolidays(path string) ([]time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read holidays: %w", err)
	}
	return ParseHolidays(data)
}

func ParseHolidays(data []byte) ([]time.Time, error) {
	var file holidayFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse holidays: %w", err)
	}
	var out []time.Time
	for year, dates := range file.Holidays {
		for _, raw := range dates {
			t, err := time.Parse(dateLayout, raw)
			if err != nil {
				return nil, fmt.Errorf("holiday %q: %w", raw, err)
			}
			if t.Year() != year {
				return nil, fmt.Errorf("holiday %s listed under %d", raw, year)
			}
			out = append(out, t)
		}
	}
	return out, nil
}

// Load returns the Colombian calendar plus the holidays in path, when set.
func Load(path string) (*Calendar, error) {
	c := Colombia()
	if path == "" {
		return c, nil
	}
	extra, err := LoadHolidays(path)
	if err != nil {
		return c, err
	}
	return c.With(extra), nil
}
