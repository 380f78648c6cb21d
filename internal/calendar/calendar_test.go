package calendar

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestBusinessDaysFridayToTuesday(t *testing.T) {
	c := New(nil)
	// 2025-03-07 is a Friday.
	n, ok := c.BusinessDays(day(2025, 3, 7), day(2025, 3, 11))
	if !ok || n != 2 {
		t.Fatalf("got %d %v", n, ok)
	}
	n, _ = c.BusinessDays(day(2025, 3, 11), day(2025, 3, 7))
	if n != -2 {
		t.Fatalf("reverse got %d", n)
	}
}

func TestBusinessDaysSkipsHolidays(t *testing.T) {
	c := Colombia()
	// 2025-03-24 is San José (moved to Monday).
	n, ok := c.BusinessDays(day(2025, 3, 21), day(2025, 3, 26))
	if !ok || n != 2 {
		t.Fatalf("got %d %v", n, ok)
	}
	if !c.IsHoliday(*day(2026, 12, 25)) || c.IsBusinessDay(*day(2025, 4, 18)) {
		t.Fatal("expected holidays")
	}
}

func TestBusinessDaysNil(t *testing.T) {
	if _, ok := Colombia().BusinessDays(nil, day(2025, 1, 2)); ok {
		t.Fatal("nil start must be undefined")
	}
}

func TestAddBusinessDays(t *testing.T) {
	c := Colombia()
	// Saturday rolls to Tuesday 2025-03-25 (Monday is a holiday), then +1.
	got, ok := c.AddBusinessDays(day(2025, 3, 22), 1)
	if !ok || !got.Equal(*day(2025, 3, 26)) {
		t.Fatalf("got %v %v", got, ok)
	}
	got, _ = c.AddBusinessDays(day(2025, 3, 26), -2)
	if !got.Equal(*day(2025, 3, 21)) {
		t.Fatalf("backwards got %v", got)
	}
	got, _ = c.AddBusinessDays(day(2025, 3, 26), 0)
	if !got.Equal(*day(2025, 3, 26)) {
		t.Fatalf("zero got %v", got)
	}
}

func TestDueWithin(t *testing.T) {
	c := New(nil)
	now := day(2025, 3, 7)
	if due, ok := c.DueWithin(now, day(2025, 3, 11), 2); !ok || !due {
		t.Fatal("expected due within 2 business days")
	}
	if due, _ := c.DueWithin(now, day(2025, 3, 14), 2); due {
		t.Fatal("not due within 2 business days")
	}
}

func TestParseHolidays(t *testing.T) {
	extra, err := ParseHolidays([]byte("holidays:\n  2027: [\"2027-01-01\", \"2027-01-11\"]\n"))
	if err != nil {
		t.Fatal(err)
	}
	c := Colombia().With(extra)
	if !c.IsHoliday(*day(2027, 1, 11)) {
		t.Fatal("extra holiday missing")
	}
	if _, err := ParseHolidays([]byte("holidays:\n  2027: [\"2026-01-01\"]\n")); err == nil {
		t.Fatal("expected year mismatch error")
	}
}
