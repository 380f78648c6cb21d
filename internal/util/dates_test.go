package util

import (
	"testing"
	"time"
)

func TestParseDayFirst(t *testing.T) {
	got, ok := ParseDayFirst("03/02/2025")
	if !ok || got.Month() != time.February || got.Day() != 3 {
		t.Fatalf("got %v %v", got, ok)
	}
	got, ok = ParseDayFirst("3/2/2025 14:30")
	if !ok || got.Month() != time.February || got.Day() != 3 {
		t.Fatalf("got %v %v", got, ok)
	}
	if _, ok := ParseDayFirst("2025-02-03"); ok {
		t.Fatal("ISO text should fail the day-first pass")
	}
}

func TestParseDayFirstTypedCells(t *testing.T) {
	// 45658 = 2025-01-01
	got, ok := ParseDayFirst(float64(45658))
	if !ok || got.Year() != 2025 || got.Month() != time.January || got.Day() != 1 {
		t.Fatalf("serial: %v %v", got, ok)
	}
	in := time.Date(2024, 5, 6, 13, 0, 0, 0, time.Local)
	got, ok = ParseDayFirst(in)
	if !ok || got.Hour() != 0 || got.Day() != 6 {
		t.Fatalf("time: %v %v", got, ok)
	}
}

func TestParseDateColumnFallback(t *testing.T) {
	values := []any{"2025-01-10", "2025-01-11", "13/01/2025"}
	got, fallback := ParseDateColumn(values)
	if !fallback {
		t.Fatal("expected fallback pass")
	}
	for i, d := range got {
		if d == nil {
			t.Fatalf("value %d not parsed", i)
		}
	}

	values = []any{"10/01/2025", "11/01/2025", "garbage"}
	got, fallback = ParseDateColumn(values)
	if fallback {
		t.Fatal("unexpected fallback")
	}
	if got[2] != nil {
		t.Fatal("garbage should stay nil")
	}
}
