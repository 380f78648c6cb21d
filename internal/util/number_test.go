package util

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimalLatAm(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"1.234,56", "1234.56"},
		{"$ 999,00", "999"},
		{"  80", "80"},
		{"(1.500,00)", "-1500"},
		{"-250", "-250"},
		{"250-", "-250"},
		{" 1.000.000", "1000000"},
		{float64(12.5), "12.5"},
		{3, "3"},
	}
	for _, c := range cases {
		got, ok := ParseDecimal(c.in, LocaleLatAm)
		if !ok {
			t.Fatalf("ParseDecimal(%q) not ok", c.in)
		}
		if !got.Equal(decimal.RequireFromString(c.want)) {
			t.Fatalf("ParseDecimal(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestParseDecimalOtherLocales(t *testing.T) {
	got, ok := ParseDecimal("1,234.56", LocaleUS)
	if !ok || !got.Equal(decimal.RequireFromString("1234.56")) {
		t.Fatalf("us: %s %v", got, ok)
	}
	got, ok = ParseDecimal("1.234,5", LocaleAuto)
	if !ok || !got.Equal(decimal.RequireFromString("1234.5")) {
		t.Fatalf("auto comma: %s %v", got, ok)
	}
	got, ok = ParseDecimal("1,234.5", LocaleAuto)
	if !ok || !got.Equal(decimal.RequireFromString("1234.5")) {
		t.Fatalf("auto dot: %s %v", got, ok)
	}
}

func TestParseDecimalRejects(t *testing.T) {
	for _, in := range []any{nil, "", "nan", "abc", "1-2", "#N/A"} {
		if _, ok := ParseDecimal(in, LocaleLatAm); ok {
			t.Fatalf("expected %q to be rejected", in)
		}
	}
}

func TestParseLocale(t *testing.T) {
	if ParseLocale("US") != LocaleUS || ParseLocale("auto") != LocaleAuto || ParseLocale("") != LocaleLatAm {
		t.Fatal("unexpected locale mapping")
	}
}
