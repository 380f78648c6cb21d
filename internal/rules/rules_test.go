package rules

import (
	"testing"

	"ledgerrecon/internal"
)

func TestColumnRuleMatches(t *testing.T) {
	cols := DefaultColumnRules()
	find := func(header string) internal.Field {
		for _, r := range cols {
			if r.Matches(header) {
				return r.Field
			}
		}
		return ""
	}
	cases := map[string]internal.Field{
		"REFERENCIA":     internal.FieldReference,
		"VAL.ENTREGA":    internal.FieldAmount,
		"GRAVADAS IVA":   internal.FieldAmount,
		"CANT.ENTREGA":   internal.FieldQuantity,
		"VEND":           internal.FieldSellerCode,
		"VENDEDOR":       "",
		"C MP. CR":       internal.FieldCrossRef,
		"NRO. CRUCE":     internal.FieldJoinKey,
		"FECHA":          internal.FieldDate,
		"FECHA DESPACHO": "",
		"COMPROBA":       internal.FieldCounterpartyCode,
	}
	for header, want := range cases {
		if got := find(header); got != want {
			t.Fatalf("%s: got %q want %q", header, got, want)
		}
	}
}

func TestFalabellaOverride(t *testing.T) {
	r := DefaultOverrides()[0]
	if !r.Applies("z-082 ", "") || !r.Applies("Z-999", "Falabella de Colombia") || r.Applies("Z-001", "Homecenter") {
		t.Fatal("unexpected predicate")
	}
	if got, ok := r.Resolve("S-1002"); !ok || got != "Falabella Verde" {
		t.Fatalf("got %q %v", got, ok)
	}
	if got, ok := r.Resolve(" f-77"); !ok || got != "Falabella" {
		t.Fatalf("got %q %v", got, ok)
	}
	if _, ok := r.Resolve("X-1"); ok {
		t.Fatal("X should not resolve")
	}
}

func TestCanonicalLabel(t *testing.T) {
	if got := CanonicalLabel(DefaultLabels(), "PARTICULAR"); got != Particular {
		t.Fatalf("got %q", got)
	}
	if got := CanonicalLabel(DefaultLabels(), "ÉXITO-EMPLEA"); got != "Éxito-Emplea" {
		t.Fatalf("got %q", got)
	}
}

func TestSortOverridesStable(t *testing.T) {
	in := []OverrideRule{{Name: "a", Priority: 1}, {Name: "b", Priority: 5}, {Name: "c", Priority: 1}}
	out := SortOverrides(in)
	if out[0].Name != "b" || out[1].Name != "a" || out[2].Name != "c" {
		t.Fatalf("unexpected order: %+v", out)
	}
}

func TestParseKeepsDefaults(t *testing.T) {
	set, err := Parse([]byte("brands:\n  - contains: ACME\n    category: Acme\ncity_codes:\n  7: Cali\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Brands) != 1 || set.Brands[0].Category != "Acme" {
		t.Fatalf("brands: %+v", set.Brands)
	}
	if set.CityCodes[7] != "Cali" {
		t.Fatalf("codes: %+v", set.CityCodes)
	}
	if len(set.Columns) != len(DefaultColumnRules()) {
		t.Fatal("columns should keep defaults")
	}
}

func TestCityAliasMatch(t *testing.T) {
	a := DefaultCityAliases()[0]
	for _, in := range []string{"BOGOTÁ, D.C. - CUNDINAMARCA", "bogota dc", "Santa Fe de Bogotá"} {
		if a.Match(in) <= 0 {
			t.Fatalf("expected alias match for %q", in)
		}
	}
	if a.Match("MEDELLIN") != -1 {
		t.Fatal("unexpected match")
	}
}

func TestStatusRules(t *testing.T) {
	s := DefaultStatuses()
	if !s.IsDelivered(" entregado ") || !s.IsDelivered("Despachado") || s.IsDelivered("") {
		t.Fatal("delivered statuses")
	}
	if !s.IsOpen("Producción") || s.IsOpen("LOGISTICA") || s.IsOpen("ENTREGADO") {
		t.Fatal("open statuses")
	}
	if !(StatusRules{Delivered: []string{"ENTREGADO"}}).IsOpen("LOGISTICA") {
		t.Fatal("empty open list should accept undelivered statuses")
	}
}

func TestParseStatuses(t *testing.T) {
	set, err := Parse([]byte("statuses:\n  open: [PRODUCCION, LOGISTICA]\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !set.Statuses.IsOpen("LOGISTICA") || !set.Statuses.IsDelivered("ENTREGADA") {
		t.Fatalf("statuses %+v", set.Statuses)
	}
}
