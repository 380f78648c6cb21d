package pipeline

import (
	"math"
	"testing"

	"ledgerrecon/internal"
)

func TestConcentrationScenario(t *testing.T) {
	values := []internal.EntityValue{
		{Entity: "E", Value: 2},
		{Entity: "A", Value: 80},
		{Entity: "C", Value: 5},
		{Entity: "B", Value: 10},
		{Entity: "D", Value: 3},
	}
	r := Concentration(values, true)
	if r.Total != 100 || r.Count80 != 1 || r.Count90 != 2 || r.Count95 != 3 {
		t.Fatalf("report total=%v counts=%d/%d/%d", r.Total, r.Count80, r.Count90, r.Count95)
	}
	wantOrder := []string{"A", "B", "C", "D", "E"}
	wantTier := []Tier{TierA, TierB, TierB, TierC, TierC}
	for i, e := range r.Entries {
		if e.Entity != wantOrder[i] || e.Tier != wantTier[i] {
			t.Fatalf("entry %d: %+v", i, e)
		}
	}
	if last := r.Entries[len(r.Entries)-1]; math.Abs(last.CumulativeShare-100) > 1e-9 || last.Cumulative != 100 {
		t.Fatalf("last %+v", last)
	}
	if math.Abs(r.HHI-6538) > 1e-6 {
		t.Fatalf("hhi %v", r.HHI)
	}
}

func TestConcentrationTiesByName(t *testing.T) {
	r := Concentration([]internal.EntityValue{{Entity: "b", Value: 1}, {Entity: "a", Value: 1}}, false)
	if r.Entries[0].Entity != "a" || r.Entries[0].Tier != "" {
		t.Fatalf("entries %+v", r.Entries)
	}
}

func TestConcentrationZeroTotal(t *testing.T) {
	r := Concentration([]internal.EntityValue{{Entity: "a"}, {Entity: "b"}}, true)
	if r.Count80 != 0 || r.Count95 != 0 || r.HHI != 0 {
		t.Fatalf("counts %+v", r)
	}
	for _, e := range r.Entries {
		if e.CumulativeShare != 0 || e.Tier != "" {
			t.Fatalf("entry %+v", e)
		}
	}
	if empty := Concentration(nil, true); len(empty.Entries) != 0 || empty.Total != 0 {
		t.Fatalf("empty %+v", empty)
	}
}

func TestConcentrationSharesAreMonotonic(t *testing.T) {
	values := []internal.EntityValue{
		{Entity: "a", Value: 0.1},
		{Entity: "b", Value: 0.2},
		{Entity: "c", Value: 0.3},
		{Entity: "d", Value: 7},
		{Entity: "e", Value: 0.4},
	}
	r := Concentration(values, true)
	for i := 1; i < len(r.Entries); i++ {
		if r.Entries[i].CumulativeShare < r.Entries[i-1].CumulativeShare {
			t.Fatalf("share decreased at %d: %+v", i, r.Entries)
		}
	}
}
