package pipeline

import (
	"sort"

	"ledgerrecon/internal"
)

type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
)

const shareTolerance = 1e-9

type ConcentrationEntry struct {
	Entity          string  `json:"entity"`
	Value           float64 `json:"value"`
	Cumulative      float64 `json:"cumulative"`
	CumulativeShare float64 `json:"cumulativeShare"`
	Tier            Tier    `json:"tier,omitempty"`
}

type ConcentrationReport struct {
	Entries []ConcentrationEntry `json:"entries"`
	Total   float64              `json:"total"`
	Count80 int                  `json:"count80"`
	Count90 int                  `json:"count90"`
	Count95 int                  `json:"count95"`
	HHI     float64              `json:"hhi"`
}

// Concentration sorts entities by value (descending, ties by name) and
// reports cumulative shares in percent, the number of entities within
// 80/90/95%, the Herfindahl-Hirschman index (10000 times the sum of squared
// shares) and, when asked, A/B/C tiers. A zero total yields zero shares,
// zero counts, a zero index and no tiers.
func Concentration(values []internal.EntityValue, withTiers bool) ConcentrationReport {
	sorted := append([]internal.EntityValue(nil), values...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Value != sorted[j].Value {
			return sorted[i].Value > sorted[j].Value
		}
		return sorted[i].Entity < sorted[j].Entity
	})

	report := ConcentrationReport{Entries: make([]ConcentrationEntry, len(sorted))}
	for _, v := range sorted {
		report.Total += v.Value
	}

	running := 0.0
	for i, v := range sorted {
		running += v.Value
		e := ConcentrationEntry{Entity: v.Entity, Value: v.Value, Cumulative: running}
		if report.Total != 0 {
			share := v.Value / report.Total
			report.HHI += share * share * 10000
			e.CumulativeShare = running / report.Total * 100
			if e.CumulativeShare <= 80+shareTolerance {
				report.Count80++
			}
			if e.CumulativeShare <= 90+shareTolerance {
				report.Count90++
			}
			if e.CumulativeShare <= 95+shareTolerance {
				report.Count95++
			}
			if withTiers {
				e.Tier = tierFor(e.CumulativeShare)
			}
		}
		report.Entries[i] = e
	}
	return report
}

func tierFor(share float64) Tier {
	switch {
	case share <= 80+shareTolerance:
		return TierA
	case share <= 95+shareTolerance:
		return TierB
	default:
		return TierC
	}
}
