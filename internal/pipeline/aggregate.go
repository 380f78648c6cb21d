package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"ledgerrecon/internal"
	"ledgerrecon/internal/util"
)

type Metric string

const (
	MetricAmount   Metric = "amount"
	MetricQuantity Metric = "quantity"
	MetricCount    Metric = "count"
)

func ParseMetric(value string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(value))); m {
	case "":
		return MetricAmount, nil
	case MetricAmount, MetricQuantity, MetricCount:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported metric: %s", value)
	}
}

type KeyFunc func(internal.Transaction) string

var groupKeys = map[string]KeyFunc{
	"commerce":   func(t internal.Transaction) string { return t.Commerce },
	"seller":     func(t internal.Transaction) string { return t.Seller },
	"channel":    func(t internal.Transaction) string { return t.Channel },
	"city":       func(t internal.Transaction) string { return t.City },
	"department": func(t internal.Transaction) string { return t.Department },
	"customer":   func(t internal.Transaction) string { return t.CustomerName },
	"reference":  func(t internal.Transaction) string { return t.Reference },
	"period":     func(t internal.Transaction) string { return t.Period },
}

// GroupKey returns the key for a classified field name, falling back to a
// raw field or attribute of that name.
func GroupKey(name string) KeyFunc {
	if k, ok := groupKeys[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k
	}
	field := internal.Field(name)
	return func(t internal.Transaction) string { return t.Text(field) }
}

// AggregateBy sums metric per key. Rows with a blank key are left out.
// Entities come back sorted by name.
func AggregateBy(rows []internal.Transaction, key KeyFunc, metric Metric) []internal.EntityValue {
	sums := map[string]decimal.Decimal{}
	for _, t := range rows {
		k := strings.TrimSpace(key(t))
		if k == "" {
			continue
		}
		var v decimal.Decimal
		switch metric {
		case MetricQuantity:
			v = t.Quantity
		case MetricCount:
			v = decimal.NewFromInt(1)
		default:
			v = t.Amount
		}
		sums[k] = sums[k].Add(v)
	}

	out := make([]internal.EntityValue, 0, len(sums))
	for k, v := range sums {
		out = append(out, internal.EntityValue{Entity: k, Value: v.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entity < out[j].Entity })
	return out
}

var DefaultFreightPatterns = []string{"FLETE ENVIO", "EKMFLETE"}

// ExcludeFreight drops shipping-charge lines before product analytics.
func ExcludeFreight(rows []internal.Transaction, patterns []string) ([]internal.Transaction, int) {
	folded := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = util.UpperFolded(strings.TrimSpace(p)); p != "" {
			folded = append(folded, p)
		}
	}

	out := make([]internal.Transaction, 0, len(rows))
	excluded := 0
	for _, t := range rows {
		if isFreight(t, folded) {
			excluded++
			continue
		}
		out = append(out, t)
	}
	return out, excluded
}

func isFreight(t internal.Transaction, patterns []string) bool {
	for _, text := range []string{t.Reference, t.Description, t.Title} {
		upper := util.UpperFolded(text)
		for _, p := range patterns {
			if strings.Contains(upper, p) {
				return true
			}
		}
	}
	return false
}

const productLinePrefix = "EKM"

// IsProductLine flags references of the house product line.
func IsProductLine(t internal.Transaction) bool {
	return strings.HasPrefix(util.NormalizeKey(t.Reference), productLinePrefix)
}
