package pipeline

import (
	"fmt"
	"strings"

	"ledgerrecon/internal"
	"ledgerrecon/internal/rules"
	"ledgerrecon/internal/util"
)

// ColumnMapping records how raw headers became table columns.
type ColumnMapping struct {
	Raw      []string
	Resolved []string
	Fields   map[internal.Field]int
}

type MissingColumnsError struct {
	Missing   []internal.Field
	Available []string
}

func (e *MissingColumnsError) Error() string {
	missing := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		missing[i] = string(f)
	}
	return fmt.Sprintf("missing required columns [%s]; available: [%s]", strings.Join(missing, ", "), strings.Join(e.Available, ", "))
}

// NormalizeColumns renames the table's columns to canonical fields using the
// ordered rule list, after headers that already name a canonical field. The first rule matching a header wins. A field already
// taken by an earlier column leaves a FirstOnly column under its raw name and
// gives other columns a numeric suffix ("reference_1").
func NormalizeColumns(table *internal.Table, columnRules []rules.ColumnRule, required []internal.Field) (*internal.Table, ColumnMapping, error) {
	raw := dedupeNames(table.Columns)
	mapping := ColumnMapping{
		Raw:      raw,
		Resolved: make([]string, len(raw)),
		Fields:   map[internal.Field]int{},
	}

	taken := map[string]int{}
	for i, name := range raw {
		resolved := name
		base := stripSuffix(name)
		if f, ok := canonicalField(base); ok {
			if _, exists := mapping.Fields[f]; !exists {
				mapping.Fields[f] = i
				resolved = string(f)
			}
			mapping.Resolved[i] = resolved
			continue
		}
		for _, rule := range columnRules {
			if !rule.Matches(base) {
				continue
			}
			if _, exists := mapping.Fields[rule.Field]; !exists {
				mapping.Fields[rule.Field] = i
				resolved = string(rule.Field)
			} else if !rule.FirstOnly {
				taken[string(rule.Field)]++
				resolved = fmt.Sprintf("%s_%d", rule.Field, taken[string(rule.Field)])
			}
			break
		}
		mapping.Resolved[i] = resolved
	}

	out := &internal.Table{Columns: mapping.Resolved, Rows: table.Rows}

	var missing []internal.Field
	for _, f := range required {
		if _, ok := mapping.Fields[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return out, mapping, &MissingColumnsError{Missing: missing, Available: append([]string(nil), raw...)}
	}
	return out, mapping, nil
}

// canonicalField recognizes headers that already carry a canonical field
// name, as in tables written by this package's exports.
func canonicalField(header string) (internal.Field, bool) {
	for _, f := range internal.CanonicalFields {
		if header == strings.ToUpper(string(f)) {
			return f, true
		}
	}
	return "", false
}

// dedupeNames normalizes headers and suffixes repeats: A, A_1, A_2. A
// suffix already used by another header is skipped.
func dedupeNames(columns []string) []string {
	names := make([]string, len(columns))
	raw := make(map[string]bool, len(columns))
	for i, c := range columns {
		names[i] = util.NormalizeColumn(c)
		raw[names[i]] = true
	}

	out := make([]string, len(columns))
	used := make(map[string]bool, len(columns))
	next := map[string]int{}
	for i, name := range names {
		if !used[name] {
			used[name] = true
			out[i] = name
			continue
		}
		for {
			next[name]++
			candidate := fmt.Sprintf("%s_%d", name, next[name])
			if !used[candidate] && !raw[candidate] {
				used[candidate] = true
				out[i] = candidate
				break
			}
		}
	}
	return out
}

// stripSuffix drops a dedupe suffix so that "FECHA_1" is matched as "FECHA".
func stripSuffix(name string) string {
	i := strings.LastIndexByte(name, '_')
	if i <= 0 || i == len(name)-1 {
		return name
	}
	for _, r := range name[i+1:] {
		if r < '0' || r > '9' {
			return name
		}
	}
	return name[:i]
}
