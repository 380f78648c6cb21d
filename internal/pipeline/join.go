package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"ledgerrecon/internal"
	"ledgerrecon/internal/util"
)

type JoinMode string

const (
	JoinInner JoinMode = "inner"
	JoinLeft  JoinMode = "left"
)

func ParseJoinMode(value string) (JoinMode, error) {
	switch JoinMode(strings.ToLower(strings.TrimSpace(value))) {
	case JoinInner:
		return JoinInner, nil
	case JoinLeft, "":
		return JoinLeft, nil
	default:
		return "", fmt.Errorf("unsupported join mode: %s", value)
	}
}

type Side int

const (
	SideLeft Side = iota
	SideRight
)

// MergePolicy names the side that supplies each field of a joined row. The
// other side fills in when the preferred one is empty; unlisted fields come
// from the left.
type MergePolicy map[internal.Field]Side

// DefaultMergePolicy joins a sales ledger (left) with the per-line auxiliary
// (right): the ledger owns date, amount and customer; the auxiliary owns the
// line detail.
func DefaultMergePolicy() MergePolicy {
	return MergePolicy{
		internal.FieldDate:             SideLeft,
		internal.FieldAmount:           SideLeft,
		internal.FieldJoinKey:          SideLeft,
		internal.FieldCustomerName:     SideLeft,
		internal.FieldReference:        SideRight,
		internal.FieldDescription:      SideRight,
		internal.FieldCounterpartyCode: SideRight,
		internal.FieldSellerCode:       SideRight,
		internal.FieldQuantity:         SideRight,
		internal.FieldCrossRef:         SideRight,
	}
}

type JoinOptions struct {
	Mode     JoinMode
	LeftKey  internal.Field
	RightKey internal.Field
	Policy   MergePolicy
}

type JoinedRow struct {
	Left   *internal.Transaction
	Right  *internal.Transaction
	Merged internal.Transaction
}

type JoinStats struct {
	LeftRows        int `json:"leftRows"`
	RightRows       int `json:"rightRows"`
	LeftDuplicates  int `json:"leftDuplicates"`
	RightDuplicates int `json:"rightDuplicates"`
	RightEmptyKeys  int `json:"rightEmptyKeys"`
	Matched         int `json:"matched"`
	Unmatched       int `json:"unmatched"`
	Output          int `json:"output"`
}

type JoinResult struct {
	Rows    []JoinedRow
	Stats   JoinStats
	Warning string
}

func (r JoinResult) Transactions() []internal.Transaction {
	out := make([]internal.Transaction, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Merged
	}
	return out
}

// Deduplicate keeps the first row per normalized key after a stable sort
// that puts rows with a counterparty code first. Rows with an empty key are
// kept when keepEmpty is set and dropped otherwise.
func Deduplicate(rows []internal.Transaction, key internal.Field, keepEmpty bool) (kept []internal.Transaction, duplicates int, empty int) {
	ordered := append([]internal.Transaction(nil), rows...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CounterpartyCode != "" && ordered[j].CounterpartyCode == ""
	})

	seen := map[string]struct{}{}
	kept = make([]internal.Transaction, 0, len(ordered))
	for _, t := range ordered {
		k := util.NormalizeKey(t.Text(key))
		if k == "" {
			if keepEmpty {
				kept = append(kept, t)
			} else {
				empty++
			}
			continue
		}
		if _, ok := seen[k]; ok {
			duplicates++
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, t)
	}
	return kept, duplicates, empty
}

// Join matches left and right on trimmed, case-insensitive keys after
// deduplicating both sides. Empty keys never match.
func Join(left, right []internal.Transaction, opts JoinOptions) JoinResult {
	if opts.Mode == "" {
		opts.Mode = JoinLeft
	}
	if opts.LeftKey == "" {
		opts.LeftKey = internal.FieldJoinKey
	}
	if opts.RightKey == "" {
		opts.RightKey = internal.FieldJoinKey
	}
	if opts.Policy == nil {
		opts.Policy = DefaultMergePolicy()
	}

	res := JoinResult{}
	res.Stats.LeftRows = len(left)
	res.Stats.RightRows = len(right)

	l, ldup, _ := Deduplicate(left, opts.LeftKey, opts.Mode == JoinLeft)
	r, rdup, rempty := Deduplicate(right, opts.RightKey, false)
	res.Stats.LeftDuplicates = ldup
	res.Stats.RightDuplicates = rdup
	res.Stats.RightEmptyKeys = rempty

	index := make(map[string]int, len(r))
	for i := range r {
		index[util.NormalizeKey(r[i].Text(opts.RightKey))] = i
	}

	for i := range l {
		lt := &l[i]
		k := util.NormalizeKey(lt.Text(opts.LeftKey))
		j, ok := index[k]
		if k == "" {
			ok = false
		}
		if !ok {
			res.Stats.Unmatched++
			if opts.Mode == JoinLeft {
				res.Rows = append(res.Rows, JoinedRow{Left: lt, Merged: merge(lt, nil, opts.Policy)})
			}
			continue
		}
		rt := &r[j]
		res.Stats.Matched++
		res.Rows = append(res.Rows, JoinedRow{Left: lt, Right: rt, Merged: merge(lt, rt, opts.Policy)})
	}
	res.Stats.Output = len(res.Rows)

	if res.Stats.Matched == 0 {
		res.Warning = fmt.Sprintf("no %s values matched between %d left and %d right rows", opts.LeftKey, len(l), len(r))
	}
	return res
}

func merge(left, right *internal.Transaction, policy MergePolicy) internal.Transaction {
	if left == nil {
		return cloneTransaction(*right)
	}
	out := cloneTransaction(*left)
	if right == nil {
		return out
	}
	for _, f := range internal.CanonicalFields {
		preferred, other := left, right
		if policy[f] == SideRight {
			preferred, other = right, left
		}
		src := preferred
		if isEmptyField(*preferred, f) {
			src = other
		}
		copyField(&out, *src, f)
	}
	out.ZeroFilled = nil
	for _, f := range []internal.Field{internal.FieldAmount, internal.FieldQuantity} {
		if isEmptyField(*left, f) && isEmptyField(*right, f) {
			out.ZeroFilled = append(out.ZeroFilled, f)
		}
	}
	for k, v := range right.Attributes {
		if out.Attributes == nil {
			out.Attributes = map[string]string{}
		}
		if _, exists := out.Attributes[k]; !exists {
			out.Attributes[k] = v
		}
	}
	return out
}

func cloneTransaction(t internal.Transaction) internal.Transaction {
	if t.Attributes != nil {
		attrs := make(map[string]string, len(t.Attributes))
		for k, v := range t.Attributes {
			attrs[k] = v
		}
		t.Attributes = attrs
	}
	return t
}

func isEmptyField(t internal.Transaction, f internal.Field) bool {
	switch f {
	case internal.FieldDate:
		return t.Date == nil
	case internal.FieldAmount, internal.FieldQuantity:
		return t.IsZeroFilled(f)
	default:
		return strings.TrimSpace(t.Text(f)) == ""
	}
}

func copyField(dst *internal.Transaction, src internal.Transaction, f internal.Field) {
	switch f {
	case internal.FieldReference:
		dst.Reference = src.Reference
	case internal.FieldDescription:
		dst.Description = src.Description
	case internal.FieldDate:
		dst.Date = src.Date
	case internal.FieldAmount:
		dst.Amount = src.Amount
	case internal.FieldQuantity:
		dst.Quantity = src.Quantity
	case internal.FieldCounterpartyCode:
		dst.CounterpartyCode = src.CounterpartyCode
	case internal.FieldSellerCode:
		dst.SellerCode = src.SellerCode
	case internal.FieldJoinKey:
		dst.JoinKey = src.JoinKey
	case internal.FieldCustomerName:
		dst.CustomerName = src.CustomerName
	case internal.FieldCrossRef:
		dst.CrossRef = src.CrossRef
	case internal.FieldPlatform:
		dst.Platform = src.Platform
	case internal.FieldLocation:
		dst.Location = src.Location
	case internal.FieldTitle:
		dst.Title = src.Title
	}
}
