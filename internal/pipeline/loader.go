package pipeline

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledgerrecon/internal"
	"ledgerrecon/internal/util"
)

type LoadOptions struct {
	Locale util.Locale
	Period string
	// DropIfMissing lists the fields whose absence drops a row.
	DropIfMissing []internal.Field
}

func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Locale:        util.LocaleLatAm,
		DropIfMissing: []internal.Field{internal.FieldDate, internal.FieldReference},
	}
}

type LoadStats struct {
	Read         int                    `json:"read"`
	Kept         int                    `json:"kept"`
	Dropped      map[string]int         `json:"dropped"`
	ZeroFilled   map[internal.Field]int `json:"zeroFilled"`
	DateFallback bool                   `json:"dateFallback"`
}

func (s LoadStats) DroppedTotal() int {
	n := 0
	for _, v := range s.Dropped {
		n += v
	}
	return n
}

// LoadTransactions converts a normalized table into transactions. Amount and
// quantity failures are zero-filled; rows missing a DropIfMissing field are
// dropped and counted by reason.
func LoadTransactions(table *internal.Table, opts LoadOptions) ([]internal.Transaction, LoadStats) {
	stats := LoadStats{
		Read:       len(table.Rows),
		Dropped:    map[string]int{},
		ZeroFilled: map[internal.Field]int{},
	}
	if opts.Locale == "" {
		opts.Locale = util.LocaleLatAm
	}

	col := func(f internal.Field) int { return table.Index(string(f)) }
	dateIdx := col(internal.FieldDate)
	amountIdx := col(internal.FieldAmount)
	qtyIdx := col(internal.FieldQuantity)

	var dates []*time.Time
	if dateIdx >= 0 {
		values := make([]any, len(table.Rows))
		for i, row := range table.Rows {
			if dateIdx < len(row) {
				values[i] = row[dateIdx]
			}
		}
		dates, stats.DateFallback = util.ParseDateColumn(values)
	}

	mapped := map[int]bool{}
	for _, f := range internal.CanonicalFields {
		if i := col(f); i >= 0 {
			mapped[i] = true
		}
	}

	out := make([]internal.Transaction, 0, len(table.Rows))
	for r, row := range table.Rows {
		text := func(f internal.Field) string {
			i := col(f)
			if i < 0 || i >= len(row) {
				return ""
			}
			s := util.CellString(row[i])
			if util.IsBlankText(s) {
				return ""
			}
			return s
		}

		t := internal.Transaction{
			Reference:        text(internal.FieldReference),
			Description:      text(internal.FieldDescription),
			CounterpartyCode: text(internal.FieldCounterpartyCode),
			SellerCode:       text(internal.FieldSellerCode),
			JoinKey:          text(internal.FieldJoinKey),
			CustomerName:     text(internal.FieldCustomerName),
			CrossRef:         text(internal.FieldCrossRef),
			Platform:         text(internal.FieldPlatform),
			Location:         text(internal.FieldLocation),
			Title:            text(internal.FieldTitle),
			Period:           opts.Period,
		}
		if dates != nil {
			t.Date = dates[r]
		}
		var ok bool
		if t.Amount, ok = loadDecimal(row, amountIdx, opts.Locale, internal.FieldAmount, &stats); !ok {
			t.ZeroFilled = append(t.ZeroFilled, internal.FieldAmount)
		}
		if t.Quantity, ok = loadDecimal(row, qtyIdx, opts.Locale, internal.FieldQuantity, &stats); !ok {
			t.ZeroFilled = append(t.ZeroFilled, internal.FieldQuantity)
		}

		for i, name := range table.Columns {
			if mapped[i] || i >= len(row) {
				continue
			}
			if v := attributeText(name, row[i]); v != "" {
				if t.Attributes == nil {
					t.Attributes = map[string]string{}
				}
				t.Attributes[name] = v
			}
		}

		if reason := dropReason(t, opts.DropIfMissing); reason != "" {
			stats.Dropped[reason]++
			continue
		}
		out = append(out, t)
	}
	stats.Kept = len(out)
	return out, stats
}

// loadDecimal reads a numeric cell; ok is false when the column is absent or
// the cell unreadable and zero was filled in.
func loadDecimal(row []any, idx int, locale util.Locale, field internal.Field, stats *LoadStats) (decimal.Decimal, bool) {
	if idx < 0 {
		return decimal.Zero, false
	}
	var cell any
	if idx < len(row) {
		cell = row[idx]
	}
	d, ok := util.ParseDecimal(cell, locale)
	if !ok {
		stats.ZeroFilled[field]++
		return decimal.Zero, false
	}
	return d, true
}

// attributeText keeps unmapped cells as text; date-like columns are stored
// as ISO dates so later stages can parse them.
func attributeText(column string, cell any) string {
	if strings.Contains(column, "FECHA") || strings.Contains(column, "DATE") {
		if d, ok := util.ParseDayFirst(cell); ok {
			return d.Format("2006-01-02")
		}
	}
	s := util.CellString(cell)
	if util.IsBlankText(s) {
		return ""
	}
	return s
}

func dropReason(t internal.Transaction, fields []internal.Field) string {
	for _, f := range fields {
		switch f {
		case internal.FieldDate:
			if t.Date == nil {
				return "missing_date"
			}
		default:
			if strings.TrimSpace(t.Text(f)) == "" {
				return "missing_" + string(f)
			}
		}
	}
	return ""
}
