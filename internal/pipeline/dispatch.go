package pipeline

import (
	"sort"
	"strings"
	"time"

	"ledgerrecon/internal"
	"ledgerrecon/internal/calendar"
	"ledgerrecon/internal/rules"
	"ledgerrecon/internal/util"
)

const (
	DefaultDispatchColumn = "FECHA DESPACHO"
	DefaultDueColumn      = "FECHA VENCIMIENTO"
	DefaultStatusColumn   = "ESTATUS"
	DefaultInvoiceColumn  = "NRO. CRUCE"
	DefaultDueWithin      = 2
)

// DispatchColumns names the attribute columns read from dispatch and order
// sheets.
type DispatchColumns struct {
	Dispatch string
	Due      string
	Status   string
	Invoice  string
}

func DefaultDispatchColumns() DispatchColumns {
	return DispatchColumns{
		Dispatch: DefaultDispatchColumn,
		Due:      DefaultDueColumn,
		Status:   DefaultStatusColumn,
		Invoice:  DefaultInvoiceColumn,
	}
}

type DispatchTiming struct {
	Reference    string     `json:"reference"`
	OrderDate    *time.Time `json:"orderDate"`
	DispatchDate *time.Time `json:"dispatchDate"`
	CalendarDays int        `json:"calendarDays"`
	BusinessDays int        `json:"businessDays"`
	OK           bool       `json:"ok"`
}

// DispatchTimings measures order date to dispatch date per row. Rows missing
// either date are returned with OK=false and left out of averages.
func DispatchTimings(rows []internal.Transaction, cal *calendar.Calendar, dispatchColumn string) []DispatchTiming {
	out := make([]DispatchTiming, len(rows))
	for i, t := range rows {
		dispatched := attributeDate(t, dispatchColumn)
		timing := DispatchTiming{Reference: t.Reference, OrderDate: t.Date, DispatchDate: dispatched}
		if days, ok := cal.BusinessDays(t.Date, dispatched); ok {
			timing.BusinessDays = days
			timing.CalendarDays = int(dispatched.Sub(*t.Date).Hours() / 24)
			timing.OK = true
		}
		out[i] = timing
	}
	return out
}

// AverageBusinessDays averages the defined timings; ok is false when none is.
func AverageBusinessDays(timings []DispatchTiming) (float64, bool) {
	sum, n := 0, 0
	for _, t := range timings {
		if t.OK {
			sum += t.BusinessDays
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

type DueAlert struct {
	Reference    string    `json:"reference"`
	Status       string    `json:"status,omitempty"`
	Due          time.Time `json:"due"`
	BusinessDays int       `json:"businessDays"`
	Overdue      bool      `json:"overdue"`
}

// DueAlerts lists open rows due within n business days of now, overdue ones
// included, soonest first. A row is open when it has no dispatch date and,
// if it carries a status, that status is an open one.
func DueAlerts(rows []internal.Transaction, cal *calendar.Calendar, now time.Time, cols DispatchColumns, statuses rules.StatusRules, n int) []DueAlert {
	var out []DueAlert
	for _, t := range rows {
		if attributeDate(t, cols.Dispatch) != nil {
			continue
		}
		status, hasStatus := attributeValue(t, cols.Status)
		if hasStatus && strings.TrimSpace(status) != "" && !statuses.IsOpen(status) {
			continue
		}
		due := attributeDate(t, cols.Due)
		flagged, ok := cal.DueWithin(&now, due, n)
		if !ok || !flagged {
			continue
		}
		days, _ := cal.BusinessDays(&now, due)
		out = append(out, DueAlert{Reference: t.Reference, Status: strings.TrimSpace(status), Due: *due, BusinessDays: days, Overdue: days < 0})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Due.Before(out[j].Due) })
	return out
}

type PendingDispatch struct {
	Reference string `json:"reference"`
	Invoice   string `json:"invoice"`
	Status    string `json:"status,omitempty"`
}

// InvoicedNotDispatched lists rows that carry an invoice number but are not
// delivered. An invoice number that is blank, zero or not numeric means the
// row was not invoiced. A row is delivered when its status is a delivered
// one or it has a dispatch date.
func InvoicedNotDispatched(rows []internal.Transaction, cols DispatchColumns, statuses rules.StatusRules) []PendingDispatch {
	var out []PendingDispatch
	for _, t := range rows {
		invoice, ok := invoiceNumber(t, cols.Invoice)
		if !ok {
			continue
		}
		status, _ := attributeValue(t, cols.Status)
		if statuses.IsDelivered(status) || attributeDate(t, cols.Dispatch) != nil {
			continue
		}
		out = append(out, PendingDispatch{Reference: t.Reference, Invoice: invoice, Status: strings.TrimSpace(status)})
	}
	return out
}

// invoiceNumber reads the invoice column, falling back to the join key the
// column normalizer maps "NRO. CRUCE" to.
func invoiceNumber(t internal.Transaction, column string) (string, bool) {
	raw, ok := attributeValue(t, column)
	if !ok {
		raw = t.JoinKey
	}
	raw = strings.TrimSpace(raw)
	n, ok := util.ParseDecimal(raw, util.LocaleAuto)
	if !ok || n.IsZero() {
		return "", false
	}
	return raw, true
}

func attributeDate(t internal.Transaction, column string) *time.Time {
	v, ok := attributeValue(t, column)
	if !ok {
		return nil
	}
	d, ok := util.ParseAnyDate(v)
	if !ok {
		return nil
	}
	return d
}

// attributeValue finds column by exact name, then by the first attribute
// whose name starts with it once "DE" connectors are ignored, so
// "FECHA DESPACHO" finds "FECHA DE DESPACHO INTERNO".
func attributeValue(t internal.Transaction, column string) (string, bool) {
	if v, ok := t.Attributes[column]; ok {
		return v, true
	}
	want := compactColumn(column)
	if want == "" {
		return "", false
	}
	keys := make([]string, 0, len(t.Attributes))
	for k := range t.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.HasPrefix(compactColumn(k), want) {
			return t.Attributes[k], true
		}
	}
	return "", false
}

func compactColumn(name string) string {
	s := " " + util.NormalizeColumn(name) + " "
	s = strings.ReplaceAll(s, " DE ", " ")
	return strings.TrimSpace(s)
}
