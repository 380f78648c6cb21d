package pipeline

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledgerrecon/internal"
	"ledgerrecon/internal/calendar"
	"ledgerrecon/internal/rules"
	"ledgerrecon/internal/util"
)

func TestAggregateByCommerce(t *testing.T) {
	rows := []internal.Transaction{
		{Commerce: "Tugo", Amount: decimal.RequireFromString("10.10"), Quantity: decimal.NewFromInt(1)},
		{Commerce: "Falabella", Amount: decimal.NewFromInt(5), Quantity: decimal.NewFromInt(3)},
		{Commerce: "Tugo", Amount: decimal.RequireFromString("0.20"), Quantity: decimal.NewFromInt(2)},
		{Commerce: " ", Amount: decimal.NewFromInt(99)},
	}
	got := AggregateBy(rows, GroupKey("commerce"), MetricAmount)
	if len(got) != 2 || got[0].Entity != "Falabella" || got[1].Entity != "Tugo" || got[1].Value != 10.3 {
		t.Fatalf("amounts %+v", got)
	}
	got = AggregateBy(rows, GroupKey("Commerce"), MetricQuantity)
	if got[1].Value != 3 {
		t.Fatalf("quantities %+v", got)
	}
	got = AggregateBy(rows, GroupKey("commerce"), MetricCount)
	if got[0].Value != 1 || got[1].Value != 2 {
		t.Fatalf("counts %+v", got)
	}
}

func TestGroupKeyFallsBackToAttributes(t *testing.T) {
	rows := []internal.Transaction{
		{Amount: decimal.NewFromInt(1), Attributes: map[string]string{"BODEGA": "Norte"}},
		{Amount: decimal.NewFromInt(2), Attributes: map[string]string{"BODEGA": "Norte"}},
	}
	got := AggregateBy(rows, GroupKey("BODEGA"), MetricAmount)
	if len(got) != 1 || got[0].Entity != "Norte" || got[0].Value != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestParseMetric(t *testing.T) {
	if m, err := ParseMetric(""); err != nil || m != MetricAmount {
		t.Fatalf("m=%q err=%v", m, err)
	}
	if _, err := ParseMetric("median"); err == nil {
		t.Fatal("expected error")
	}
}

func TestExcludeFreight(t *testing.T) {
	rows := []internal.Transaction{
		{Reference: "EKM-100"},
		{Reference: "EKMFLETE"},
		{Description: "Flete envío Bogotá"},
		{Title: "Silla"},
	}
	kept, excluded := ExcludeFreight(rows, DefaultFreightPatterns)
	if excluded != 2 || len(kept) != 2 || kept[1].Title != "Silla" {
		t.Fatalf("kept=%+v excluded=%d", kept, excluded)
	}
	if !IsProductLine(kept[0]) || IsProductLine(kept[1]) {
		t.Fatal("product line flags")
	}
	if !IsProductLine(internal.Transaction{Reference: " ekm-7"}) {
		t.Fatal("expected case-insensitive prefix")
	}
}

func civilDay(y int, m time.Month, d int) *time.Time {
	return util.TimePtr(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func TestDispatchTimings(t *testing.T) {
	cal := calendar.New(nil)
	rows := []internal.Transaction{
		{Reference: "A", Date: civilDay(2025, 1, 3), Attributes: map[string]string{"FECHA DE DESPACHO INTERNO": "2025-01-07"}},
		{Reference: "B", Date: civilDay(2025, 1, 3)},
		{Reference: "C", Date: civilDay(2025, 1, 6), Attributes: map[string]string{"FECHA DESPACHO": "10/01/2025"}},
	}
	got := DispatchTimings(rows, cal, DefaultDispatchColumn)
	if !got[0].OK || got[0].BusinessDays != 2 || got[0].CalendarDays != 4 {
		t.Fatalf("first %+v", got[0])
	}
	if got[1].OK {
		t.Fatalf("second %+v", got[1])
	}
	if !got[2].OK || got[2].BusinessDays != 4 {
		t.Fatalf("third %+v", got[2])
	}
	avg, ok := AverageBusinessDays(got)
	if !ok || avg != 3 {
		t.Fatalf("avg=%v ok=%v", avg, ok)
	}
	if _, ok := AverageBusinessDays(got[1:2]); ok {
		t.Fatal("expected no average")
	}
}

func TestDueAlerts(t *testing.T) {
	cal := calendar.New(nil)
	now := time.Date(2025, 1, 6, 9, 30, 0, 0, time.UTC)
	rows := []internal.Transaction{
		{Reference: "A", Attributes: map[string]string{"FECHA DE VENCIMIENTO": "07/01/2025"}},
		{Reference: "B", Attributes: map[string]string{"FECHA VENCIMIENTO": "03/01/2025"}},
		{Reference: "C", Attributes: map[string]string{"FECHA VENCIMIENTO": "20/01/2025"}},
		{Reference: "D", Attributes: map[string]string{"FECHA VENCIMIENTO": "06/01/2025", "FECHA DESPACHO": "06/01/2025"}},
		{Reference: "E"},
	}
	got := DueAlerts(rows, cal, now, DefaultDispatchColumns(), rules.DefaultStatuses(), DefaultDueWithin)
	if len(got) != 2 {
		t.Fatalf("alerts %+v", got)
	}
	if got[0].Reference != "B" || !got[0].Overdue || got[0].BusinessDays != -1 {
		t.Fatalf("first %+v", got[0])
	}
	if got[1].Reference != "A" || got[1].Overdue || got[1].BusinessDays != 1 {
		t.Fatalf("second %+v", got[1])
	}
}

func TestDueAlertsFilterByStatus(t *testing.T) {
	cal := calendar.New(nil)
	now := time.Date(2025, 1, 6, 9, 30, 0, 0, time.UTC)
	rows := []internal.Transaction{
		{Reference: "P", Attributes: map[string]string{"FECHA DE VENCIMIENTO": "07/01/2025", "ESTATUS": "Produccion"}},
		{Reference: "L", Attributes: map[string]string{"FECHA DE VENCIMIENTO": "07/01/2025", "ESTATUS": "LOGISTICA"}},
		{Reference: "X", Attributes: map[string]string{"FECHA DE VENCIMIENTO": "03/01/2025", "ESTATUS": "ENTREGADO"}},
		{Reference: "N", Attributes: map[string]string{"FECHA DE VENCIMIENTO": "03/01/2025", "ESTATUS": " "}},
	}
	got := DueAlerts(rows, cal, now, DefaultDispatchColumns(), rules.DefaultStatuses(), DefaultDueWithin)
	if len(got) != 2 {
		t.Fatalf("alerts %+v", got)
	}
	if got[0].Reference != "N" || !got[0].Overdue {
		t.Fatalf("first %+v", got[0])
	}
	if got[1].Reference != "P" || got[1].Status != "Produccion" {
		t.Fatalf("second %+v", got[1])
	}
}

func TestInvoicedNotDispatched(t *testing.T) {
	rows := []internal.Transaction{
		{Reference: "A", JoinKey: "5501", Attributes: map[string]string{"ESTATUS": "PENDIENTE"}},
		{Reference: "B", JoinKey: "0", Attributes: map[string]string{"ESTATUS": "PENDIENTE"}},
		{Reference: "C", JoinKey: "5502", Attributes: map[string]string{"ESTATUS": "Entregada"}},
		{Reference: "D", JoinKey: "", Attributes: map[string]string{"ESTATUS": "PENDIENTE"}},
		{Reference: "E", Attributes: map[string]string{"NRO. CRUCE": "5503", "FECHA DESPACHO": "2025-01-07"}},
		{Reference: "F", Attributes: map[string]string{"NRO. CRUCE": "5504"}},
		{Reference: "G", JoinKey: "S/N"},
	}
	got := InvoicedNotDispatched(rows, DefaultDispatchColumns(), rules.DefaultStatuses())
	if len(got) != 2 {
		t.Fatalf("pending %+v", got)
	}
	if got[0].Reference != "A" || got[0].Invoice != "5501" || got[0].Status != "PENDIENTE" {
		t.Fatalf("first %+v", got[0])
	}
	if got[1].Reference != "F" || got[1].Invoice != "5504" {
		t.Fatalf("second %+v", got[1])
	}
}
