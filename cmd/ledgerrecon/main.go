package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledgerrecon/internal"
	"ledgerrecon/internal/cache"
	"ledgerrecon/internal/calendar"
	"ledgerrecon/internal/catalog"
	"ledgerrecon/internal/config"
	"ledgerrecon/internal/connectors"
	gmailconnector "ledgerrecon/internal/connectors/gmail"
	imapconnector "ledgerrecon/internal/connectors/imap"
	"ledgerrecon/internal/intake"
	"ledgerrecon/internal/logger"
	"ledgerrecon/internal/pipeline"
	"ledgerrecon/internal/rules"
	"ledgerrecon/internal/sheet"
	"ledgerrecon/internal/source"
	"ledgerrecon/internal/storage"
	"ledgerrecon/internal/util"
	"ledgerrecon/internal/watch"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log := logger.NewWithOptions(cfg.LogLevel, cfg.LogFormat)
	ctx := logger.WithContext(context.Background(), log)

	cmd := os.Args[1]
	switch cmd {
	case "calendar:busdays":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		from := fs.String("from", "", "start date (dd/mm/yyyy or yyyy-mm-dd)")
		to := fs.String("to", "", "end date")
		_ = fs.Parse(os.Args[2:])
		cal, err := calendar.Load(cfg.HolidaysPath)
		must(err)
		days, ok := cal.BusinessDays(parseDate(*from), parseDate(*to))
		if !ok {
			must(fmt.Errorf("--from and --to are required"))
		}
		fmt.Printf("business days from=%s to=%s days=%d\n", *from, *to, days)
		return
	case "calendar:add":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		from := fs.String("from", "", "start date")
		days := fs.Int("days", 0, "business days to add, negative goes back")
		_ = fs.Parse(os.Args[2:])
		cal, err := calendar.Load(cfg.HolidaysPath)
		must(err)
		due, ok := cal.AddBusinessDays(parseDate(*from), *days)
		if !ok {
			must(fmt.Errorf("--from is required"))
		}
		fmt.Printf("due date from=%s days=%d due=%s\n", *from, *days, due.Format("2006-01-02"))
		return
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	set, err := rules.Load(cfg.RulesPath)
	must(err)
	memo, err := cache.New(cfg, db)
	must(err)
	loader := source.New(ctx, cfg, memo, log)
	svc := pipeline.NewService(db, cfg, loader, set)

	switch cmd {
	case "reconcile":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		ledger := fs.String("ledger", "", "sales ledger sources, comma separated (one per period)")
		aux := fs.String("aux", "", "auxiliary sources, comma separated, aligned with --ledger")
		period := fs.String("period", "", "period labels, comma separated, aligned with --ledger")
		commerces := fs.String("commerces", "", "commerce catalog source (default: last synced)")
		sellers := fs.String("sellers", "", "seller catalog source (default: last synced)")
		mode := fs.String("mode", "", "inner|left (default JOIN_MODE)")
		sheetName := fs.String("sheet", "", "worksheet name")
		out := fs.String("out", "", "output .xlsx or .csv")
		_ = fs.Parse(os.Args[2:])
		loader.Sheet.Sheet = *sheetName

		periods, err := periodInputs(*ledger, *aux, *period)
		must(err)
		joinMode, err := pipeline.ParseJoinMode(firstNonEmpty(*mode, cfg.JoinMode))
		must(err)
		res, err := svc.Reconcile(ctx, pipeline.ReconcileRequest{
			Periods:   periods,
			Commerces: *commerces,
			Sellers:   *sellers,
			Mode:      joinMode,
		})
		must(err)

		output := *out
		if strings.TrimSpace(output) == "" {
			output = filepath.Join(cfg.OutputDir, fmt.Sprintf("recon_%s.xlsx", time.Now().Format("20060102T150405")))
		}
		must(exportTransactions(res.Rows, output, cfg.CSVEncoding))
		for _, w := range res.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		fmt.Printf("reconcile done trace=%s rows=%d warnings=%d output=%s\n", res.TraceID, len(res.Rows), len(res.Warnings), output)
	case "pareto":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "source to analyse")
		dataset := fs.String("dataset", "sales", "sales|ledger|dispatch")
		by := fs.String("by", "commerce", "commerce|seller|channel|city|department|customer|reference|period or a column name")
		metric := fs.String("metric", "amount", "amount|quantity|count")
		tiers := fs.Bool("tiers", false, "add A/B/C tiers")
		freight := fs.Bool("exclude-freight", true, "drop freight lines first")
		productLine := fs.Bool("product-line", false, "keep only house product references")
		commerces := fs.String("commerces", "", "commerce catalog source")
		sellers := fs.String("sellers", "", "seller catalog source")
		out := fs.String("out", "", "output csv")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		ds, err := datasetByName(*dataset)
		must(err)
		m, err := pipeline.ParseMetric(*metric)
		must(err)

		rows, report, warnings := svc.Classified(ctx, *input, ds, "", *commerces, *sellers)
		reportLoadError(os.Stderr, report)
		if *freight {
			var excluded int
			rows, excluded = pipeline.ExcludeFreight(rows, pipeline.DefaultFreightPatterns)
			log.Info().Int("excluded", excluded).Msg("freight lines excluded")
		}
		if *productLine {
			kept := rows[:0]
			for _, t := range rows {
				if pipeline.IsProductLine(t) {
					kept = append(kept, t)
				}
			}
			rows = kept
		}
		result := pipeline.Concentration(pipeline.AggregateBy(rows, pipeline.GroupKey(*by), m), *tiers)
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		if strings.TrimSpace(*out) != "" {
			must(pipeline.ExportConcentrationCSV(result, *out))
		}
		fmt.Printf("pareto done entities=%d total=%s count80=%d count90=%d count95=%d hhi=%.0f\n",
			len(result.Entries), formatAmount(result.Total), result.Count80, result.Count90, result.Count95, result.HHI)
	case "match:titles":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "source with a title column")
		catalogRef := fs.String("catalog", "", "reference catalog source")
		keyColumn := fs.String("key", "REFERENCIA", "catalog code column")
		nameColumn := fs.String("name", "DESCRIPCION", "catalog title column")
		high := fs.Float64("high", cfg.MatchHighThreshold, "first pass threshold")
		low := fs.Float64("low", cfg.MatchLowThreshold, "second pass threshold")
		out := fs.String("out", "", "output xlsx")
		_ = fs.Parse(os.Args[2:])
		if *input == "" || *catalogRef == "" || *out == "" {
			must(fmt.Errorf("--input --catalog --out are required"))
		}
		grid, err := loader.Grid(ctx, *catalogRef)
		must(err)
		refs, err := catalog.FromGrid(grid, *keyColumn, *nameColumn)
		must(err)

		rows, report := svc.LoadDataset(ctx, *input, pipeline.Dataset{Name: "titles", Required: []internal.Field{internal.FieldTitle}}, "")
		reportLoadError(os.Stderr, report)
		assignments := pipeline.NewTitleMatcher(refs).AssignRows(rows, *high, *low)
		must(pipeline.ExportAssignmentsXLSX(assignments, *out))
		passes := map[int]int{}
		explicit := 0
		for _, a := range assignments {
			if a.Explicit {
				explicit++
				continue
			}
			passes[a.Pass]++
		}
		fmt.Printf("match done titles=%d explicit=%d high=%d low=%d unassigned=%d output=%s\n", len(assignments), explicit, passes[1], passes[2], passes[0], *out)
	case "dispatch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "dispatch/order sheet")
		column := fs.String("column", pipeline.DefaultDispatchColumn, "dispatch date column")
		dueColumn := fs.String("due-column", pipeline.DefaultDueColumn, "due date column")
		statusColumn := fs.String("status-column", pipeline.DefaultStatusColumn, "order status column")
		invoiceColumn := fs.String("invoice-column", pipeline.DefaultInvoiceColumn, "invoice number column")
		within := fs.Int("within", pipeline.DefaultDueWithin, "alert when due within N business days")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		cal, err := calendar.Load(cfg.HolidaysPath)
		must(err)
		rows, report := svc.LoadDataset(ctx, *input, pipeline.DispatchDataset, "")
		reportLoadError(os.Stderr, report)
		cols := pipeline.DispatchColumns{Dispatch: *column, Due: *dueColumn, Status: *statusColumn, Invoice: *invoiceColumn}

		avg, ok := pipeline.AverageBusinessDays(pipeline.DispatchTimings(rows, cal, cols.Dispatch))
		if ok {
			fmt.Printf("dispatch rows=%d avgBusinessDays=%.2f\n", len(rows), avg)
		} else {
			fmt.Printf("dispatch rows=%d avgBusinessDays=n/a\n", len(rows))
		}
		for _, a := range pipeline.DueAlerts(rows, cal, time.Now(), cols, set.Statuses, *within) {
			state := "due"
			if a.Overdue {
				state = "overdue"
			}
			fmt.Printf("  %s reference=%s status=%s due=%s businessDays=%d\n", state, a.Reference, a.Status, a.Due.Format("2006-01-02"), a.BusinessDays)
		}
		for _, p := range pipeline.InvoicedNotDispatched(rows, cols, set.Statuses) {
			fmt.Printf("  critical invoiced-not-dispatched reference=%s invoice=%s status=%s\n", p.Reference, p.Invoice, p.Status)
		}
	case "sheet:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		ref := fs.String("url", "", "source reference (path, URL, gsheets:<id>[/<range>], intake:<pattern>)")
		sheetName := fs.String("sheet", "", "worksheet name")
		out := fs.String("out", "", "output csv")
		_ = fs.Parse(os.Args[2:])
		if *ref == "" || *out == "" {
			must(fmt.Errorf("--url and --out are required"))
		}
		loader.Sheet.Sheet = *sheetName
		grid, err := loader.Grid(ctx, *ref)
		must(err)
		must(pipeline.ExportGridCSV(grid, *out, cfg.CSVEncoding))
		fmt.Printf("sheet fetched rows=%d output=%s\n", len(grid), *out)
	case "cache:clear":
		must(memo.Invalidate())
		removed, err := db.ClearCache()
		must(err)
		fmt.Printf("cache cleared backend=%s stored=%d\n", firstNonEmpty(cfg.CacheBackend, "memory"), removed)
	case "catalog:sync":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		kindName := fs.String("kind", "commerces", "commerces|sellers")
		ref := fs.String("source", "", "catalog source")
		_ = fs.Parse(os.Args[2:])
		kind, err := kindByName(*kindName)
		must(err)
		if strings.TrimSpace(*ref) == "" {
			must(fmt.Errorf("--source is required"))
		}
		count, err := catalog.NewSyncService(db, loader).Sync(ctx, kind, *ref)
		must(err)
		fmt.Printf("catalog sync done kind=%s entries=%d\n", kind.Name, count)
	case "runs":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 10, "number of runs")
		_ = fs.Parse(os.Args[2:])
		runs, err := db.ListRuns(*limit)
		must(err)
		for _, r := range runs {
			fmt.Printf("%s %s label=%s output=%d matched=%d warnings=%d totalMs=%.1f\n",
				r.CreatedAt, r.TraceID, r.Label, r.Counts["output"], r.Counts["matched"], len(r.Warnings), r.Timings["totalMs"])
		}
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", firstNonEmpty(cfg.WatchMailProvider, "imap"), "gmail|imap")
		label := fs.String("label", cfg.WatchMailLabel, "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(ctx, cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(ctx, *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d known=%d sheets=%d skipped=%d\n", *provider, result.Fetched, result.Stored, result.Known, result.Sheets, result.Skipped)
	case "intake:extract":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		batch := fs.Int("batch", 50, "batch size")
		_ = fs.Parse(os.Args[2:])
		extractor := intake.NewService(db, cfg.IntakeDir, sheet.Options{Encoding: cfg.CSVEncoding}, log)
		res, err := extractor.ExtractPending(ctx, *batch)
		must(err)
		fmt.Printf("intake done messages=%d files=%d skipped=%d failed=%d dir=%s\n", res.Messages, res.Files, res.Skipped, res.Failed, cfg.IntakeDir)
	case "watch":
		s := watch.NewService(db, cfg, memo, loader, set, log)
		must(s.Run(ctx))
	default:
		usage()
		os.Exit(1)
	}
}

func periodInputs(ledger, aux, period string) ([]pipeline.PeriodInput, error) {
	ledgers := splitList(ledger)
	auxes := splitList(aux)
	periods := splitList(period)
	if len(ledgers) == 0 {
		return nil, fmt.Errorf("--ledger is required")
	}
	if len(auxes) > 0 && len(auxes) != len(ledgers) {
		return nil, fmt.Errorf("--aux has %d sources for %d ledgers", len(auxes), len(ledgers))
	}
	if len(periods) > 0 && len(periods) != len(ledgers) {
		return nil, fmt.Errorf("--period has %d labels for %d ledgers", len(periods), len(ledgers))
	}
	out := make([]pipeline.PeriodInput, len(ledgers))
	for i, l := range ledgers {
		out[i] = pipeline.PeriodInput{Ledger: l, Period: fmt.Sprintf("%d", i+1)}
		if len(auxes) > 0 {
			out[i].Aux = auxes[i]
		}
		if len(periods) > 0 {
			out[i].Period = periods[i]
		}
	}
	return out, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func exportTransactions(rows []internal.Transaction, output, enc string) error {
	if strings.EqualFold(filepath.Ext(output), ".csv") {
		return pipeline.ExportTransactionsCSV(rows, output, enc)
	}
	return pipeline.ExportTransactionsXLSX(rows, output)
}

func datasetByName(name string) (pipeline.Dataset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sales":
		return pipeline.SalesDataset, nil
	case "ledger":
		return pipeline.LedgerDataset, nil
	case "dispatch":
		return pipeline.DispatchDataset, nil
	default:
		return pipeline.Dataset{}, fmt.Errorf("unsupported dataset: %s", name)
	}
}

func kindByName(name string) (catalog.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case catalog.Commerces.Name:
		return catalog.Commerces, nil
	case catalog.Sellers.Name:
		return catalog.Sellers, nil
	default:
		return catalog.Kind{}, fmt.Errorf("unsupported catalog kind: %s", name)
	}
}

func makeConnector(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func parseDate(value string) *time.Time {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	t, ok := util.ParseAnyDate(value)
	if !ok {
		must(fmt.Errorf("invalid date: %s", value))
	}
	return t
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func usage() {
	fmt.Println("usage: ledgerrecon <command>")
	fmt.Println("commands:")
	fmt.Println("  reconcile --ledger=a.xlsx[,b.xlsx] [--aux=x.xlsx[,y.xlsx]] [--period=2024,2025] [--commerces=...] [--sellers=...] [--mode=inner|left] [--out=...xlsx|csv]")
	fmt.Println("  pareto --input=... [--dataset=sales] [--by=commerce] [--metric=amount] [--tiers] [--out=...csv]")
	fmt.Println("  match:titles --input=... --catalog=... [--key=REFERENCIA] [--name=TITULO] --out=...xlsx")
	fmt.Println("  dispatch --input=... [--column=\"FECHA DESPACHO\"] [--due-column=\"FECHA VENCIMIENTO\"] [--within=2]")
	fmt.Println("  calendar:busdays --from=03/01/2025 --to=07/01/2025")
	fmt.Println("  calendar:add --from=03/01/2025 --days=2")
	fmt.Println("  sheet:fetch --url=... [--sheet=...] --out=...csv")
	fmt.Println("  cache:clear")
	fmt.Println("  catalog:sync --kind=commerces|sellers --source=...")
	fmt.Println("  runs [--limit=10]")
	fmt.Println("  mail:fetch [--provider=gmail|imap] [--label=INBOX] [--max=50]")
	fmt.Println("  intake:extract [--batch=50]")
	fmt.Println("  watch")
}

// reportLoadError prints a structural load error; the command goes on with
// the empty dataset.
func reportLoadError(w io.Writer, report pipeline.LoadReport) {
	if report.Err != nil {
		fmt.Fprintf(w, "warning: %s: %v\n", report.Source, report.Err)
	}
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
