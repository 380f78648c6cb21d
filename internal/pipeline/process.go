package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ledgerrecon/internal"
	"ledgerrecon/internal/catalog"
	"ledgerrecon/internal/config"
	"ledgerrecon/internal/logger"
	"ledgerrecon/internal/rules"
	"ledgerrecon/internal/storage"
	"ledgerrecon/internal/util"
)

// Dataset describes how one kind of sheet is loaded: the fields it cannot
// be loaded without and the fields whose absence drops a row.
type Dataset struct {
	Name          string
	Required      []internal.Field
	DropIfMissing []internal.Field
}

var (
	LedgerDataset = Dataset{
		Name:          "ledger",
		Required:      []internal.Field{internal.FieldJoinKey, internal.FieldDate, internal.FieldAmount},
		DropIfMissing: []internal.Field{internal.FieldDate, internal.FieldJoinKey},
	}
	AuxDataset = Dataset{
		Name:     "aux",
		Required: []internal.Field{internal.FieldJoinKey, internal.FieldCounterpartyCode},
	}
	SalesDataset = Dataset{
		Name:          "sales",
		Required:      rules.DefaultRequired(),
		DropIfMissing: []internal.Field{internal.FieldDate, internal.FieldReference},
	}
	DispatchDataset = Dataset{
		Name:          "dispatch",
		Required:      []internal.Field{internal.FieldDate},
		DropIfMissing: []internal.Field{internal.FieldDate},
	}
)

type LoadReport struct {
	Source      string    `json:"source"`
	Dataset     string    `json:"dataset"`
	HeaderRow   int       `json:"headerRow"`
	HeaderFound bool      `json:"headerFound"`
	Stats       LoadStats `json:"stats"`
	Err         error     `json:"-"`
}

type Service struct {
	db     *storage.DB
	cfg    config.Config
	source catalog.GridSource
	rules  rules.Set
}

// NewService wires the pipeline to its grid source. db may be nil, in which
// case catalogs must be given by reference and runs are not recorded.
func NewService(db *storage.DB, cfg config.Config, source catalog.GridSource, set rules.Set) *Service {
	return &Service{db: db, cfg: cfg, source: source, rules: set}
}

// LoadDataset runs header location, column normalization and record loading
// on one source. Read failures and missing columns are reported in the
// LoadReport and yield an empty dataset.
func (s *Service) LoadDataset(ctx context.Context, ref string, ds Dataset, period string) ([]internal.Transaction, LoadReport) {
	log := logger.FromContext(ctx).With().Str("dataset", ds.Name).Str("source", ref).Logger()
	report := LoadReport{Source: ref, Dataset: ds.Name}

	grid, err := s.source.Grid(ctx, ref)
	if err != nil {
		report.Err = fmt.Errorf("load %s: %w", ds.Name, err)
		log.Error().Err(err).Msg("source read failed")
		return nil, report
	}

	report.HeaderRow, report.HeaderFound = LocateHeader(grid, s.rules.Keywords, s.cfg.HeaderSearchDepth)
	table := ApplyHeader(grid, report.HeaderRow)

	normalized, mapping, err := NormalizeColumns(table, s.rules.Columns, ds.Required)
	if err != nil {
		report.Err = fmt.Errorf("load %s: %w", ds.Name, err)
		var missing *MissingColumnsError
		if errors.As(err, &missing) {
			log.Error().Strs("available", missing.Available).Msg(err.Error())
		} else {
			log.Error().Err(err).Msg("column normalization failed")
		}
		return nil, report
	}
	log.Debug().Strs("columns", mapping.Resolved).Int("headerRow", report.HeaderRow).Msg("columns normalized")

	rows, stats := LoadTransactions(normalized, LoadOptions{
		Locale:        util.ParseLocale(s.cfg.NumberLocale),
		Period:        period,
		DropIfMissing: ds.DropIfMissing,
	})
	report.Stats = stats
	log.Info().
		Int("read", stats.Read).
		Int("kept", stats.Kept).
		Interface("dropped", stats.Dropped).
		Interface("zeroFilled", stats.ZeroFilled).
		Bool("dateFallback", stats.DateFallback).
		Msg("dataset loaded")
	return rows, report
}

// Catalogs resolves the commerce and seller catalogs. A failed load logs a
// warning and classifies with an empty catalog.
func (s *Service) Catalogs(ctx context.Context, commercesRef, sellersRef string) (*catalog.Catalog, *catalog.Catalog, []string) {
	var warnings []string
	load := func(kind catalog.Kind, ref string) *catalog.Catalog {
		if ref == "" && s.db == nil {
			return catalog.New(nil, kind.Options)
		}
		c, err := catalog.NewSyncService(s.db, s.source).Resolve(ctx, kind, ref)
		if err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Str("catalog", kind.Name).Msg("catalog unavailable")
			warnings = append(warnings, err.Error())
			return catalog.New(nil, kind.Options)
		}
		return c
	}
	return load(catalog.Commerces, commercesRef), load(catalog.Sellers, sellersRef), warnings
}

type PeriodInput struct {
	Period string
	Ledger string
	Aux    string
}

type ReconcileRequest struct {
	Periods   []PeriodInput
	Commerces string
	Sellers   string
	Mode      JoinMode
}

type PeriodReport struct {
	Period  string     `json:"period"`
	Ledger  LoadReport `json:"ledger"`
	Aux     LoadReport `json:"aux"`
	Join    JoinStats  `json:"join"`
	Warning string     `json:"warning,omitempty"`
}

type ReconcileResult struct {
	TraceID  string
	Rows     []internal.Transaction
	Periods  []PeriodReport
	Warnings []string
}

// Reconcile loads, joins and classifies each period in order and
// concatenates the results. The run is recorded when a database is set.
func (s *Service) Reconcile(ctx context.Context, req ReconcileRequest) (ReconcileResult, error) {
	if len(req.Periods) == 0 {
		return ReconcileResult{}, errors.New("no periods to reconcile")
	}
	mode := req.Mode
	if mode == "" {
		parsed, err := ParseJoinMode(s.cfg.JoinMode)
		if err != nil {
			return ReconcileResult{}, err
		}
		mode = parsed
	}

	start := time.Now()
	res := ReconcileResult{TraceID: uuid.NewString()}
	log := logger.FromContext(ctx).With().Str("traceId", res.TraceID).Logger()
	ctx = logger.WithContext(ctx, log)
	timings := map[string]float64{}
	counts := map[string]int{}

	stage := time.Now()
	commerces, sellers, warnings := s.Catalogs(ctx, req.Commerces, req.Sellers)
	res.Warnings = append(res.Warnings, warnings...)
	classifier := NewClassifier(s.rules, commerces, sellers)
	timings["catalogMs"] = msSince(stage)
	counts["commerces"] = commerces.Len()
	counts["sellers"] = sellers.Len()

	for _, p := range req.Periods {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		stage = time.Now()
		rows, report := s.reconcilePeriod(ctx, p, mode)
		for _, r := range []LoadReport{report.Ledger, report.Aux} {
			if r.Err != nil {
				res.Warnings = append(res.Warnings, r.Err.Error())
			}
		}
		if report.Warning != "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %s", p.Period, report.Warning))
		}
		res.Rows = append(res.Rows, classifier.Classify(rows)...)
		res.Periods = append(res.Periods, report)

		timings["period."+p.Period+"Ms"] = msSince(stage)
		counts["ledgerKept"] += report.Ledger.Stats.Kept
		counts["auxKept"] += report.Aux.Stats.Kept
		counts["matched"] += report.Join.Matched
		counts["unmatched"] += report.Join.Unmatched
		counts["duplicates"] += report.Join.LeftDuplicates + report.Join.RightDuplicates
	}

	counts["output"] = len(res.Rows)
	timings["totalMs"] = msSince(start)
	log.Info().Interface("counts", counts).Int("warnings", len(res.Warnings)).Msg("reconcile done")

	if s.db != nil {
		if err := s.db.InsertRun(res.TraceID, runLabel(req.Periods), timings, counts, res.Warnings); err != nil {
			log.Warn().Err(err).Msg("run not recorded")
		}
	}
	return res, nil
}

func (s *Service) reconcilePeriod(ctx context.Context, p PeriodInput, mode JoinMode) ([]internal.Transaction, PeriodReport) {
	log := logger.FromContext(ctx).With().Str("period", p.Period).Logger()
	report := PeriodReport{Period: p.Period}

	ledger, ledgerReport := s.LoadDataset(ctx, p.Ledger, LedgerDataset, p.Period)
	report.Ledger = ledgerReport
	if strings.TrimSpace(p.Aux) == "" {
		return ledger, report
	}

	aux, auxReport := s.LoadDataset(ctx, p.Aux, AuxDataset, p.Period)
	report.Aux = auxReport

	joined := Join(ledger, aux, JoinOptions{Mode: mode})
	report.Join = joined.Stats
	report.Warning = joined.Warning
	logJoin(log, joined)
	return joined.Transactions(), report
}

// Classified loads a single sheet and classifies it, for analytics over
// data that needs no join.
func (s *Service) Classified(ctx context.Context, ref string, ds Dataset, period, commercesRef, sellersRef string) ([]internal.Transaction, LoadReport, []string) {
	rows, report := s.LoadDataset(ctx, ref, ds, period)
	commerces, sellers, warnings := s.Catalogs(ctx, commercesRef, sellersRef)
	return NewClassifier(s.rules, commerces, sellers).Classify(rows), report, warnings
}

func logJoin(log zerolog.Logger, joined JoinResult) {
	ev := log.Info()
	if joined.Warning != "" {
		ev = log.Warn().Str("warning", joined.Warning)
	}
	ev.Int("leftRows", joined.Stats.LeftRows).
		Int("rightRows", joined.Stats.RightRows).
		Int("leftDuplicates", joined.Stats.LeftDuplicates).
		Int("rightDuplicates", joined.Stats.RightDuplicates).
		Int("rightEmptyKeys", joined.Stats.RightEmptyKeys).
		Int("matched", joined.Stats.Matched).
		Int("output", joined.Stats.Output).
		Msg("datasets joined")
}

func runLabel(periods []PeriodInput) string {
	names := make([]string, 0, len(periods))
	for _, p := range periods {
		names = append(names, p.Period)
	}
	return strings.Join(names, ",")
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
