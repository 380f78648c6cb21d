package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"ledgerrecon/internal/cache"
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
	"ledgerrecon/internal/storage"
)

const extractBatch = 50

// Service refreshes the reconciled export on a cron schedule: it drops the
// memoized grids, pulls new mail attachments when a provider is set and
// reconciles the configured sources again.
type Service struct {
	db       *storage.DB
	cfg      config.Config
	cache    cache.Cache
	pipeline *pipeline.Service
	log      zerolog.Logger

	connector func(ctx context.Context, provider string) (connectors.MailConnector, error)
	now       func() time.Time
}

func NewService(db *storage.DB, cfg config.Config, c cache.Cache, source catalog.GridSource, set rules.Set, log zerolog.Logger) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	s := &Service{
		db:       db,
		cfg:      cfg,
		cache:    c,
		pipeline: pipeline.NewService(db, cfg, source, set),
		log:      log,
		now:      time.Now,
	}
	s.connector = s.makeConnector
	return s
}

type CycleResult struct {
	Fetched   connectors.FetchResult
	Extracted intake.Result
	Rows      int
	Output    string
	Warnings  []string
}

// Run executes one cycle right away and then one per schedule tick until
// ctx is cancelled. Cycle errors are logged and do not stop the loop.
func (s *Service) Run(ctx context.Context) error {
	sched, err := cron.ParseStandard(strings.TrimSpace(s.cfg.WatchSchedule))
	if err != nil {
		return fmt.Errorf("invalid WATCH_SCHEDULE %q: %w", s.cfg.WatchSchedule, err)
	}
	if sched.Next(s.now()).IsZero() {
		return fmt.Errorf("WATCH_SCHEDULE %q never fires", s.cfg.WatchSchedule)
	}

	for {
		if _, err := s.RunCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error().Err(err).Msg("watch cycle failed")
		}

		now := s.now()
		next := sched.Next(now)
		if next.IsZero() {
			return fmt.Errorf("WATCH_SCHEDULE %q has no further runs", s.cfg.WatchSchedule)
		}
		s.log.Info().Time("next", next).Msg("next refresh scheduled")

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult
	periods, err := ParseSources(s.cfg.WatchSources, s.cfg.WatchPeriod)
	if err != nil {
		return res, err
	}

	if err := s.cache.Invalidate(); err != nil {
		s.log.Warn().Err(err).Msg("cache invalidation failed")
	}

	if provider := strings.ToLower(strings.TrimSpace(s.cfg.WatchMailProvider)); provider != "" {
		mail, err := s.connector(ctx, provider)
		if err != nil {
			return res, err
		}
		fetch := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mail)
		res.Fetched, err = fetch.FetchAndStore(ctx, s.cfg.WatchMailLabel, s.cfg.WatchMailFetchMax)
		if err != nil {
			return res, err
		}
		extractor := intake.NewService(s.db, s.cfg.IntakeDir, sheet.Options{Encoding: s.cfg.CSVEncoding}, s.log)
		res.Extracted, err = extractor.ExtractPending(ctx, extractBatch)
		if err != nil {
			return res, err
		}
	}

	if len(periods) == 0 {
		s.log.Info().Int("fetched", res.Fetched.Fetched).Int("files", res.Extracted.Files).Msg("watch cycle done, no sources configured")
		return res, nil
	}

	ctx = logger.WithContext(ctx, s.log)
	recon, err := s.pipeline.Reconcile(ctx, pipeline.ReconcileRequest{
		Periods:   periods,
		Commerces: s.cfg.WatchCommerces,
		Sellers:   s.cfg.WatchSellers,
	})
	if err != nil {
		return res, err
	}
	res.Rows = len(recon.Rows)
	res.Warnings = recon.Warnings

	filename := fmt.Sprintf("%s_%s.xlsx", s.now().Format("20060102T150405"), sanitizeName(runLabel(periods)))
	res.Output = filepath.Join(s.cfg.OutputDir, "watch", filename)
	if err := pipeline.ExportTransactionsXLSX(recon.Rows, res.Output); err != nil {
		return res, err
	}

	s.log.Info().
		Str("traceId", recon.TraceID).
		Int("fetched", res.Fetched.Fetched).
		Int("stored", res.Fetched.Stored).
		Int("files", res.Extracted.Files).
		Int("rows", res.Rows).
		Int("warnings", len(res.Warnings)).
		Str("output", res.Output).
		Msg("watch cycle done")
	return res, nil
}

func (s *Service) makeConnector(ctx context.Context, provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(ctx, s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", provider)
	}
}

// ParseSources reads WATCH_SOURCES entries shaped as
// [period=]ledger[|aux]. Entries without a period take defaultPeriod, or
// their position when that is empty too.
func ParseSources(entries []string, defaultPeriod string) ([]pipeline.PeriodInput, error) {
	out := make([]pipeline.PeriodInput, 0, len(entries))
	for i, entry := range entries {
		period, refs := defaultPeriod, strings.TrimSpace(entry)
		if p, rest, ok := strings.Cut(refs, "="); ok && !strings.ContainsAny(p, "/:|") {
			period, refs = strings.TrimSpace(p), rest
		}
		ledger, aux, _ := strings.Cut(refs, "|")
		ledger, aux = strings.TrimSpace(ledger), strings.TrimSpace(aux)
		if ledger == "" {
			return nil, fmt.Errorf("watch source %d has no ledger: %q", i+1, entry)
		}
		if period == "" {
			period = fmt.Sprintf("source-%d", i+1)
		}
		out = append(out, pipeline.PeriodInput{Period: period, Ledger: ledger, Aux: aux})
	}
	return out, nil
}

func runLabel(periods []pipeline.PeriodInput) string {
	names := make([]string, 0, len(periods))
	for _, p := range periods {
		names = append(names, p.Period)
	}
	return strings.Join(names, "-")
}

func sanitizeName(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
