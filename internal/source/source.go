package source

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"ledgerrecon/internal"
	"ledgerrecon/internal/cache"
	"ledgerrecon/internal/config"
	"ledgerrecon/internal/connectors/gsheets"
	"ledgerrecon/internal/intake"
	"ledgerrecon/internal/sheet"
)

const (
	sheetsPrefix = "gsheets:"
	intakePrefix = "intake:"
)

type Downloader interface {
	Download(ctx context.Context, rawURL string) ([]byte, error)
}

type ValuesReader interface {
	Values(ctx context.Context, spreadsheetID, readRange string) (internal.RawGrid, error)
}

// Loader resolves a source reference to a grid. References are local paths,
// http(s) URLs (Google Sheets links are fetched as xlsx exports),
// gsheets:<id>[/<range>] for the Sheets API and intake:<pattern> for the
// newest matching mail attachment.
type Loader struct {
	Cache     cache.Cache
	Sheet     sheet.Options
	Downloads Downloader
	Values    ValuesReader
	IntakeDir string
	Log       zerolog.Logger
}

// New builds the loader used by the commands. The Sheets API reader is only
// wired when Google credentials are configured.
func New(ctx context.Context, cfg config.Config, c cache.Cache, log zerolog.Logger) *Loader {
	l := &Loader{
		Cache:     c,
		Sheet:     sheet.Options{Encoding: cfg.CSVEncoding},
		Downloads: gsheets.NewClient(cfg),
		IntakeDir: cfg.IntakeDir,
		Log:       log,
	}
	if strings.TrimSpace(cfg.GoogleRefreshToken) != "" || strings.TrimSpace(cfg.GoogleAPIKey) != "" {
		values, err := gsheets.NewValuesReader(ctx, cfg)
		if err != nil {
			log.Warn().Err(err).Msg("sheets api disabled")
		} else {
			l.Values = values
		}
	}
	return l
}

func (l *Loader) Grid(ctx context.Context, ref string) (internal.RawGrid, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return nil, fmt.Errorf("%w: empty reference", internal.ErrUnsupportedSource)
	case strings.HasPrefix(ref, sheetsPrefix):
		return l.remote(ref, func() (internal.RawGrid, error) { return l.sheetValues(ctx, ref) })
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return l.remote(ref, func() (internal.RawGrid, error) { return l.download(ctx, ref) })
	case strings.HasPrefix(ref, intakePrefix):
		p, err := intake.Latest(l.IntakeDir, strings.TrimPrefix(ref, intakePrefix))
		if err != nil {
			return nil, err
		}
		return l.file(p)
	default:
		return l.file(ref)
	}
}

// remote serves URL-keyed grids from the cache until their TTL runs out.
func (l *Loader) remote(ref string, load func() (internal.RawGrid, error)) (internal.RawGrid, error) {
	key := cache.URLKey(ref + "#" + l.Sheet.Sheet)
	if grid, ok := l.cache().Get(key); ok {
		l.Log.Debug().Str("source", ref).Msg("cache hit")
		return grid, nil
	}
	grid, err := load()
	if err != nil {
		return nil, err
	}
	if err := l.cache().Put(key, grid); err != nil {
		l.Log.Warn().Err(err).Str("source", ref).Msg("cache put failed")
	}
	return grid, nil
}

// file keys local grids by content, so an edited file is always re-read.
func (l *Loader) file(p string) (internal.RawGrid, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(p)
	key := cache.ContentKey(name+"#"+l.Sheet.Sheet, data)
	if grid, ok := l.cache().Get(key); ok {
		l.Log.Debug().Str("source", p).Msg("cache hit")
		return grid, nil
	}
	grid, err := sheet.Read(name, data, l.Sheet)
	if err != nil {
		return nil, err
	}
	if err := l.cache().Put(key, grid); err != nil {
		l.Log.Warn().Err(err).Str("source", p).Msg("cache put failed")
	}
	return grid, nil
}

func (l *Loader) download(ctx context.Context, ref string) (internal.RawGrid, error) {
	if l.Downloads == nil {
		return nil, fmt.Errorf("%w: no downloader for %s", internal.ErrUnsupportedSource, ref)
	}
	target, isSheet := gsheets.ExportURL(ref)
	name := "export.xlsx"
	if !isSheet {
		u, err := url.Parse(ref)
		if err != nil {
			return nil, err
		}
		name = path.Base(u.Path)
	}
	data, err := l.Downloads.Download(ctx, target)
	if err != nil {
		return nil, err
	}
	return sheet.Read(name, data, l.Sheet)
}

func (l *Loader) sheetValues(ctx context.Context, ref string) (internal.RawGrid, error) {
	if l.Values == nil {
		return nil, fmt.Errorf("%w: sheets api not configured", internal.ErrUnsupportedSource)
	}
	id, readRange := ParseSheetsRef(ref)
	if id == "" {
		return nil, fmt.Errorf("%w: %s", internal.ErrUnsupportedSource, ref)
	}
	if readRange == "" {
		readRange = l.Sheet.Sheet
	}
	if readRange == "" {
		readRange = "A:ZZ"
	}
	grid, err := l.Values.Values(ctx, id, readRange)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("read %s: %w", ref, internal.ErrEmptyGrid)
	}
	return grid, nil
}

// ParseSheetsRef splits gsheets:<id>/<range> into its parts.
func ParseSheetsRef(ref string) (string, string) {
	rest := strings.TrimPrefix(strings.TrimSpace(ref), sheetsPrefix)
	id, readRange, _ := strings.Cut(rest, "/")
	return strings.TrimSpace(id), strings.TrimSpace(readRange)
}

func (l *Loader) cache() cache.Cache {
	if l.Cache == nil {
		return cache.Nop{}
	}
	return l.Cache
}
