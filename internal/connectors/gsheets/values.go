package gsheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"ledgerrecon/internal"
	"ledgerrecon/internal/config"
)

// ValuesReader reads cell ranges through the Sheets API v4.
type ValuesReader struct {
	service *sheets.Service
	limiter *RateLimiter
}

// NewValuesReader authenticates with the OAuth refresh token when present,
// otherwise with the API key (public sheets only).
func NewValuesReader(ctx context.Context, cfg config.Config, opts ...option.ClientOption) (*ValuesReader, error) {
	if len(opts) == 0 {
		auth, err := authOption(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, auth)
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &ValuesReader{service: svc, limiter: NewRateLimiter(cfg.SheetsRateLimitRPS)}, nil
}

func authOption(ctx context.Context, cfg config.Config) (option.ClientOption, error) {
	if strings.TrimSpace(cfg.GoogleRefreshToken) != "" {
		if err := cfg.Require("GOOGLE_CLIENT_ID", cfg.GoogleClientID); err != nil {
			return nil, err
		}
		if err := cfg.Require("GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret); err != nil {
			return nil, err
		}
		oauthCfg := &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  cfg.GoogleRedirectURI,
			Scopes:       []string{sheets.SpreadsheetsReadonlyScope},
		}
		ts := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GoogleRefreshToken})
		return option.WithTokenSource(ts), nil
	}
	if strings.TrimSpace(cfg.GoogleAPIKey) != "" {
		return option.WithAPIKey(cfg.GoogleAPIKey), nil
	}
	return nil, errors.New("missing GOOGLE_REFRESH_TOKEN or GOOGLE_API_KEY")
}

// Values returns the range unformatted, with dates as serial numbers so the
// loader parses them like xlsx cells.
func (r *ValuesReader) Values(ctx context.Context, spreadsheetID, readRange string) (internal.RawGrid, error) {
	if err := r.limiter.WaitTurn(ctx); err != nil {
		return nil, err
	}
	resp, err := r.service.Spreadsheets.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets values %s: %w", spreadsheetID, err)
	}
	return toGrid(resp.Values), nil
}

func toGrid(values [][]interface{}) internal.RawGrid {
	grid := make(internal.RawGrid, 0, len(values))
	for _, row := range values {
		out := make([]any, len(row))
		for i, v := range row {
			switch t := v.(type) {
			case string:
				if strings.TrimSpace(t) == "" {
					continue
				}
				out[i] = t
			case float64, bool:
				out[i] = t
			case nil:
			default:
				out[i] = fmt.Sprint(t)
			}
		}
		grid = append(grid, out)
	}
	return grid
}
