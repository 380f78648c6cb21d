package gsheets

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/option"

	"ledgerrecon/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestExportURL(t *testing.T) {
	got, ok := ExportURL("https://docs.google.com/spreadsheets/d/1AbC_d-9/edit#gid=0")
	if !ok || got != "https://docs.google.com/spreadsheets/d/1AbC_d-9/export?format=xlsx" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
	if _, ok := ExportURL("https://example.test/report.xlsx"); ok {
		t.Fatal("non google url must not be rewritten")
	}
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	attempt := 0
	client := NewClient(config.Config{SheetsRateLimitRPS: 1000, SheetsTimeoutMs: 1000})
	client.backoff = time.Millisecond
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempt++
			if attempt == 1 {
				return &http.Response{
					StatusCode: http.StatusServiceUnavailable,
					Body:       io.NopCloser(strings.NewReader("busy")),
					Header:     make(http.Header),
				}, nil
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader("payload")),
				Header:     make(http.Header),
			}, nil
		}),
	}

	body, err := client.Download(context.Background(), "https://example.test/export")
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "payload" || attempt != 2 {
		t.Fatalf("body=%q attempts=%d", body, attempt)
	}
}

func TestDownloadFailsOnClientError(t *testing.T) {
	client := NewClient(config.Config{SheetsRateLimitRPS: 1000, SheetsTimeoutMs: 1000})
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusNotFound,
				Body:       io.NopCloser(strings.NewReader("nope")),
				Header:     make(http.Header),
			}, nil
		}),
	}
	if _, err := client.Download(context.Background(), "https://example.test/missing"); err == nil {
		t.Fatal("expected error")
	}
}

func TestValuesReaderConvertsCells(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/values/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"range":"Hoja1!A1:C2","majorDimension":"ROWS","values":[["NRO","FECHA","VALOR"],["A-1",45658,1500.5],["", true]]}`)
	}))
	defer srv.Close()

	reader, err := NewValuesReader(context.Background(), config.Config{SheetsRateLimitRPS: 1000},
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	grid, err := reader.Values(context.Background(), "sheet-id", "Hoja1!A1:C2")
	if err != nil {
		t.Fatal(err)
	}
	if len(grid) != 3 || grid[0][0] != "NRO" {
		t.Fatalf("grid %v", grid)
	}
	if v, _ := grid[1][1].(float64); v != 45658 {
		t.Fatalf("serial cell %v", grid[1][1])
	}
	if grid[2][0] != nil || grid[2][1] != true {
		t.Fatalf("row 3 %v", grid[2])
	}
}
