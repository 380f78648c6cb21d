package sheet

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ledgerrecon/internal"
)

type Options struct {
	// Sheet selects a worksheet by name; empty means the first one.
	Sheet string
	// Encoding of CSV input: utf-8, latin1 or windows1252.
	Encoding string
}

// Kind guesses the source kind from a file name.
func Kind(name string) (internal.SourceKind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return internal.SourceXLSX, nil
	case ".csv", ".txt":
		return internal.SourceCSV, nil
	case ".html", ".htm", ".xls":
		return internal.SourceHTML, nil
	case ".pdf":
		return internal.SourcePDF, nil
	default:
		return "", fmt.Errorf("%w: %s", internal.ErrUnsupportedSource, name)
	}
}

func Open(path string, opts Options) (internal.RawGrid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Read(filepath.Base(path), data, opts)
}

// Read parses an in-memory file, using name only to pick the reader.
func Read(name string, data []byte, opts Options) (internal.RawGrid, error) {
	kind, err := Kind(name)
	if err != nil {
		return nil, err
	}
	var grid internal.RawGrid
	switch kind {
	case internal.SourceXLSX:
		grid, err = ReadXLSX(bytes.NewReader(data), opts.Sheet)
	case internal.SourceCSV:
		grid, err = ReadCSV(bytes.NewReader(data), opts.Encoding)
	case internal.SourceHTML:
		if !looksLikeHTML(data) {
			return nil, fmt.Errorf("%w: %s is a binary workbook, re-export it as .xlsx", internal.ErrUnsupportedSource, name)
		}
		grid, err = ReadHTML(bytes.NewReader(data))
	case internal.SourcePDF:
		grid, err = ReadPDF(data)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("read %s: %w", name, internal.ErrEmptyGrid)
	}
	return grid, nil
}

func looksLikeHTML(data []byte) bool {
	head := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), " \t\r\n")
	return len(head) > 0 && head[0] == '<'
}
