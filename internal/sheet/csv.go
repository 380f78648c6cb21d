package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"ledgerrecon/internal"
)

// ReadCSV reads delimited text. The delimiter (comma, semicolon or tab) is
// sniffed from the first 4 KiB; Latin-1 and Windows-1252 input is decoded.
func ReadCSV(r io.Reader, encoding string) (internal.RawGrid, error) {
	switch strings.ToLower(strings.ReplaceAll(encoding, "-", "")) {
	case "latin1", "iso88591":
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	case "windows1252", "cp1252":
		r = charmap.Windows1252.NewDecoder().Reader(r)
	}

	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte("\xef\xbb\xbf")) {
		_, _ = br.Discard(3)
	}
	first, _ := br.Peek(4096)

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(first)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var grid internal.RawGrid
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		cells := make([]any, len(record))
		for i, v := range record {
			if strings.TrimSpace(v) != "" {
				cells[i] = v
			}
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

// sniffDelimiter votes per line of the sample: each line backs the delimiter
// it contains most often, lines with a tie or none abstain. Title rows above
// the header therefore do not decide the delimiter.
func sniffDelimiter(sample []byte) rune {
	candidates := []rune{',', ';', '\t'}
	votes := make(map[rune]int, len(candidates))
	totals := make(map[rune]int, len(candidates))
	for _, line := range bytes.Split(sample, []byte("\n")) {
		var lineBest rune
		lineCount, tied := 0, false
		for _, d := range candidates {
			n := bytes.Count(line, []byte(string(d)))
			totals[d] += n
			switch {
			case n > lineCount:
				lineBest, lineCount, tied = d, n, false
			case n > 0 && n == lineCount:
				tied = true
			}
		}
		if lineCount > 0 && !tied {
			votes[lineBest]++
		}
	}

	best := ','
	for _, d := range candidates[1:] {
		if votes[d] > votes[best] || (votes[d] == votes[best] && totals[d] > totals[best]) {
			best = d
		}
	}
	return best
}
