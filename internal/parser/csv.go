package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// delimiterCandidates is also the tie-break priority order.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// DetectDelimiter picks the candidate occurring most often in the first line.
// Ties go to the earlier candidate; a line with none of them falls back to ','.
func DetectDelimiter(firstLine string) rune {
	best, bestCount := ',', 0
	for _, c := range delimiterCandidates {
		if n := strings.Count(firstLine, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

// resolveDelimiter turns the option value into a rune, detecting it when needed.
func resolveDelimiter(opt string, text []byte) (rune, error) {
	switch strings.ToLower(opt) {
	case "", "auto":
		return DetectDelimiter(firstLine(text)), nil
	case "tab", `\t`:
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(opt)
	if size != len(opt) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", opt)
	}
	return r, nil
}

func firstLine(text []byte) string {
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimRight(string(text), "\r")
}

func parseCSVFile(path string, opts Options) *Table {
	data, err := os.ReadFile(path)
	if err != nil {
		return emptyTable(FormatCSV, fmt.Errorf("read csv: %w", err))
	}
	return parseCSV(data, opts)
}

func parseCSV(data []byte, opts Options) *Table {
	text, _, err := decodeText(data)
	if err != nil {
		return emptyTable(FormatCSV, fmt.Errorf("decode csv: %w", err))
	}

	delim, err := resolveDelimiter(opts.Delimiter, text)
	if err != nil {
		return emptyTable(FormatCSV, err)
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = delim
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return emptyTable(FormatCSV, fmt.Errorf("parse csv: %w", err))
	}
	t := buildTable(FormatCSV, rows, opts.FirstRowIsHeader)
	return t
}
