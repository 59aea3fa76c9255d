// Package parser turns source files of any supported format into a uniform Table
// of named columns and string cells.
package parser

import (
	"fmt"
	"strings"

	"github.com/BartekS5/archimport/pkg/utils"
)

// Format identifies a source file format.
type Format string

const (
	FormatUnknown Format = ""
	FormatCSV     Format = "csv"
	FormatExcel   Format = "excel"
	FormatJSON    Format = "json"
	FormatXML     Format = "xml"
	FormatOPEX    Format = "opex"
	FormatPAX     Format = "pax"
)

// Options controls how a file is read.
type Options struct {
	// SheetIndex is the zero-based worksheet read from Excel workbooks.
	SheetIndex int
	// FirstRowIsHeader treats the first CSV/Excel row as column names.
	// When false, columns are named A, B, ... Z, AA, AB, ...
	FirstRowIsHeader bool
	// Delimiter is "auto", "tab", or a single character.
	Delimiter string
	// FormatHint overrides extension-based detection when set.
	FormatHint Format
}

// DefaultOptions reads the first sheet with a header row and auto-detected delimiter.
func DefaultOptions() Options {
	return Options{FirstRowIsHeader: true, Delimiter: "auto"}
}

// Table is a parsed source: ordered unique headers and rows of equal width.
type Table struct {
	Headers []string
	Rows    [][]string
	Format  Format
	// Failure explains why a table is empty when the file could not be read.
	Failure error

	index map[string]int
}

// RowCount is the number of data rows.
func (t *Table) RowCount() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Column returns the position of header, or -1.
func (t *Table) Column(header string) int {
	if t.index == nil {
		t.index = make(map[string]int, len(t.Headers))
		for i, h := range t.Headers {
			t.index[h] = i
		}
	}
	if i, ok := t.index[header]; ok {
		return i
	}
	return -1
}

// Value returns the cell of row under header, or "" when the header is absent.
func (t *Table) Value(row int, header string) string {
	col := t.Column(header)
	if col < 0 || row < 0 || row >= len(t.Rows) {
		return ""
	}
	return t.Rows[row][col]
}

func emptyTable(format Format, err error) *Table {
	return &Table{Format: format, Failure: err}
}

// buildTable shapes raw rows into a Table. With a header row, width follows the
// header; without one, width is the widest row and names are column letters.
func buildTable(format Format, raw [][]string, firstRowIsHeader bool) *Table {
	t := &Table{Format: format}
	if len(raw) == 0 {
		t.Failure = fmt.Errorf("no rows found")
		return t
	}

	var data [][]string
	if firstRowIsHeader {
		t.Headers = uniqueHeaders(raw[0])
		data = raw[1:]
	} else {
		width := 0
		for _, r := range raw {
			if len(r) > width {
				width = len(r)
			}
		}
		t.Headers = make([]string, width)
		for i := range t.Headers {
			t.Headers[i] = utils.ColumnLetters(i)
		}
		data = raw
	}

	width := len(t.Headers)
	t.Rows = make([][]string, 0, len(data))
	for _, r := range data {
		t.Rows = append(t.Rows, fitRow(r, width))
	}
	return t
}

func fitRow(r []string, width int) []string {
	if len(r) == width {
		return r
	}
	out := make([]string, width)
	copy(out, r)
	return out
}

// uniqueHeaders trims header names, names blank ones by column letter,
// and suffixes repeats with _2, _3, ...
func uniqueHeaders(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = utils.ColumnLetters(i)
		}
		name := h
		for n := seen[h]; n > 0; n++ {
			candidate := fmt.Sprintf("%s_%d", h, n+1)
			if seen[candidate] == 0 {
				name = candidate
				break
			}
		}
		seen[h]++
		if name != h {
			seen[name]++
		}
		out[i] = name
	}
	return out
}
