package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BartekS5/archimport/pkg/logger"
)

// opexNamespace marks an XML document as OPEX regardless of its extension.
const opexNamespace = "openpreservationexchange.org/opex"

// sniffBytes bounds how much of an .xml file is inspected for the OPEX marker.
const sniffBytes = 64 * 1024

// DetectFormat infers the format from the extension, sniffing .xml content for OPEX.
func DetectFormat(path string) Format {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".pax.zip"):
		return FormatPAX
	}
	switch filepath.Ext(name) {
	case ".csv", ".txt", ".tsv":
		return FormatCSV
	case ".xlsx", ".xlsm":
		return FormatExcel
	case ".json":
		return FormatJSON
	case ".opex":
		return FormatOPEX
	case ".pax", ".zip":
		return FormatPAX
	case ".xml":
		if looksLikeOPEX(path) {
			return FormatOPEX
		}
		return FormatXML
	default:
		return FormatUnknown
	}
}

func looksLikeOPEX(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	head, err := io.ReadAll(io.LimitReader(f, sniffBytes))
	if err != nil {
		return false
	}
	return bytes.Contains(head, []byte(opexNamespace))
}

// Parse reads the file at path into a Table. It never returns nil: an unreadable
// or unsupported file yields an empty table whose Failure says why.
func Parse(path string, opts Options) *Table {
	format := opts.FormatHint
	if format == FormatUnknown {
		format = DetectFormat(path)
	}

	t := parse(path, format, opts)
	if t.Failure != nil {
		logger.With("file", path, "format", string(format)).Warn("source could not be parsed", "error", t.Failure)
		t.Headers, t.Rows = nil, nil
	}
	return t
}

func parse(path string, format Format, opts Options) *Table {
	if _, err := os.Stat(path); err != nil {
		return emptyTable(format, fmt.Errorf("source file unavailable: %w", err))
	}

	switch format {
	case FormatCSV:
		if opts.Delimiter == "" || strings.EqualFold(opts.Delimiter, "auto") {
			if strings.EqualFold(filepath.Ext(path), ".tsv") {
				opts.Delimiter = "tab"
			}
		}
		return parseCSVFile(path, opts)
	case FormatExcel:
		return parseExcelFile(path, opts)
	case FormatJSON:
		return parseJSONFile(path)
	case FormatXML:
		return parseXMLFile(path)
	case FormatOPEX:
		return parseOPEXFile(path)
	case FormatPAX:
		return parsePAXFile(path)
	default:
		if strings.EqualFold(filepath.Ext(path), ".xls") {
			return emptyTable(format, fmt.Errorf("legacy .xls workbooks are not supported, save the file as .xlsx"))
		}
		return emptyTable(format, fmt.Errorf("unsupported file type %q", filepath.Ext(path)))
	}
}
