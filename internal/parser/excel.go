package parser

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

func parseExcelFile(path string, opts Options) *Table {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return emptyTable(FormatExcel, fmt.Errorf("open workbook: %w", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if opts.SheetIndex < 0 || opts.SheetIndex >= len(sheets) {
		return emptyTable(FormatExcel, fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", opts.SheetIndex, len(sheets)))
	}

	rows, err := f.GetRows(sheets[opts.SheetIndex])
	if err != nil {
		return emptyTable(FormatExcel, fmt.Errorf("read sheet %q: %w", sheets[opts.SheetIndex], err))
	}
	return buildTable(FormatExcel, rows, opts.FirstRowIsHeader)
}
