package parser

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

// maxEntryBytes bounds a single metadata entry read from a package.
const maxEntryBytes = 32 << 20

// parsePAXFile reads a PAX package (a ZIP archive). Every .opex entry becomes one
// record tagged with its package path; packages without OPEX sidecars fall back to
// their .xml entries, flattened as generic XML.
func parsePAXFile(file string) *Table {
	zr, err := zip.OpenReader(file)
	if err != nil {
		return emptyTable(FormatPAX, fmt.Errorf("open package: %w", err))
	}
	defer zr.Close()

	entries := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if !f.FileInfo().IsDir() {
			entries = append(entries, f)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	var bags []*fieldBag
	for _, f := range entries {
		if !strings.EqualFold(path.Ext(f.Name), ".opex") {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return emptyTable(FormatPAX, err)
		}
		bag, err := opexRecord(data)
		if err != nil {
			return emptyTable(FormatPAX, fmt.Errorf("%s: %w", f.Name, err))
		}
		bag.set("pax_path", f.Name)
		bags = append(bags, bag)
	}

	if len(bags) == 0 {
		for _, f := range entries {
			if !strings.EqualFold(path.Ext(f.Name), ".xml") {
				continue
			}
			data, err := readEntry(f)
			if err != nil {
				return emptyTable(FormatPAX, err)
			}
			t := parseXML(data)
			if t.Failure != nil {
				return emptyTable(FormatPAX, fmt.Errorf("%s: %w", f.Name, t.Failure))
			}
			for _, row := range t.Rows {
				bag := newFieldBag()
				for i, h := range t.Headers {
					bag.set(h, row[i])
				}
				bag.set("pax_path", f.Name)
				bags = append(bags, bag)
			}
		}
	}

	if len(bags) == 0 {
		return emptyTable(FormatPAX, fmt.Errorf("package contains no OPEX or XML metadata"))
	}
	return tableFromBags(FormatPAX, bags)
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}
