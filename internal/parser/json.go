package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/BartekS5/archimport/pkg/utils"
)

// recordKeys are the object keys that may wrap a record array.
var recordKeys = []string{"records", "data"}

func parseJSONFile(path string) *Table {
	data, err := os.ReadFile(path)
	if err != nil {
		return emptyTable(FormatJSON, fmt.Errorf("read json: %w", err))
	}
	return parseJSON(data)
}

// parseJSON accepts a top-level array of objects, or an object holding one under
// "records" or "data". Headers come from the first record's keys, in order.
func parseJSON(data []byte) *Table {
	data = bytes.TrimPrefix(data, bomUTF8)

	items, err := recordArray(data)
	if err != nil {
		return emptyTable(FormatJSON, err)
	}
	if len(items) == 0 {
		return emptyTable(FormatJSON, fmt.Errorf("no records found"))
	}

	headers, err := objectKeys(items[0])
	if err != nil {
		return emptyTable(FormatJSON, fmt.Errorf("first record: %w", err))
	}

	t := &Table{Format: FormatJSON, Headers: headers}
	for i, raw := range items {
		var rec map[string]interface{}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			return emptyTable(FormatJSON, fmt.Errorf("record %d is not an object: %w", i+1, err))
		}
		row := make([]string, len(headers))
		for c, h := range headers {
			row[c] = utils.Stringify(rec[h])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func recordArray(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty json document")
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("parse json array: %w", err)
		}
		return items, nil
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("parse json object: %w", err)
		}
		for _, key := range recordKeys {
			raw, ok := wrapper[key]
			if !ok {
				continue
			}
			var items []json.RawMessage
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("%q is not an array: %w", key, err)
			}
			return items, nil
		}
		return nil, fmt.Errorf("json object has no \"records\" or \"data\" array")
	default:
		return nil, fmt.Errorf("invalid json: expected { or [")
	}
}

// objectKeys lists the top-level keys of a JSON object in document order.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("record is not an object")
	}

	var keys []string
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
