package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html/charset"
)

// repeatSeparator joins repeated leaf values within one flattened record.
const repeatSeparator = " | "

type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
	Nodes   []xmlNode  `xml:",any"`
}

func (n *xmlNode) child(local string) *xmlNode {
	for i := range n.Nodes {
		if strings.EqualFold(n.Nodes[i].XMLName.Local, local) {
			return &n.Nodes[i]
		}
	}
	return nil
}

func (n *xmlNode) attr(local string) string {
	for _, a := range n.Attrs {
		if strings.EqualFold(a.Name.Local, local) {
			return a.Value
		}
	}
	return ""
}

func (n *xmlNode) text() string {
	return strings.TrimSpace(n.Content)
}

// fieldBag is an insertion-ordered set of flattened fields.
type fieldBag struct {
	keys []string
	vals map[string]string
}

func newFieldBag() *fieldBag {
	return &fieldBag{vals: make(map[string]string)}
}

// add stores value under key, joining with repeatSeparator when key already holds a value.
func (b *fieldBag) add(key, value string) {
	prev, ok := b.vals[key]
	if !ok {
		b.keys = append(b.keys, key)
		b.vals[key] = value
		return
	}
	switch {
	case value == "":
	case prev == "":
		b.vals[key] = value
	default:
		b.vals[key] = prev + repeatSeparator + value
	}
}

// set overwrites key.
func (b *fieldBag) set(key, value string) {
	if _, ok := b.vals[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.vals[key] = value
}

func decodeXML(data []byte) (*xmlNode, error) {
	var root xmlNode
	dec := xml.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, bomUTF8)))
	dec.Strict = false
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	return &root, nil
}

func parseXMLFile(path string) *Table {
	data, err := os.ReadFile(path)
	if err != nil {
		return emptyTable(FormatXML, fmt.Errorf("read xml: %w", err))
	}
	return parseXML(data)
}

// parseXML turns each direct child of the document root into one record.
func parseXML(data []byte) *Table {
	root, err := decodeXML(data)
	if err != nil {
		return emptyTable(FormatXML, err)
	}
	bags := make([]*fieldBag, 0, len(root.Nodes))
	for i := range root.Nodes {
		bags = append(bags, flattenRecord(&root.Nodes[i]))
	}
	if len(bags) == 0 {
		return emptyTable(FormatXML, fmt.Errorf("xml root <%s> has no record elements", root.XMLName.Local))
	}
	return tableFromBags(FormatXML, bags)
}

// flattenRecord flattens nested elements into parent_child keys.
// A record element with no children yields a single field named after itself.
func flattenRecord(rec *xmlNode) *fieldBag {
	bag := newFieldBag()
	if len(rec.Nodes) == 0 {
		bag.add(rec.XMLName.Local, rec.text())
		return bag
	}
	for i := range rec.Nodes {
		flattenInto(bag, "", &rec.Nodes[i])
	}
	return bag
}

func flattenInto(bag *fieldBag, prefix string, n *xmlNode) {
	key := n.XMLName.Local
	if prefix != "" {
		key = prefix + "_" + key
	}
	if len(n.Nodes) == 0 {
		bag.add(key, n.text())
		return
	}
	for i := range n.Nodes {
		flattenInto(bag, key, &n.Nodes[i])
	}
}

// tableFromBags aligns heterogeneous records on the union of their keys, in first-seen order.
func tableFromBags(format Format, bags []*fieldBag) *Table {
	t := &Table{Format: format}
	seen := make(map[string]bool)
	for _, b := range bags {
		for _, k := range b.keys {
			if !seen[k] {
				seen[k] = true
				t.Headers = append(t.Headers, k)
			}
		}
	}
	for _, b := range bags {
		row := make([]string, len(t.Headers))
		for i, h := range t.Headers {
			row[i] = b.vals[h]
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
