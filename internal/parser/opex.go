package parser

import (
	"fmt"
	"os"
	"strings"
)

func parseOPEXFile(path string) *Table {
	data, err := os.ReadFile(path)
	if err != nil {
		return emptyTable(FormatOPEX, fmt.Errorf("read opex: %w", err))
	}
	bag, err := opexRecord(data)
	if err != nil {
		return emptyTable(FormatOPEX, err)
	}
	return tableFromBags(FormatOPEX, []*fieldBag{bag})
}

// opexRecord reads one OPEXMetadata document into a flat record:
// Properties become title, description, security_descriptor and identifier fields,
// the Transfer manifest lists its files and folders, and DescriptiveMetadata is
// flattened the same way as generic XML.
func opexRecord(data []byte) (*fieldBag, error) {
	root, err := decodeXML(data)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(root.XMLName.Local, "OPEXMetadata") {
		return nil, fmt.Errorf("not an OPEX document: root element <%s>", root.XMLName.Local)
	}

	bag := newFieldBag()

	if transfer := root.child("Transfer"); transfer != nil {
		if src := transfer.child("SourceID"); src != nil {
			bag.set("source_id", src.text())
		}
		if manifest := transfer.child("Manifest"); manifest != nil {
			if files := manifest.child("Files"); files != nil {
				for i := range files.Nodes {
					bag.add("files", files.Nodes[i].text())
				}
			}
			if folders := manifest.child("Folders"); folders != nil {
				for i := range folders.Nodes {
					bag.add("folders", folders.Nodes[i].text())
				}
			}
		}
	}

	if props := root.child("Properties"); props != nil {
		if n := props.child("Title"); n != nil {
			bag.set("title", n.text())
		}
		if n := props.child("Description"); n != nil {
			bag.set("description", n.text())
		}
		if n := props.child("SecurityDescriptor"); n != nil {
			bag.set("security_descriptor", n.text())
		}
		if ids := props.child("Identifiers"); ids != nil {
			for i := range ids.Nodes {
				id := &ids.Nodes[i]
				value := id.text()
				if _, ok := bag.vals["identifier"]; !ok || strings.EqualFold(id.attr("type"), "code") {
					bag.set("identifier", value)
				}
				if typ := strings.TrimSpace(id.attr("type")); typ != "" {
					bag.add("identifier_"+strings.ToLower(typ), value)
				}
			}
		}
	}

	if desc := root.child("DescriptiveMetadata"); desc != nil {
		for i := range desc.Nodes {
			flattenInto(bag, "", &desc.Nodes[i])
		}
	}

	if len(bag.keys) == 0 {
		return nil, fmt.Errorf("OPEX document carries no metadata")
	}
	return bag, nil
}
