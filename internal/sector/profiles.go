// Package sector holds the collecting-sector presets (archives, library, museum,
// gallery, DAM) and the strategy that splits a normalized record into core
// columns and sector metadata.
package sector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BartekS5/archimport/pkg/models"
)

// Canonical storage tables.
const (
	TableInformationObject = "information_object"
	TableActor             = "actor"
	TableRepository        = "repository"
	TableEvent             = "event"
	TableAccession         = "accession"
)

// Shared aliases every sector understands.
var commonColumns = map[string]string{
	"legacyid":         models.FieldLegacyID,
	"legacy id":        models.FieldLegacyID,
	"legacy_id":        models.FieldLegacyID,
	"parentid":         models.FieldParentID,
	"parent id":        models.FieldParentID,
	"parent_id":        models.FieldParentID,
	"identifier":       models.FieldIdentifier,
	"title":            models.FieldTitle,
	"culture":          models.FieldCulture,
	"language":         "language",
	"repository":       "repository",
	"access":           "accessConditions",
	"accessconditions": "accessConditions",
	"subjects":         "subjectAccessPoints",
	"subject":          "subjectAccessPoints",
	"places":           "placeAccessPoints",
	"notes":            "generalNote",
	"note":             "generalNote",
}

var profiles = map[string]*models.SectorProfile{
	"archives": {
		Code:            "archives",
		Label:           "Archives (ISAD(G))",
		EntityType:      TableInformationObject,
		RequiredColumns: []string{models.FieldTitle, "levelOfDescription"},
		ColumnMap: withCommon(map[string]string{
			"reference code":       models.FieldIdentifier,
			"refcode":              models.FieldIdentifier,
			"reference_code":       models.FieldIdentifier,
			"level":                "levelOfDescription",
			"level of description": "levelOfDescription",
			"leveldescription":     "levelOfDescription",
			"dates":                "eventDates",
			"date":                 "eventDates",
			"creator":              "eventActors",
			"creators":             "eventActors",
			"extent":               "extentAndMedium",
			"extent and medium":    "extentAndMedium",
			"scope":                "scopeAndContent",
			"scope and content":    "scopeAndContent",
			"arrangement":          "arrangement",
			"archival history":     "archivalHistory",
			"custodial history":    "archivalHistory",
		}),
	},
	"library": {
		Code:            "library",
		Label:           "Library (MARC)",
		EntityType:      TableInformationObject,
		RequiredColumns: []string{models.FieldTitle},
		ColumnMap: withCommon(map[string]string{
			"call number":          models.FieldIdentifier,
			"callnumber":           models.FieldIdentifier,
			"barcode":              models.FieldIdentifier,
			"author":               "creator",
			"authors":              "creator",
			"creator":              "creator",
			"isbn":                 "isbn",
			"issn":                 "issn",
			"publisher":            "publisher",
			"place of publication": "publicationPlace",
			"publication place":    "publicationPlace",
			"publication date":     "publicationDate",
			"year":                 "publicationDate",
			"edition":              "edition",
			"series":               "series",
			"pages":                "extentAndMedium",
		}),
		ExtraMetadataShape: "library_item",
		ExtraFields:        []string{"isbn", "issn", "publisher", "publicationPlace", "publicationDate", "edition", "series"},
	},
	"museum": {
		Code:            "museum",
		Label:           "Museum (Spectrum)",
		EntityType:      TableInformationObject,
		RequiredColumns: []string{models.FieldIdentifier, models.FieldTitle},
		ColumnMap: withCommon(map[string]string{
			"object number":     models.FieldIdentifier,
			"objectnumber":      models.FieldIdentifier,
			"accession number":  models.FieldIdentifier,
			"object name":       "objectName",
			"objectname":        "objectName",
			"name":              models.FieldTitle,
			"materials":         "materials",
			"material":          "materials",
			"technique":         "technique",
			"dimensions":        "dimensions",
			"inscription":       "inscription",
			"production date":   "productionDate",
			"maker":             "maker",
			"production person": "maker",
			"condition":         "condition",
		}),
		ExtraMetadataShape: "museum_object",
		ExtraFields:        []string{"objectName", "materials", "technique", "dimensions", "inscription", "productionDate", "maker", "condition"},
	},
	"gallery": {
		Code:            "gallery",
		Label:           "Gallery (CCO)",
		EntityType:      TableInformationObject,
		RequiredColumns: []string{models.FieldTitle, "artist"},
		ColumnMap: withCommon(map[string]string{
			"work id":          models.FieldIdentifier,
			"catalogue number": models.FieldIdentifier,
			"artist":           "artist",
			"artist name":      "artist",
			"creator":          "artist",
			"medium":           "medium",
			"support":          "support",
			"dimensions":       "dimensions",
			"date created":     "dateCreated",
			"creation date":    "dateCreated",
			"edition":          "edition",
			"style":            "style",
			"provenance":       "provenance",
		}),
		ExtraMetadataShape: "gallery_artwork",
		ExtraFields:        []string{"artist", "medium", "support", "dimensions", "dateCreated", "edition", "style", "provenance"},
	},
	"dam": {
		Code:            "dam",
		Label:           "Digital asset management (Dublin Core/IPTC)",
		EntityType:      TableInformationObject,
		RequiredColumns: []string{models.FieldTitle, "filename"},
		ColumnMap: withCommon(map[string]string{
			"asset id":     models.FieldIdentifier,
			"file name":    "filename",
			"filename":     "filename",
			"file":         "filename",
			"path":         "filename",
			"mime type":    "mimeType",
			"mimetype":     "mimeType",
			"format":       "mimeType",
			"photographer": "creator",
			"creator":      "creator",
			"date taken":   "captureDate",
			"capture date": "captureDate",
			"rights":       "rights",
			"copyright":    "rights",
			"keywords":     "subjectAccessPoints",
			"caption":      "scopeAndContent",
			"description":  "scopeAndContent",
		}),
		ExtraMetadataShape: "dam_asset",
		ExtraFields:        []string{"filename", "mimeType", "creator", "captureDate", "rights"},
	},
}

func withCommon(m map[string]string) map[string]string {
	for k, v := range commonColumns {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return m
}

// Lookup returns the profile for a sector code.
func Lookup(code string) (*models.SectorProfile, error) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return nil, fmt.Errorf("unknown sector %q (known: %s)", code, strings.Join(Codes(), ", "))
	}
	return p, nil
}

// Codes lists the known sector codes, sorted.
func Codes() []string {
	out := make([]string, 0, len(profiles))
	for code := range profiles {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// List returns every sector profile ordered by code.
func List() []*models.SectorProfile {
	out := make([]*models.SectorProfile, 0, len(profiles))
	for _, code := range Codes() {
		out = append(out, profiles[code])
	}
	return out
}

// CanonicalTable names the table records of a sector or mapping target type live in.
// Entity-specific target types keep their own table; everything else is a
// described object.
func CanonicalTable(sectorOrTarget string) string {
	key := strings.ToLower(strings.TrimSpace(sectorOrTarget))
	switch key {
	case "actor", "actors", "authority_record", "authority":
		return TableActor
	case "repository", "repositories", "institution":
		return TableRepository
	case "event", "events":
		return TableEvent
	case "accession", "accessions":
		return TableAccession
	}
	if p, ok := profiles[key]; ok && p.EntityType != "" {
		return p.EntityType
	}
	return TableInformationObject
}

// ProfileMapping builds a mapping profile for a sector file. Every header the
// column map recognizes (case-insensitively) maps to its canonical field; any
// other header passes through under its own name.
func ProfileMapping(p *models.SectorProfile, headers []string) *models.MappingProfile {
	mp := &models.MappingProfile{Name: p.Code, TargetType: p.Code}
	for _, h := range headers {
		target, ok := p.Canonical(h)
		if !ok {
			target = strings.TrimSpace(h)
		}
		mp.Rules = append(mp.Rules, models.FieldMappingRule{
			SourceField: h,
			TargetField: target,
			Include:     true,
			Concatenate: true,
		})
	}
	return mp
}
