package sector

import (
	"strings"

	"github.com/BartekS5/archimport/pkg/models"
)

// CoreFields are the record values stored in an entity's own columns.
type CoreFields struct {
	Identifier string
	Title      string
	LegacyID   string
	ParentID   string
	Culture    string
}

// Strategy splits a normalized record for persistence.
type Strategy interface {
	CoreFields(rec *models.Record) CoreFields
	ExtraMetadata(rec *models.Record) map[string]string
	// Shape names the side table ExtraMetadata is written to; empty for none.
	Shape() string
}

// Default is the data-driven strategy: core fields are the well-known target
// names and extra metadata is whatever the profile lists in ExtraFields.
type Default struct {
	Profile *models.SectorProfile
}

// For returns the strategy for a sector code; unknown codes get a strategy
// without extra metadata.
func For(code string) Strategy {
	p, err := Lookup(code)
	if err != nil {
		return Default{}
	}
	return Default{Profile: p}
}

func (d Default) CoreFields(rec *models.Record) CoreFields {
	return CoreFields{
		Identifier: strings.TrimSpace(rec.Get(models.FieldIdentifier)),
		Title:      strings.TrimSpace(rec.Get(models.FieldTitle)),
		LegacyID:   strings.TrimSpace(rec.Get(models.FieldLegacyID)),
		ParentID:   strings.TrimSpace(rec.Get(models.FieldParentID)),
		Culture:    strings.TrimSpace(rec.Get(models.FieldCulture)),
	}
}

func (d Default) ExtraMetadata(rec *models.Record) map[string]string {
	if d.Profile == nil || d.Profile.ExtraMetadataShape == "" {
		return nil
	}
	out := make(map[string]string)
	for _, f := range d.Profile.ExtraFields {
		if rec.Has(f) {
			out[f] = rec.Get(f)
		}
	}
	return out
}

func (d Default) Shape() string {
	if d.Profile == nil {
		return ""
	}
	return d.Profile.ExtraMetadataShape
}

// IsCore reports whether field is one of the core column fields.
func IsCore(field string) bool {
	switch field {
	case models.FieldIdentifier, models.FieldTitle, models.FieldLegacyID, models.FieldParentID, models.FieldCulture:
		return true
	}
	return false
}

// Remainder returns the record fields that are neither core nor sector metadata.
func Remainder(s Strategy, rec *models.Record) map[string]string {
	extra := s.ExtraMetadata(rec)
	out := make(map[string]string)
	for _, k := range rec.Keys() {
		if IsCore(k) {
			continue
		}
		if _, ok := extra[k]; ok {
			continue
		}
		if v := rec.Get(k); v != "" {
			out[k] = v
		}
	}
	return out
}
