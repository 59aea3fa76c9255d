package sector

import (
	"strings"
	"testing"

	"github.com/BartekS5/archimport/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"archives", "dam", "gallery", "library", "museum"}, Codes())

	p, err := Lookup(" Museum ")
	require.NoError(t, err)
	assert.Equal(t, "museum_object", p.ExtraMetadataShape)

	_, err = Lookup("zoo")
	assert.ErrorContains(t, err, "unknown sector")

	for _, p := range List() {
		assert.NotEmpty(t, p.RequiredColumns, p.Code)
		for alias := range p.ColumnMap {
			assert.Equal(t, alias, strings.ToLower(alias), "aliases are lowercase in %s", p.Code)
		}
		for _, f := range p.ExtraFields {
			assert.True(t, p.IsExtra(f))
		}
	}
}

func TestCanonicalTable(t *testing.T) {
	tests := map[string]string{
		"archives":   TableInformationObject,
		"dam":        TableInformationObject,
		"":           TableInformationObject,
		"Actor":      TableActor,
		"authority":  TableActor,
		"repository": TableRepository,
		"event":      TableEvent,
		"accession":  TableAccession,
		"unknown":    TableInformationObject,
	}
	for in, want := range tests {
		assert.Equal(t, want, CanonicalTable(in), in)
	}
}

func TestProfileMapping(t *testing.T) {
	p, err := Lookup("library")
	require.NoError(t, err)

	mp := ProfileMapping(p, []string{"Call Number", "Title", "Author", "ISBN", "Shelf"})
	targets := map[string]string{}
	for _, r := range mp.ActiveRules() {
		targets[r.SourceField] = r.TargetField
	}
	assert.Equal(t, map[string]string{
		"Call Number": models.FieldIdentifier,
		"Title":       models.FieldTitle,
		"Author":      "creator",
		"ISBN":        "isbn",
		"Shelf":       "Shelf",
	}, targets)
	assert.Equal(t, "library", mp.TargetType)
}

func TestProfileMapping_CanonicalHeaderMapsToItself(t *testing.T) {
	p, err := Lookup("archives")
	require.NoError(t, err)
	got, ok := p.Canonical("LevelOfDescription")
	assert.True(t, ok)
	assert.Equal(t, "levelOfDescription", got)
}

func TestDefaultStrategy(t *testing.T) {
	rec := models.NewRecord(1)
	rec.Set(models.FieldIdentifier, " M-1 ")
	rec.Set(models.FieldTitle, "Vase")
	rec.Set(models.FieldLegacyID, "42")
	rec.Set("materials", "clay")
	rec.Set("dimensions", "")
	rec.Set("generalNote", "chipped")

	s := For("museum")
	core := s.CoreFields(rec)
	assert.Equal(t, CoreFields{Identifier: "M-1", Title: "Vase", LegacyID: "42"}, core)
	assert.Equal(t, map[string]string{"materials": "clay"}, s.ExtraMetadata(rec))
	assert.Equal(t, "museum_object", s.Shape())
	assert.Equal(t, map[string]string{"generalNote": "chipped"}, Remainder(s, rec))

	generic := For("")
	assert.Nil(t, generic.ExtraMetadata(rec))
	assert.Equal(t, "", generic.Shape())
	assert.Equal(t, map[string]string{"materials": "clay", "generalNote": "chipped"}, Remainder(generic, rec))
}
