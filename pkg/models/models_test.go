package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMappingProfile_Merge(t *testing.T) {
	base := SimpleProfile("library", [2]string{"Title", "title"}, [2]string{"Shelf", "Shelf"})
	base.TargetType = "library"
	override := SimpleProfile("shelf", [2]string{"shelf", "identifier"}, [2]string{"Barcode", "legacyId"})

	merged := base.Merge(override)
	assert.Equal(t, "library", merged.Name)
	assert.Equal(t, "library", merged.TargetType)
	assert.Equal(t, []string{"title", "identifier", "legacyId"}, merged.TargetFields())
	assert.Len(t, base.Rules, 2, "base is not modified")

	assert.Equal(t, base.Rules, base.Merge(nil).Rules)

	var none *MappingProfile
	assert.Equal(t, "shelf", none.Merge(override).Name)
}

func TestActiveRules(t *testing.T) {
	p := &MappingProfile{Rules: []FieldMappingRule{
		{SourceField: "a", TargetField: "x", Include: true},
		{SourceField: "b", TargetField: "y"},
		{SourceField: "c", TargetField: "  ", Include: true},
	}}
	require.Len(t, p.ActiveRules(), 1)
	assert.Equal(t, "a", p.ActiveRules()[0].SourceField)
	assert.Equal(t, DefaultConcatSymbol, p.Rules[0].Symbol())
}

func TestLoadMapping(t *testing.T) {
	one, err := LoadMapping([]byte(`{"id":3,"name":"a","field_mapping":[{"source_field":"s","target_field":"t","include":true}]}`))
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, int64(3), one[0].ID)
	assert.True(t, one[0].Rules[0].Include)

	list, err := LoadMapping([]byte(` [{"id":1,"name":"a"},{"id":2,"name":"b"}]`))
	require.NoError(t, err)
	assert.Len(t, list, 2)

	y, err := LoadMappingYAML([]byte("- id: 4\n  name: c\n  field_mapping:\n    - source_field: s\n      target_field: t\n      concatenate: true\n"))
	require.NoError(t, err)
	require.Len(t, y, 1)
	assert.True(t, y[0].Rules[0].Concatenate)

	_, err = LoadMappingYAML([]byte("just text"))
	assert.Error(t, err)
}

func TestFindProfile(t *testing.T) {
	profiles := []MappingProfile{{ID: 1, Name: "Town records"}, {ID: 2, Name: "42"}}

	p, err := FindProfile(profiles, "2")
	require.NoError(t, err)
	assert.Equal(t, "42", p.Name)

	p, err = FindProfile(profiles, "town RECORDS")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)

	_, err = FindProfile(profiles, "missing")
	assert.True(t, errors.Is(err, ErrMappingNotFound))
	_, err = FindProfile(profiles, " ")
	assert.ErrorIs(t, err, ErrMappingNotFound)
}

func TestGroupByTarget(t *testing.T) {
	keys, groups := GroupByTarget([]MappingProfile{
		{Name: "zeta", TargetType: "museum"},
		{Name: "Alpha", TargetType: "museum"},
		{Name: "loose"},
	})
	assert.Equal(t, []string{"museum", "unspecified"}, keys)
	assert.Equal(t, "Alpha", groups["museum"][0].Name)
}

func TestRecord(t *testing.T) {
	r := NewRecord(4)
	r.Set("b", "2")
	r.Set("a", "1")
	r.Set("b", "3")
	assert.Equal(t, []string{"b", "a"}, r.Keys())
	assert.Equal(t, "3", r.Get("b"))

	c := r.Clone()
	r.Delete("b")
	assert.Equal(t, []string{"a"}, r.Keys())
	assert.Equal(t, 2, c.Len())
	assert.False(t, r.Has("b"))

	var nilRec *Record
	assert.Equal(t, "", nilRec.Get("x"))
}

func TestSectorProfile_Canonical(t *testing.T) {
	sp := &SectorProfile{
		ColumnMap:          map[string]string{"object number": "identifier"},
		ExtraMetadataShape: "museum_object",
		ExtraFields:        []string{"materials"},
	}
	c, ok := sp.Canonical("  Object Number ")
	assert.True(t, ok)
	assert.Equal(t, "identifier", c)

	c, ok = sp.Canonical("IDENTIFIER")
	assert.True(t, ok)
	assert.Equal(t, "identifier", c)

	_, ok = sp.Canonical("shelf")
	assert.False(t, ok)
	assert.True(t, sp.IsExtra("materials"))
	assert.False(t, sp.IsExtra("identifier"))
}
