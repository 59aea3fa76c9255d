package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/BartekS5/archimport/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonProfiles = `[
  {"id": 1, "name": "Legacy CSV", "target_type": "archives",
   "field_mapping": [
     {"source_field": "ref", "target_field": "identifier", "include": true},
     {"source_field": "name", "target_field": "title", "include": true}
   ]},
  {"id": 2, "name": "Agents", "target_type": "actor",
   "field_mapping": [{"source_field": "who", "target_field": "authorizedFormOfName", "include": true}]}
]`

const yamlProfile = `
id: 7
name: Museum Export
target_type: museum
field_mapping:
  - source_field: object_no
    target_field: identifier
    include: true
  - source_field: kw
    target_field: keywords
    include: true
    concatenate: true
    concat_symbol: "; "
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestFileMappings_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", jsonProfiles)
	writeFile(t, dir, "b.yaml", yamlProfile)
	writeFile(t, dir, "notes.txt", "ignored")

	store := NewFileMappings(dir)
	all, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)

	p, err := store.Find(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Museum Export", p.Name)
	require.Len(t, p.Rules, 2)
	assert.Equal(t, "; ", p.Rules[1].ConcatSymbol)
	assert.True(t, p.Rules[1].Concatenate)

	p, err = store.Find(context.Background(), "legacy csv")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
}

func TestFileMappings_NotFound(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "one.json", jsonProfiles)

	_, err := NewFileMappings(path).Find(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrMappingNotFound))
}

func TestLoadMapping_BadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.json", "{not json")

	_, err := LoadMapping(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse mapping file")
}

func TestFileMappings_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mappings")
	store := NewFileMappings(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, models.MappingProfile{ID: 4, Name: "Town Records", TargetType: "archives"}))
	require.NoError(t, store.Save(ctx, *models.SimpleProfile("Photo Library!", [2]string{"file", "filename"})))

	_, err := os.Stat(filepath.Join(dir, "town-records.json"))
	require.NoError(t, err)

	p, err := store.Find(ctx, "photo library!")
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.ID)
	assert.Equal(t, "filename", p.Rules[0].TargetField)
	assert.True(t, p.Rules[0].Include)
}
