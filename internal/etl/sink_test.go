package etl

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BartekS5/archimport/internal/sector"
	"github.com/BartekS5/archimport/internal/store"
	"github.com/BartekS5/archimport/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	bucket, key, contentType string
	body                     []byte
}

func (f *fakeUploader) Upload(_ context.Context, bucket, key string, content []byte, contentType string) error {
	f.bucket, f.key, f.contentType, f.body = bucket, key, contentType, content
	return nil
}

func TestCSVSink_UnionOfFields(t *testing.T) {
	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "out", "export.csv")
	s := NewCSVSink(out, nil)

	_, err := s.Create(ctx, record(1, "identifier", "1", "title", "Alpha"))
	require.NoError(t, err)
	_, err = s.Create(ctx, record(2, "title", "Beta, the second", "keywords", "x"))
	require.NoError(t, err)
	require.NoError(t, s.Finish(ctx))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "identifier,title,keywords\n1,Alpha,\n,\"Beta, the second\",x\n", string(data))
}

func TestCSVSink_Destinations(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	s := NewCSVSink("-", nil)
	s.Stdout = &buf
	_, _ = s.Create(ctx, record(1, "a", "1"))
	require.NoError(t, s.Finish(ctx))
	assert.Equal(t, "a\n1\n", buf.String())

	up := &fakeUploader{}
	s = NewCSVSink("s3://exports/runs/a.csv", up)
	_, _ = s.Create(ctx, record(1, "a", "1"))
	require.NoError(t, s.Finish(ctx))
	assert.Equal(t, "exports", up.bucket)
	assert.Equal(t, "runs/a.csv", up.key)
	assert.Equal(t, "text/csv", up.contentType)
	assert.Equal(t, "a\n1\n", string(up.body))

	s = NewCSVSink("s3://exports/a.csv", nil)
	assert.Error(t, s.Finish(ctx))
}

func TestPreviewSink(t *testing.T) {
	ctx := context.Background()
	s := &PreviewSink{}
	long := strings.Repeat("é", 100)
	for i := 1; i <= 7; i++ {
		_, err := s.Create(ctx, record(i, "title", long))
		require.NoError(t, err)
	}
	require.Len(t, s.Records(), PreviewRecords)
	assert.Equal(t, strings.Repeat("é", 80), s.Records()[0].Get("title"))

	var buf bytes.Buffer
	s.Print(&buf)
	assert.Contains(t, buf.String(), "--- Record 5 (row 5) ---")
}

func newDatabaseSink(mem *store.MemoryStore, code string, mode UpdateMode) *DatabaseSink {
	return &DatabaseSink{
		Entities:   mem,
		Keymaps:    mem,
		Strategy:   sector.For(code),
		Table:      sector.CanonicalTable(code),
		SourceName: "items.csv",
		Mode:       mode,
	}
}

func TestDatabaseSink_CreateSplitsRecord(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	s := newDatabaseSink(mem, "library", UpdateOverwrite)
	s.Repository = "main-library"

	parentID, err := s.Create(ctx, record(1, models.FieldLegacyID, "P", models.FieldTitle, "Series"))
	require.NoError(t, err)

	id, err := s.Create(ctx, record(2,
		models.FieldLegacyID, "C",
		models.FieldParentID, "P",
		models.FieldTitle, "Volume",
		"isbn", "978-0",
		"generalNote", "signed",
	))
	require.NoError(t, err)

	e, err := mem.Get(ctx, "information_object", id)
	require.NoError(t, err)
	assert.Equal(t, "Volume", e.Title)
	assert.Equal(t, DefaultCulture, e.Culture)
	assert.Equal(t, parentID, e.ParentID)
	assert.Equal(t, "main-library", e.Repository)
	assert.Equal(t, "library_item", e.Shape)
	assert.Equal(t, map[string]string{"isbn": "978-0"}, e.Extra)
	assert.Equal(t, map[string]string{"generalNote": "signed"}, e.Fields)

	assert.Equal(t, []store.Keymap{
		{SourceName: "items.csv", SourceID: "P", TargetID: parentID, TargetName: "information_object"},
		{SourceName: "items.csv", SourceID: "C", TargetID: id, TargetName: "information_object"},
	}, mem.Keymaps())
}

func TestDatabaseSink_UnknownParentFallsBack(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	s := newDatabaseSink(mem, "archives", UpdateOverwrite)
	s.DefaultParent = 0

	id, err := s.Create(ctx, record(1, models.FieldTitle, "Orphan", models.FieldParentID, "missing"))
	require.NoError(t, err)
	e, err := mem.Get(ctx, "information_object", id)
	require.NoError(t, err)
	assert.Zero(t, e.ParentID)
}

func TestDatabaseSink_UpdateModes(t *testing.T) {
	ctx := context.Background()

	for _, tt := range []struct {
		mode      UpdateMode
		wantTitle string
		wantNote  string
		wantPlace string
	}{
		{UpdateOverwrite, "New title", "new note", "Leeds"},
		{UpdateMerge, "Old title", "old note", "Leeds"},
	} {
		t.Run(string(tt.mode), func(t *testing.T) {
			mem := store.NewMemoryStore()
			s := newDatabaseSink(mem, "archives", tt.mode)
			id, err := s.Create(ctx, record(1, models.FieldTitle, "Old title", "generalNote", "old note"))
			require.NoError(t, err)

			err = s.Update(ctx, id, record(1,
				models.FieldTitle, "New title",
				"generalNote", "new note",
				"placeAccessPoints", "Leeds",
			))
			require.NoError(t, err)

			e, err := mem.Get(ctx, "information_object", id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, e.Title)
			assert.Equal(t, tt.wantNote, e.Fields["generalNote"])
			assert.Equal(t, tt.wantPlace, e.Fields["placeAccessPoints"])
		})
	}
}

func TestParseUpdateMode(t *testing.T) {
	m, err := ParseUpdateMode("")
	require.NoError(t, err)
	assert.Equal(t, UpdateOverwrite, m)

	m, err = ParseUpdateMode("MERGE")
	require.NoError(t, err)
	assert.Equal(t, UpdateMerge, m)

	_, err = ParseUpdateMode("replace")
	assert.Error(t, err)
}
