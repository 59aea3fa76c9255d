package etl

import (
	"io"
	"os"
	"testing"

	"github.com/BartekS5/archimport/internal/parser"
	"github.com/BartekS5/archimport/pkg/logger"
	"github.com/BartekS5/archimport/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard, "error")
	os.Exit(m.Run())
}

func table(headers []string, rows ...[]string) *parser.Table {
	return &parser.Table{Headers: headers, Rows: rows, Format: parser.FormatCSV}
}

func TestTransform_Concatenation(t *testing.T) {
	profile := &models.MappingProfile{Rules: []models.FieldMappingRule{
		{SourceField: "tag1", TargetField: "keywords", Include: true},
		{SourceField: "tag2", TargetField: "keywords", Include: true, Concatenate: true, ConcatSymbol: "; "},
	}}
	recs := Transform(table([]string{"tag1", "tag2"}, []string{"art", "sculpture"}), profile)
	require.Len(t, recs, 1)
	assert.Equal(t, map[string]string{"keywords": "art; sculpture"}, recs[0].Map())
}

func TestTransform_Rules(t *testing.T) {
	tests := []struct {
		name  string
		rules []models.FieldMappingRule
		want  map[string]string
	}{
		{
			name:  "value is trimmed",
			rules: []models.FieldMappingRule{{SourceField: "a", TargetField: "x", Include: true}},
			want:  map[string]string{"x": "alpha"},
		},
		{
			name:  "excluded rule ignored",
			rules: []models.FieldMappingRule{{SourceField: "a", TargetField: "x"}, {SourceField: "b", TargetField: "y", Include: true}},
			want:  map[string]string{"y": "beta"},
		},
		{
			name:  "empty target ignored",
			rules: []models.FieldMappingRule{{SourceField: "a", Include: true}, {SourceField: "b", TargetField: "y", Include: true}},
			want:  map[string]string{"y": "beta"},
		},
		{
			name:  "constant fills an empty value",
			rules: []models.FieldMappingRule{{SourceField: "empty", TargetField: "level", Include: true, ConstantValue: "File"}},
			want:  map[string]string{"level": "File"},
		},
		{
			name:  "constant does not replace a value",
			rules: []models.FieldMappingRule{{SourceField: "a", TargetField: "x", Include: true, ConstantValue: "const"}},
			want:  map[string]string{"x": "alpha"},
		},
		{
			name:  "prefix always prepends",
			rules: []models.FieldMappingRule{{SourceField: "a", TargetField: "x", Include: true, ConstantValue: "REF-", ConcatPrefix: true}},
			want:  map[string]string{"x": "REF-alpha"},
		},
		{
			name:  "missing header reads empty",
			rules: []models.FieldMappingRule{{SourceField: "nope", TargetField: "x", Include: true, ConstantValue: "dflt"}},
			want:  map[string]string{"x": "dflt"},
		},
		{
			name: "overwrite without concatenate",
			rules: []models.FieldMappingRule{
				{SourceField: "a", TargetField: "x", Include: true},
				{SourceField: "b", TargetField: "x", Include: true},
			},
			want: map[string]string{"x": "beta"},
		},
		{
			name: "default concat symbol",
			rules: []models.FieldMappingRule{
				{SourceField: "a", TargetField: "x", Include: true},
				{SourceField: "b", TargetField: "x", Include: true, Concatenate: true},
			},
			want: map[string]string{"x": "alpha|beta"},
		},
		{
			name: "concatenate onto nothing just sets",
			rules: []models.FieldMappingRule{
				{SourceField: "empty", TargetField: "x", Include: true},
				{SourceField: "b", TargetField: "x", Include: true, Concatenate: true},
			},
			want: map[string]string{"x": "beta"},
		},
		{
			name: "concatenating an empty value keeps the existing one",
			rules: []models.FieldMappingRule{
				{SourceField: "a", TargetField: "x", Include: true},
				{SourceField: "empty", TargetField: "x", Include: true, Concatenate: true},
			},
			want: map[string]string{"x": "alpha"},
		},
	}

	tbl := table([]string{"a", "b", "empty"}, []string{"  alpha ", "beta", ""})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := Transform(tbl, &models.MappingProfile{Rules: tt.rules})
			require.Len(t, recs, 1)
			assert.Equal(t, tt.want, recs[0].Map())
		})
	}
}

func TestTransform_DropsEmptyRowsAndNumbersRows(t *testing.T) {
	profile := models.SimpleProfile("p", [2]string{"id", "identifier"}, [2]string{"name", "title"})
	tbl := table([]string{"id", "name"},
		[]string{"1", "Alpha"},
		[]string{"", "  "},
		[]string{"3", ""},
	)
	recs := Transform(tbl, profile)
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].Row)
	assert.Equal(t, 3, recs[1].Row)
	assert.Equal(t, []string{"identifier"}, recs[1].Keys())
}

func TestTransform_KeepsRuleOrder(t *testing.T) {
	profile := &models.MappingProfile{Rules: []models.FieldMappingRule{
		{SourceField: "b", TargetField: "x", Include: true},
		{SourceField: "a", TargetField: "x", Include: true, Concatenate: true, ConcatSymbol: ","},
		{SourceField: "a", TargetField: "first", Include: true},
	}}
	recs := Transform(table([]string{"a", "b"}, []string{"1", "2"}), profile)
	require.Len(t, recs, 1)
	assert.Equal(t, "2,1", recs[0].Get("x"))
	assert.Equal(t, []string{"x", "first"}, recs[0].Keys())
}
