package etl

import (
	"testing"

	"github.com/BartekS5/archimport/internal/sector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredFieldsValidator(t *testing.T) {
	sp, err := sector.Lookup("museum")
	require.NoError(t, err)

	tbl := table([]string{"Object Number", "Name", "Shelf"},
		[]string{"M-1", "Vase", "A"},
		[]string{"M-2", "", "B"},
		[]string{"", "", ""},
	)
	profile := sector.ProfileMapping(sp, tbl.Headers)

	report := NewValidator(sp).Validate(tbl, profile)
	assert.Equal(t, 3, report.TotalRows)
	assert.Equal(t, 1, report.ValidRows)
	require.Equal(t, 1, report.ErrorCount())
	assert.Equal(t, "row 2: required field empty: title", report.Errors[0].String())
	assert.Equal(t, 1, report.WarningCount())
	assert.False(t, report.IsValid())
}

func TestRequiredFieldsValidator_MissingColumn(t *testing.T) {
	sp, err := sector.Lookup("gallery")
	require.NoError(t, err)

	tbl := table([]string{"Title", "Notes"}, []string{"Sunrise", ""}, []string{"Dusk", ""})
	report := NewValidator(sp).Validate(tbl, sector.ProfileMapping(sp, tbl.Headers))

	assert.Equal(t, 0, report.ValidRows)
	assert.Equal(t, []string{`missing required column "artist"`}, report.FormatErrors(0))
}

func TestValidationReport_FormatErrorsLimit(t *testing.T) {
	r := &ValidationReport{Errors: []Finding{{Row: 1, Message: "a"}, {Row: 2, Message: "b"}, {Row: 3, Message: "c"}}}
	assert.Equal(t, []string{"row 1: a", "row 2: b", "... and 1 more"}, r.FormatErrors(2))
	assert.Len(t, r.FormatErrors(0), 3)
}
