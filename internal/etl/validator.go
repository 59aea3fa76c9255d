package etl

import (
	"fmt"
	"strings"

	"github.com/BartekS5/archimport/internal/parser"
	"github.com/BartekS5/archimport/pkg/models"
)

// Finding is one validation error or warning. Row 0 refers to the file as a whole.
type Finding struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (f Finding) String() string {
	if f.Row == 0 {
		return f.Message
	}
	return fmt.Sprintf("row %d: %s", f.Row, f.Message)
}

// ValidationReport summarizes a validate-only run.
type ValidationReport struct {
	TotalRows int       `json:"total_rows"`
	ValidRows int       `json:"valid_rows"`
	Errors    []Finding `json:"errors,omitempty"`
	Warnings  []Finding `json:"warnings,omitempty"`
}

func (r *ValidationReport) ErrorCount() int   { return len(r.Errors) }
func (r *ValidationReport) WarningCount() int { return len(r.Warnings) }
func (r *ValidationReport) IsValid() bool     { return len(r.Errors) == 0 }

// FormatErrors renders at most limit errors; limit <= 0 means all.
func (r *ValidationReport) FormatErrors(limit int) []string {
	n := len(r.Errors)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]string, 0, n+1)
	for _, f := range r.Errors[:n] {
		out = append(out, f.String())
	}
	if n < len(r.Errors) {
		out = append(out, fmt.Sprintf("... and %d more", len(r.Errors)-n))
	}
	return out
}

// RequiredFieldsValidator checks that required target fields are mapped from a
// column present in the file and populated on every row.
type RequiredFieldsValidator struct {
	Required []string
}

// NewValidator returns the validator for a sector's required columns.
func NewValidator(sp *models.SectorProfile) *RequiredFieldsValidator {
	if sp == nil {
		return &RequiredFieldsValidator{}
	}
	return &RequiredFieldsValidator{Required: sp.RequiredColumns}
}

func (v *RequiredFieldsValidator) Validate(table *parser.Table, profile *models.MappingProfile) *ValidationReport {
	report := &ValidationReport{TotalRows: table.RowCount()}

	rules := profile.ActiveRules()
	mappedFrom := make(map[string]bool)
	used := make(map[string]bool)
	for _, r := range rules {
		if col := table.Column(r.SourceField); col >= 0 {
			mappedFrom[r.TargetField] = true
			used[table.Headers[col]] = true
		} else if r.ConstantValue != "" {
			mappedFrom[r.TargetField] = true
		}
	}

	missing := make(map[string]bool)
	for _, field := range v.Required {
		if !mappedFrom[field] {
			missing[field] = true
			report.Errors = append(report.Errors, Finding{Message: fmt.Sprintf("missing required column %q", field)})
		}
	}
	for _, h := range table.Headers {
		if !used[h] {
			report.Warnings = append(report.Warnings, Finding{Message: fmt.Sprintf("column %q is not mapped", h)})
		}
	}

	t := NewTransformer(profile, table)
	for i, row := range table.Rows {
		rec := t.MapRow(i+1, row)
		if rec == nil {
			report.Warnings = append(report.Warnings, Finding{Row: i + 1, Message: "row has no mapped values"})
			continue
		}
		var empty []string
		for _, field := range v.Required {
			if !missing[field] && !rec.Has(field) {
				empty = append(empty, field)
			}
		}
		if len(empty) > 0 {
			report.Errors = append(report.Errors, Finding{Row: i + 1, Message: "required field empty: " + strings.Join(empty, ", ")})
			continue
		}
		if len(missing) == 0 {
			report.ValidRows++
		}
	}
	return report
}
