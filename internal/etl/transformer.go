package etl

import (
	"strings"

	"github.com/BartekS5/archimport/internal/parser"
	"github.com/BartekS5/archimport/pkg/models"
)

// Transformer applies a mapping profile to source rows.
type Transformer struct {
	Profile *models.MappingProfile

	rules   []models.FieldMappingRule
	columns []int
}

// NewTransformer binds profile to the headers of table.
func NewTransformer(profile *models.MappingProfile, table *parser.Table) *Transformer {
	t := &Transformer{Profile: profile, rules: profile.ActiveRules()}
	t.columns = make([]int, len(t.rules))
	for i, r := range t.rules {
		t.columns[i] = table.Column(r.SourceField)
	}
	return t
}

// Transform maps every row of table; rows with no populated field are dropped.
func Transform(table *parser.Table, profile *models.MappingProfile) []*models.Record {
	t := NewTransformer(profile, table)
	var out []*models.Record
	for i, row := range table.Rows {
		if rec := t.MapRow(i+1, row); rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

// MapRow builds the record for one source row, numbered rowNum (1-based).
// It returns nil when no target field ends up populated.
func (t *Transformer) MapRow(rowNum int, row []string) *models.Record {
	rec := models.NewRecord(rowNum)
	for i, rule := range t.rules {
		value := ""
		// missing header reads as empty
		if col := t.columns[i]; col >= 0 && col < len(row) {
			value = strings.TrimSpace(row[col])
		}

		switch {
		case rule.ConcatPrefix && rule.ConstantValue != "":
			value = rule.ConstantValue + value
		case value == "" && rule.ConstantValue != "":
			value = rule.ConstantValue
		}

		existing := rec.Get(rule.TargetField)
		switch {
		case rule.Concatenate && existing != "":
			if value != "" {
				rec.Set(rule.TargetField, existing+rule.Symbol()+value)
			}
		case value != "":
			rec.Set(rule.TargetField, value)
		}
	}
	if rec.Len() == 0 {
		return nil
	}
	return rec
}
