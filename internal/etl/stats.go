package etl

import (
	"fmt"
	"io"
	"time"
)

// Outcome is what happened to one record that reached the import step.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeImported
	OutcomeUpdated
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeImported:
		return "imported"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Stats accumulates the result of one run. Every record counted in Total lands
// in exactly one of Imported, Updated, Skipped or Errors.
type Stats struct {
	RunID     string        `json:"run_id"`
	Total     int           `json:"total"`
	Imported  int           `json:"imported"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`
	Errors    int           `json:"errors"`
	RowErrors []RowError    `json:"row_errors,omitempty"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`

	// Validation is set by validate-only runs.
	Validation *ValidationReport `json:"validation,omitempty"`
}

func (s *Stats) record(o Outcome, row int, err error) {
	switch {
	case err != nil:
		s.Errors++
		s.RowErrors = append(s.RowErrors, RowError{Row: row, Message: err.Error()})
	case o == OutcomeImported:
		s.Imported++
	case o == OutcomeUpdated:
		s.Updated++
	case o == OutcomeSkipped:
		s.Skipped++
	}
}

// Failed reports whether the run should exit non-zero.
func (s *Stats) Failed() bool {
	if s.Errors > 0 {
		return true
	}
	return s.Validation != nil && !s.Validation.IsValid()
}

// maxListedErrors bounds the row errors printed in a summary.
const maxListedErrors = 20

// WriteSummary prints the final report table. listErrors adds the row error log.
func (s *Stats) WriteSummary(w io.Writer, listErrors bool) {
	fmt.Fprintf(w, "\nImport summary (run %s, %s)\n", s.RunID, s.Duration.Round(time.Millisecond))
	fmt.Fprintln(w, "+----------+--------+")
	for _, line := range []struct {
		label string
		n     int
	}{
		{"Total", s.Total},
		{"Imported", s.Imported},
		{"Updated", s.Updated},
		{"Skipped", s.Skipped},
		{"Errors", s.Errors},
	} {
		fmt.Fprintf(w, "| %-8s | %6d |\n", line.label, line.n)
	}
	fmt.Fprintln(w, "+----------+--------+")

	if v := s.Validation; v != nil {
		fmt.Fprintf(w, "Validation: %d rows, %d valid, %d errors, %d warnings\n",
			v.TotalRows, v.ValidRows, v.ErrorCount(), v.WarningCount())
		for _, line := range v.FormatErrors(maxListedErrors) {
			fmt.Fprintf(w, "  - %s\n", line)
		}
	}

	if listErrors && len(s.RowErrors) > 0 {
		fmt.Fprintln(w, "Row errors:")
		for i, e := range s.RowErrors {
			if i == maxListedErrors {
				fmt.Fprintf(w, "  ... and %d more\n", len(s.RowErrors)-i)
				break
			}
			fmt.Fprintf(w, "  - %s\n", e.Error())
		}
	}
}
