package etl

import (
	"context"
	"fmt"
	"io"

	"github.com/BartekS5/archimport/pkg/models"
	"github.com/BartekS5/archimport/pkg/utils"
)

const (
	PreviewRecords    = 5
	PreviewValueRunes = 80
)

// PreviewSink keeps the first few records, values cut to PreviewValueRunes.
type PreviewSink struct {
	records []*models.Record
}

func (s *PreviewSink) Create(_ context.Context, rec *models.Record) (int64, error) {
	if len(s.records) >= PreviewRecords {
		return 0, nil
	}
	c := models.NewRecord(rec.Row)
	for _, k := range rec.Keys() {
		c.Set(k, utils.Truncate(rec.Get(k), PreviewValueRunes))
	}
	s.records = append(s.records, c)
	return 0, nil
}

func (s *PreviewSink) Update(ctx context.Context, _ int64, rec *models.Record) error {
	_, err := s.Create(ctx, rec)
	return err
}

func (s *PreviewSink) Finish(context.Context) error { return nil }

// Records returns the kept records.
func (s *PreviewSink) Records() []*models.Record {
	return s.records
}

// Print writes the kept records, one field per line.
func (s *PreviewSink) Print(w io.Writer) {
	for i, rec := range s.records {
		fmt.Fprintf(w, "--- Record %d (row %d) ---\n", i+1, rec.Row)
		for _, k := range rec.Keys() {
			fmt.Fprintf(w, "  %-24s %s\n", k+":", rec.Get(k))
		}
	}
}
