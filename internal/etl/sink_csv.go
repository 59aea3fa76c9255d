package etl

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BartekS5/archimport/internal/storage"
	"github.com/BartekS5/archimport/pkg/models"
)

// Uploader stores an object in a bucket.
type Uploader interface {
	Upload(ctx context.Context, bucket, key string, content []byte, contentType string) error
}

// CSVSink buffers records and writes them as CSV on Finish. Columns are the
// union of every field seen, in first-seen order; absent fields are empty.
type CSVSink struct {
	// Dest is a file path, "-" for Stdout, or an s3://bucket/key URL.
	Dest     string
	Uploader Uploader
	Stdout   io.Writer

	columns []string
	seen    map[string]bool
	records []*models.Record
}

func NewCSVSink(dest string, uploader Uploader) *CSVSink {
	return &CSVSink{Dest: dest, Uploader: uploader, Stdout: os.Stdout, seen: make(map[string]bool)}
}

func (s *CSVSink) Create(_ context.Context, rec *models.Record) (int64, error) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	for _, k := range rec.Keys() {
		if !s.seen[k] {
			s.seen[k] = true
			s.columns = append(s.columns, k)
		}
	}
	s.records = append(s.records, rec.Clone())
	return 0, nil
}

func (s *CSVSink) Update(ctx context.Context, _ int64, rec *models.Record) error {
	_, err := s.Create(ctx, rec)
	return err
}

// Columns returns the header row written on Finish.
func (s *CSVSink) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Encode renders the buffered records.
func (s *CSVSink) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(s.columns); err != nil {
		return nil, err
	}
	row := make([]string, len(s.columns))
	for _, rec := range s.records {
		for i, c := range s.columns {
			row[i] = rec.Get(c)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func (s *CSVSink) Finish(ctx context.Context) error {
	data, err := s.Encode()
	if err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}

	switch {
	case s.Dest == "" || s.Dest == "-":
		_, err = s.Stdout.Write(data)
		return err
	case storage.IsS3URL(s.Dest):
		if s.Uploader == nil {
			return fmt.Errorf("no object storage configured for %s", s.Dest)
		}
		bucket, key, err := storage.ParseS3URL(s.Dest)
		if err != nil {
			return err
		}
		return s.Uploader.Upload(ctx, bucket, key, data, "text/csv")
	default:
		if dir := filepath.Dir(s.Dest); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
		}
		if err := os.WriteFile(s.Dest, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", s.Dest, err)
		}
		return nil
	}
}
