package etl

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BartekS5/archimport/internal/parser"
	"github.com/BartekS5/archimport/pkg/logger"
	"github.com/BartekS5/archimport/pkg/models"
	"github.com/google/uuid"
)

// Phase is a step of one import run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseParsing
	PhaseMapping
	PhaseValidating
	PhaseImporting
	PhaseReporting
	PhaseDone
)

var phaseNames = [...]string{"idle", "parsing", "mapping", "validating", "importing", "reporting", "done"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Validating is only entered by validate-only runs and goes straight to reporting.
var transitions = map[Phase][]Phase{
	PhaseIdle:       {PhaseParsing},
	PhaseParsing:    {PhaseMapping},
	PhaseMapping:    {PhaseValidating, PhaseImporting},
	PhaseValidating: {PhaseReporting},
	PhaseImporting:  {PhaseReporting},
	PhaseReporting:  {PhaseDone},
}

// DefaultProgressEvery is how many rows pass between progress log lines.
const DefaultProgressEvery = 100

// RunOptions controls one run.
type RunOptions struct {
	DryRun bool
	// UpdateExisting resolves each record against stored entities by MatchField.
	UpdateExisting bool
	MatchField     string
	UpdateMode     UpdateMode
	// Skip drops the first N data rows; Limit stops once Total reaches N.
	Skip  int
	Limit int
	// Culture is set on records that carry no culture of their own.
	Culture      string
	ValidateOnly bool
	// Quiet suppresses the per-row error log; counts are still reported.
	Quiet bool
	Parse parser.Options
	// BaseProfile derives a mapping from the parsed headers; the profile passed
	// to Run is then applied on top of it as an override.
	BaseProfile func(headers []string) *models.MappingProfile
}

// Runner drives one import: parse, map, optionally validate, import, report.
// A Runner is single use.
type Runner struct {
	Sink      Sink
	Resolver  Resolver
	Validator Validator
	// Sector is the sector code or target type records are resolved against.
	Sector        string
	ProgressEvery int

	phase Phase
	log   *slog.Logger
}

func NewRunner(sink Sink, resolver Resolver, sectorCode string) *Runner {
	return &Runner{
		Sink:          sink,
		Resolver:      resolver,
		Sector:        sectorCode,
		ProgressEvery: DefaultProgressEvery,
	}
}

// Phase returns the phase the runner is in.
func (r *Runner) Phase() Phase {
	return r.phase
}

func (r *Runner) transition(to Phase) error {
	for _, next := range transitions[r.phase] {
		if next == to {
			r.logger().Debug("phase change", "from", r.phase.String(), "to", to.String())
			r.phase = to
			return nil
		}
	}
	return fmt.Errorf("illegal phase transition %s -> %s", r.phase, to)
}

func (r *Runner) logger() *slog.Logger {
	if r.log == nil {
		return logger.L()
	}
	return r.log
}

// Run imports sourcePath with profile. Setup failures are returned as *SetupError
// before any row is touched; row failures are counted in the returned Stats.
func (r *Runner) Run(ctx context.Context, sourcePath string, profile *models.MappingProfile, opts RunOptions) (*Stats, error) {
	stats := &Stats{RunID: uuid.NewString(), Started: time.Now()}
	defer func() { stats.Duration = time.Since(stats.Started) }()

	if err := r.transition(PhaseParsing); err != nil {
		return stats, err
	}
	r.log = logger.With("run_id", stats.RunID, "file", sourcePath, "sector", r.Sector)

	// 1. Parse
	if _, err := os.Stat(sourcePath); err != nil {
		return stats, NewSetupError(ErrSourceMissing, err)
	}
	if profile == nil && opts.BaseProfile == nil {
		return stats, NewSetupError(ErrMappingNotFound, nil)
	}
	if opts.BaseProfile == nil && len(profile.ActiveRules()) == 0 {
		return stats, NewSetupError(ErrNoRules, fmt.Errorf("profile %q", profile.Name))
	}
	table := parser.Parse(sourcePath, opts.Parse)
	if table.RowCount() == 0 {
		return stats, NewSetupError(ErrNoRows, table.Failure)
	}
	r.log.Info("source parsed", "format", string(table.Format), "rows", table.RowCount(), "columns", len(table.Headers))

	// 2. Map
	if err := r.transition(PhaseMapping); err != nil {
		return stats, err
	}
	if opts.BaseProfile != nil {
		profile = opts.BaseProfile(table.Headers).Merge(profile)
		if len(profile.ActiveRules()) == 0 {
			return stats, NewSetupError(ErrNoRules, fmt.Errorf("profile %q", profile.Name))
		}
	}
	records := r.mapRecords(table, profile, opts)

	// 3. Validate only
	if opts.ValidateOnly {
		if err := r.transition(PhaseValidating); err != nil {
			return stats, err
		}
		v := r.Validator
		if v == nil {
			v = NewValidator(nil)
		}
		stats.Validation = v.Validate(table, profile)
		stats.Total = stats.Validation.TotalRows
		return stats, r.finish(ctx, stats, opts, false)
	}

	// 4. Import
	if err := r.transition(PhaseImporting); err != nil {
		return stats, err
	}
	every := r.ProgressEvery
	if every <= 0 {
		every = DefaultProgressEvery
	}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			r.log.Warn("import interrupted", "processed", stats.Total, "error", err)
			return stats, err
		}
		stats.Total++
		outcome, err := r.importRecord(ctx, rec, opts)
		stats.record(outcome, rec.Row, err)
		if err != nil && !opts.Quiet {
			r.log.Warn("row failed", "row", rec.Row, "error", err)
		}
		if (i+1)%every == 0 {
			r.log.Info(fmt.Sprintf("processed %d/%d rows", i+1, len(records)),
				"imported", stats.Imported, "updated", stats.Updated, "skipped", stats.Skipped, "errors", stats.Errors)
		}
	}

	return stats, r.finish(ctx, stats, opts, !opts.DryRun)
}

// mapRecords applies skip and limit while mapping; rows past the limit are not mapped.
func (r *Runner) mapRecords(table *parser.Table, profile *models.MappingProfile, opts RunOptions) []*models.Record {
	t := NewTransformer(profile, table)
	var records []*models.Record
	start := opts.Skip
	if start < 0 {
		start = 0
	}
	for i := start; i < len(table.Rows); i++ {
		if opts.Limit > 0 && len(records) >= opts.Limit {
			break
		}
		rec := t.MapRow(i+1, table.Rows[i])
		if rec == nil {
			continue
		}
		if opts.Culture != "" && !rec.Has(models.FieldCulture) {
			rec.Set(models.FieldCulture, opts.Culture)
		}
		records = append(records, rec)
	}
	r.log.Debug("rows mapped", "records", len(records), "skipped_rows", start)
	return records
}

// importRecord is the per-row step. A panic in a sink or resolver becomes a row error.
func (r *Runner) importRecord(ctx context.Context, rec *models.Record, opts RunOptions) (outcome Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			outcome, err = OutcomeFailed, fmt.Errorf("panic: %v", p)
		}
	}()

	if opts.DryRun {
		return OutcomeImported, nil
	}

	if opts.UpdateExisting && r.Resolver != nil {
		id, found, err := r.Resolver.FindExisting(ctx, rec, opts.MatchField, r.Sector)
		if err != nil {
			return OutcomeFailed, fmt.Errorf("resolve existing: %w", err)
		}
		if found {
			if opts.UpdateMode == UpdateSkip {
				return OutcomeSkipped, nil
			}
			if err := r.Sink.Update(ctx, id, rec); err != nil {
				return OutcomeFailed, fmt.Errorf("update %d: %w", id, err)
			}
			return OutcomeUpdated, nil
		}
	}

	if _, err := r.Sink.Create(ctx, rec); err != nil {
		return OutcomeFailed, fmt.Errorf("create: %w", err)
	}
	return OutcomeImported, nil
}

func (r *Runner) finish(ctx context.Context, stats *Stats, opts RunOptions, flush bool) error {
	if err := r.transition(PhaseReporting); err != nil {
		return err
	}
	if flush {
		if err := r.Sink.Finish(ctx); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	r.log.Info("import finished",
		"total", stats.Total, "imported", stats.Imported, "updated", stats.Updated,
		"skipped", stats.Skipped, "errors", stats.Errors, "dry_run", opts.DryRun)
	return r.transition(PhaseDone)
}
