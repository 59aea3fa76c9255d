package etl

import (
	"context"
	"fmt"
	"strings"

	"github.com/BartekS5/archimport/internal/sector"
	"github.com/BartekS5/archimport/internal/store"
	"github.com/BartekS5/archimport/pkg/logger"
	"github.com/BartekS5/archimport/pkg/models"
	"github.com/BartekS5/archimport/pkg/utils"
)

// UpdateMode selects what happens to a record matched to an existing entity.
type UpdateMode string

const (
	// UpdateSkip leaves matched entities untouched and counts the row as skipped.
	UpdateSkip UpdateMode = "skip"
	// UpdateOverwrite replaces stored values with every non-empty incoming value.
	UpdateOverwrite UpdateMode = "update"
	// UpdateMerge only fills stored values that are currently empty.
	UpdateMerge UpdateMode = "merge"
)

// ParseUpdateMode accepts skip, update or merge; empty means update.
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch m := UpdateMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return UpdateOverwrite, nil
	case UpdateSkip, UpdateOverwrite, UpdateMerge:
		return m, nil
	default:
		return "", fmt.Errorf("invalid update mode %q (want skip, update or merge)", s)
	}
}

// DefaultCulture is stored for records that carry no culture.
const DefaultCulture = "en"

// DatabaseSink persists records as entities through an EntityStore and keeps
// the legacy-id keymap current.
type DatabaseSink struct {
	Entities EntityStore
	Keymaps  KeymapStore
	Strategy sector.Strategy

	// Table is the canonical table records are written to.
	Table string
	// SourceName is stored in the keymap alongside each legacy id.
	SourceName string
	Mode       UpdateMode
	Repository string
	// DefaultParent is used when a record names no parent.
	DefaultParent int64
}

func culture(core sector.CoreFields) string {
	if core.Culture != "" {
		return core.Culture
	}
	return DefaultCulture
}

// parent resolves a record's parentId (a legacy id) through the keymap.
// A plain numeric parentId that is not in the keymap is taken as an entity id.
func (s *DatabaseSink) parent(ctx context.Context, rec *models.Record, legacy string) (int64, error) {
	if legacy == "" {
		return s.DefaultParent, nil
	}
	if s.Keymaps != nil {
		id, ok, err := s.Keymaps.LookupKeymap(ctx, legacy, s.Table)
		if err != nil {
			return 0, fmt.Errorf("resolve parent %q: %w", legacy, err)
		}
		if ok {
			return id, nil
		}
	}
	if id, ok := utils.ParseID(legacy); ok {
		if _, err := s.Entities.Get(ctx, s.Table, id); err == nil {
			return id, nil
		}
	}
	logger.With("row", rec.Row, "parent", legacy).Warn("parent not found, using default parent")
	return s.DefaultParent, nil
}

func (s *DatabaseSink) Create(ctx context.Context, rec *models.Record) (int64, error) {
	core := s.Strategy.CoreFields(rec)
	parentID, err := s.parent(ctx, rec, core.ParentID)
	if err != nil {
		return 0, err
	}

	e := &store.Entity{
		Table:      s.Table,
		Identifier: core.Identifier,
		Title:      core.Title,
		Culture:    culture(core),
		ParentID:   parentID,
		Repository: s.Repository,
		Fields:     sector.Remainder(s.Strategy, rec),
		Shape:      s.Strategy.Shape(),
		Extra:      s.Strategy.ExtraMetadata(rec),
	}
	id, err := s.Entities.Create(ctx, e)
	if err != nil {
		return 0, err
	}

	if core.LegacyID != "" && s.Keymaps != nil {
		err := s.Keymaps.InsertKeymap(ctx, store.Keymap{
			SourceName: s.SourceName,
			SourceID:   core.LegacyID,
			TargetID:   id,
			TargetName: s.Table,
		})
		if err != nil {
			return id, fmt.Errorf("entity %d created but keymap insert failed: %w", id, err)
		}
	}
	return id, nil
}

func (s *DatabaseSink) Update(ctx context.Context, id int64, rec *models.Record) error {
	e, err := s.Entities.Get(ctx, s.Table, id)
	if err != nil {
		return err
	}
	core := s.Strategy.CoreFields(rec)
	merge := s.Mode == UpdateMerge

	assign(&e.Identifier, core.Identifier, merge)
	assign(&e.Title, core.Title, merge)
	assign(&e.Culture, core.Culture, merge)
	if core.ParentID != "" && (!merge || e.ParentID == 0) {
		parentID, err := s.parent(ctx, rec, core.ParentID)
		if err != nil {
			return err
		}
		if parentID != id {
			e.ParentID = parentID
		}
	}
	if s.Repository != "" {
		assign(&e.Repository, s.Repository, merge)
	}

	e.Fields = assignAll(e.Fields, sector.Remainder(s.Strategy, rec), merge)
	if shape := s.Strategy.Shape(); shape != "" {
		if e.Shape != shape {
			e.Shape, e.Extra = shape, nil
		}
		e.Extra = assignAll(e.Extra, s.Strategy.ExtraMetadata(rec), merge)
	}
	return s.Entities.Update(ctx, e)
}

func (s *DatabaseSink) Finish(context.Context) error { return nil }

// assign writes v into dst when v is set; in merge mode only when dst is empty.
func assign(dst *string, v string, merge bool) {
	if v == "" || (merge && *dst != "") {
		return
	}
	*dst = v
}

func assignAll(dst, src map[string]string, merge bool) map[string]string {
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		cur := dst[k]
		assign(&cur, v, merge)
		dst[k] = cur
	}
	return dst
}
