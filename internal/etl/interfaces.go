package etl

import (
	"context"

	"github.com/BartekS5/archimport/internal/parser"
	"github.com/BartekS5/archimport/internal/store"
	"github.com/BartekS5/archimport/pkg/models"
)

// Sink receives normalized records. Update is only called for records the
// Resolver matched to an existing entity.
type Sink interface {
	Create(ctx context.Context, rec *models.Record) (int64, error)
	Update(ctx context.Context, id int64, rec *models.Record) error
	// Finish flushes buffered output once every row has been handled.
	Finish(ctx context.Context) error
}

// Resolver finds the entity an incoming record already corresponds to.
type Resolver interface {
	FindExisting(ctx context.Context, rec *models.Record, matchField, sectorCode string) (int64, bool, error)
}

// Validator checks a parsed table against a mapping before import.
type Validator interface {
	Validate(table *parser.Table, profile *models.MappingProfile) *ValidationReport
}

// EntityStore is the persistence the database sink and resolver need.
type EntityStore interface {
	Create(ctx context.Context, e *store.Entity) (int64, error)
	Update(ctx context.Context, e *store.Entity) error
	Get(ctx context.Context, table string, id int64) (*store.Entity, error)
	FindByIdentifier(ctx context.Context, table, identifier string) (int64, bool, error)
}

// KeymapStore records which entity each legacy id was imported as.
type KeymapStore interface {
	LookupKeymap(ctx context.Context, sourceID, targetName string) (int64, bool, error)
	InsertKeymap(ctx context.Context, k store.Keymap) error
}
