package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

const keymapTable = "keymap"

// SQLStore persists entities, sector side tables and the keymap in a SQL database.
// Tables are created on first use.
type SQLStore struct {
	DB *sql.DB

	dialect dialect

	schemaOnce sync.Once
	schemaErr  error

	mu     sync.Mutex
	tables map[string]bool
}

// NewSQLStore wraps an open database; kind selects the SQL dialect.
func NewSQLStore(db *sql.DB, kind string) (*SQLStore, error) {
	d, err := dialectFor(kind)
	if err != nil {
		return nil, err
	}
	return &SQLStore{DB: db, dialect: d, tables: make(map[string]bool)}, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		d := s.dialect
		_, s.schemaErr = s.DB.ExecContext(ctx, d.createTable(keymapTable,
			d.idColumn(),
			"source_name "+d.varchar(255)+" NOT NULL",
			"source_id "+d.varchar(255)+" NOT NULL",
			"target_id BIGINT NOT NULL",
			"target_name "+d.varchar(64)+" NOT NULL",
		))
		if s.schemaErr == nil && (d == dialectSQLite || d == dialectPostgres) {
			_, s.schemaErr = s.DB.ExecContext(ctx,
				"CREATE INDEX IF NOT EXISTS idx_keymap_source ON keymap (source_id, target_name)")
		}
		if s.schemaErr != nil {
			s.schemaErr = fmt.Errorf("create keymap table: %w", s.schemaErr)
		}
	})
	return s.schemaErr
}

func (s *SQLStore) ensureTable(ctx context.Context, table, shape string) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	if shape != "" {
		if err := checkIdent(shape); err != nil {
			return err
		}
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dialect
	if !s.tables[table] {
		_, err := s.DB.ExecContext(ctx, d.createTable(table,
			d.idColumn(),
			"identifier "+d.varchar(255)+" NOT NULL",
			"title "+d.text()+" NOT NULL",
			"culture "+d.varchar(16)+" NOT NULL",
			"parent_id BIGINT NOT NULL",
			"repository "+d.varchar(255)+" NOT NULL",
			"shape "+d.varchar(64)+" NOT NULL",
			"properties "+d.text()+" NOT NULL",
		))
		if err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
		s.tables[table] = true
	}
	if shape != "" && !s.tables[shape] {
		_, err := s.DB.ExecContext(ctx, d.createTable(shape,
			"object_id BIGINT NOT NULL PRIMARY KEY",
			"object_table "+d.varchar(64)+" NOT NULL",
			"metadata "+d.text()+" NOT NULL",
		))
		if err != nil {
			return fmt.Errorf("create table %s: %w", shape, err)
		}
		s.tables[shape] = true
	}
	return nil
}

var entityColumns = []string{"identifier", "title", "culture", "parent_id", "repository", "shape", "properties"}

func entityArgs(e *Entity) ([]any, error) {
	props, err := encodeFields(e.Fields)
	if err != nil {
		return nil, err
	}
	return []any{e.Identifier, e.Title, e.Culture, e.ParentID, e.Repository, e.Shape, props}, nil
}

func encodeFields(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeFields(s string) (map[string]string, error) {
	out := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts e (and its side-table metadata) and returns the new id.
func (s *SQLStore) Create(ctx context.Context, e *Entity) (int64, error) {
	if err := s.ensureTable(ctx, e.Table, e.Shape); err != nil {
		return 0, err
	}
	args, err := entityArgs(e)
	if err != nil {
		return 0, fmt.Errorf("encode fields: %w", err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	id, err := s.dialect.insert(ctx, tx, e.Table, entityColumns, args)
	if err != nil {
		return 0, fmt.Errorf("error inserting into %s: %w", e.Table, err)
	}
	if err := s.writeExtra(ctx, tx, e, id); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Update overwrites every column of the stored entity e.ID.
func (s *SQLStore) Update(ctx context.Context, e *Entity) error {
	if err := s.ensureTable(ctx, e.Table, e.Shape); err != nil {
		return err
	}
	args, err := entityArgs(e)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	var setClauses []string
	for i, col := range entityColumns {
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", col, s.dialect.ph(i+1)))
	}
	// ID is the last argument for the WHERE clause
	args = append(args, e.ID)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s",
		e.Table, strings.Join(setClauses, ", "), s.dialect.ph(len(args)))

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("error updating %s %d: %w", e.Table, e.ID, err)
	}
	if err := s.writeExtra(ctx, tx, e, e.ID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) writeExtra(ctx context.Context, tx *sql.Tx, e *Entity, id int64) error {
	if e.Shape == "" {
		return nil
	}
	d := s.dialect
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE object_id = %s", e.Shape, d.ph(1)), id); err != nil {
		return fmt.Errorf("error clearing %s: %w", e.Shape, err)
	}
	if len(e.Extra) == 0 {
		return nil
	}
	meta, err := encodeFields(e.Extra)
	if err != nil {
		return fmt.Errorf("encode %s metadata: %w", e.Shape, err)
	}
	query := fmt.Sprintf("INSERT INTO %s (object_id, object_table, metadata) VALUES (%s)", e.Shape, d.placeholders(1, 3))
	if _, err := tx.ExecContext(ctx, query, id, e.Table, meta); err != nil {
		return fmt.Errorf("error inserting into %s: %w", e.Shape, err)
	}
	return nil
}

// Get loads one entity with its side-table metadata.
func (s *SQLStore) Get(ctx context.Context, table string, id int64) (*Entity, error) {
	if err := s.ensureTable(ctx, table, ""); err != nil {
		return nil, err
	}
	d := s.dialect
	e := &Entity{ID: id, Table: table}
	var props string
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = %s", strings.Join(entityColumns, ", "), table, d.ph(1))
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&e.Identifier, &e.Title, &e.Culture, &e.ParentID, &e.Repository, &e.Shape, &props)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s %d: %w", table, id, err)
	}
	if e.Fields, err = decodeFields(props); err != nil {
		return nil, fmt.Errorf("decode %s %d fields: %w", table, id, err)
	}

	if e.Shape != "" {
		if err := s.ensureTable(ctx, table, e.Shape); err != nil {
			return nil, err
		}
		var meta string
		q := fmt.Sprintf("SELECT metadata FROM %s WHERE object_id = %s", e.Shape, d.ph(1))
		err := s.DB.QueryRowContext(ctx, q, id).Scan(&meta)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			e.Extra = map[string]string{}
		case err != nil:
			return nil, fmt.Errorf("error reading %s %d: %w", e.Shape, id, err)
		default:
			if e.Extra, err = decodeFields(meta); err != nil {
				return nil, fmt.Errorf("decode %s %d: %w", e.Shape, id, err)
			}
		}
	}
	return e, nil
}

// FindByIdentifier returns the oldest entity in table carrying identifier.
func (s *SQLStore) FindByIdentifier(ctx context.Context, table, identifier string) (int64, bool, error) {
	if err := s.ensureTable(ctx, table, ""); err != nil {
		return 0, false, err
	}
	var id int64
	query := fmt.Sprintf("SELECT id FROM %s WHERE identifier = %s ORDER BY id", table, s.dialect.ph(1))
	err := s.DB.QueryRowContext(ctx, query, identifier).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("error checking %s identifier: %w", table, err)
	}
	return id, true, nil
}

// LookupKeymap returns the most recent target id recorded for sourceID in targetName.
func (s *SQLStore) LookupKeymap(ctx context.Context, sourceID, targetName string) (int64, bool, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return 0, false, err
	}
	d := s.dialect
	var id int64
	query := fmt.Sprintf("SELECT target_id FROM keymap WHERE source_id = %s AND target_name = %s ORDER BY id DESC",
		d.ph(1), d.ph(2))
	err := s.DB.QueryRowContext(ctx, query, sourceID, targetName).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("error reading keymap: %w", err)
	}
	return id, true, nil
}

// InsertKeymap records a legacy id -> entity id mapping.
func (s *SQLStore) InsertKeymap(ctx context.Context, k Keymap) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	query := fmt.Sprintf("INSERT INTO keymap (source_name, source_id, target_id, target_name) VALUES (%s)",
		s.dialect.placeholders(1, 4))
	if _, err := s.DB.ExecContext(ctx, query, k.SourceName, k.SourceID, k.TargetID, k.TargetName); err != nil {
		return fmt.Errorf("error inserting keymap: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.DB.Close()
}
