// Package store persists imported entities and the legacy-id keymap.
package store

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrNotFound is returned when an entity id does not exist.
var ErrNotFound = errors.New("entity not found")

// Entity is one persisted record in a canonical table.
type Entity struct {
	ID         int64
	Table      string
	Identifier string
	Title      string
	Culture    string
	ParentID   int64
	Repository string
	// Fields holds the pass-through values that have no column of their own.
	Fields map[string]string
	// Shape names the side table Extra is stored in.
	Shape string
	Extra map[string]string
}

// Keymap ties a source system's record id to the entity it was imported as.
type Keymap struct {
	SourceName string
	SourceID   string
	TargetID   int64
	TargetName string
}

var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// checkIdent guards table names that end up in SQL text and collection names.
func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
