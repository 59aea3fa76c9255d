package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps entities and keymap rows in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	entities map[string]map[int64]*Entity
	keymap   []Keymap
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entities: make(map[string]map[int64]*Entity)}
}

func copyEntity(e *Entity) *Entity {
	c := *e
	c.Fields = cloneMap(e.Fields)
	c.Extra = cloneMap(e.Extra)
	return &c
}

func (m *MemoryStore) Create(_ context.Context, e *Entity) (int64, error) {
	if err := checkIdent(e.Table); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c := copyEntity(e)
	c.ID = m.nextID
	if m.entities[e.Table] == nil {
		m.entities[e.Table] = make(map[int64]*Entity)
	}
	m.entities[e.Table][c.ID] = c
	return c.ID, nil
}

func (m *MemoryStore) Update(_ context.Context, e *Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entities[e.Table][e.ID]; !ok {
		return fmt.Errorf("%s %d: %w", e.Table, e.ID, ErrNotFound)
	}
	m.entities[e.Table][e.ID] = copyEntity(e)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, table string, id int64) (*Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[table][id]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return copyEntity(e), nil
}

func (m *MemoryStore) FindByIdentifier(_ context.Context, table, identifier string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found int64
	for id, e := range m.entities[table] {
		if e.Identifier == identifier && (found == 0 || id < found) {
			found = id
		}
	}
	return found, found != 0, nil
}

func (m *MemoryStore) LookupKeymap(_ context.Context, sourceID, targetName string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.keymap) - 1; i >= 0; i-- {
		k := m.keymap[i]
		if k.SourceID == sourceID && k.TargetName == targetName {
			return k.TargetID, true, nil
		}
	}
	return 0, false, nil
}

func (m *MemoryStore) InsertKeymap(_ context.Context, k Keymap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keymap = append(m.keymap, k)
	return nil
}

// Count returns the number of entities in table.
func (m *MemoryStore) Count(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entities[table])
}

// Keymaps returns a copy of every keymap row.
func (m *MemoryStore) Keymaps() []Keymap {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Keymap(nil), m.keymap...)
}

func (m *MemoryStore) Close() error { return nil }
