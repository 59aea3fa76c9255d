package etl

import (
	"context"
	"testing"

	"github.com/BartekS5/archimport/internal/store"
	"github.com/BartekS5/archimport/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingKeymap wraps a keymap store and counts lookups.
type countingKeymap struct {
	KeymapStore
	lookups int
}

func (c *countingKeymap) LookupKeymap(ctx context.Context, sourceID, targetName string) (int64, bool, error) {
	c.lookups++
	return c.KeymapStore.LookupKeymap(ctx, sourceID, targetName)
}

func record(row int, kv ...string) *models.Record {
	rec := models.NewRecord(row)
	for i := 0; i+1 < len(kv); i += 2 {
		rec.Set(kv[i], kv[i+1])
	}
	return rec
}

func TestKeymapResolver_LegacyID(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	keymaps := &countingKeymap{KeymapStore: mem}
	r, err := NewKeymapResolver(keymaps, mem, 16)
	require.NoError(t, err)

	rec := record(1, models.FieldLegacyID, "L-1")

	_, found, err := r.FindExisting(ctx, rec, MatchLegacyID, "archives")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, mem.InsertKeymap(ctx, store.Keymap{SourceID: "L-1", TargetID: 9, TargetName: "information_object"}))

	// misses are not cached, so the new keymap row is visible
	id, found, err := r.FindExisting(ctx, rec, MatchLegacyID, "archives")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(9), id)

	_, _, err = r.FindExisting(ctx, rec, MatchLegacyID, "archives")
	require.NoError(t, err)
	assert.Equal(t, 2, keymaps.lookups, "hit served from cache")

	_, found, err = r.FindExisting(ctx, rec, MatchLegacyID, "actor")
	require.NoError(t, err)
	assert.False(t, found, "keymap is scoped to the canonical table")
}

func TestKeymapResolver_Identifier(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	id, err := mem.Create(ctx, &store.Entity{Table: "information_object", Identifier: "F-1"})
	require.NoError(t, err)

	r, err := NewKeymapResolver(mem, mem, 0)
	require.NoError(t, err)

	got, found, err := r.FindExisting(ctx, record(1, models.FieldIdentifier, "F-1"), MatchIdentifier, "")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, id, got)
}

func TestKeymapResolver_NoLookup(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	keymaps := &countingKeymap{KeymapStore: mem}
	r, err := NewKeymapResolver(keymaps, mem, 16)
	require.NoError(t, err)

	_, found, err := r.FindExisting(ctx, record(1, "title", "x"), MatchLegacyID, "archives")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = r.FindExisting(ctx, record(1, "title", "x"), "title", "archives")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, keymaps.lookups)
}
