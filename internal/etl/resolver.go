package etl

import (
	"context"
	"strings"

	"github.com/BartekS5/archimport/internal/sector"
	"github.com/BartekS5/archimport/pkg/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Match fields understood by the resolver.
const (
	MatchLegacyID   = models.FieldLegacyID
	MatchIdentifier = models.FieldIdentifier
)

// KeymapResolver matches records by legacy id (through the keymap) or by
// natural identifier on the canonical table.
type KeymapResolver struct {
	Keymaps  KeymapStore
	Entities EntityStore

	// cache holds positive lookups only; a miss may turn into a hit once the
	// row that creates the entity has been imported.
	cache *lru.Cache[string, int64]
}

// NewKeymapResolver returns a resolver; cacheSize <= 0 disables caching.
func NewKeymapResolver(keymaps KeymapStore, entities EntityStore, cacheSize int) (*KeymapResolver, error) {
	r := &KeymapResolver{Keymaps: keymaps, Entities: entities}
	if cacheSize > 0 {
		cache, err := lru.New[string, int64](cacheSize)
		if err != nil {
			return nil, err
		}
		r.cache = cache
	}
	return r, nil
}

func (r *KeymapResolver) FindExisting(ctx context.Context, rec *models.Record, matchField, sectorCode string) (int64, bool, error) {
	value := strings.TrimSpace(rec.Get(matchField))
	if value == "" {
		return 0, false, nil
	}
	table := sector.CanonicalTable(sectorCode)

	key := matchField + "\x00" + table + "\x00" + value
	if r.cache != nil {
		if id, ok := r.cache.Get(key); ok {
			return id, true, nil
		}
	}

	var (
		id    int64
		found bool
		err   error
	)
	switch matchField {
	case MatchLegacyID:
		if r.Keymaps == nil {
			return 0, false, nil
		}
		id, found, err = r.Keymaps.LookupKeymap(ctx, value, table)
	case MatchIdentifier:
		if r.Entities == nil {
			return 0, false, nil
		}
		id, found, err = r.Entities.FindByIdentifier(ctx, table, value)
	default:
		return 0, false, nil
	}
	if err != nil || !found {
		return 0, false, err
	}

	if r.cache != nil {
		r.cache.Add(key, id)
	}
	return id, true, nil
}
