package models

import "strings"

// SectorProfile is a static preset describing how one collecting sector's files look.
type SectorProfile struct {
	Code string
	// Label is the human-readable sector name used in listings.
	Label string
	// EntityType names the canonical storage table the sector's records land in.
	EntityType string
	// RequiredColumns must all be present (after alias resolution) for a file to validate.
	RequiredColumns []string
	// ColumnMap maps lowercase source header aliases to canonical field names.
	ColumnMap map[string]string
	// ExtraMetadataShape names the side table holding sector-specific fields; empty for none.
	ExtraMetadataShape string
	// ExtraFields lists the canonical fields stored in the side table.
	ExtraFields []string
}

// Canonical resolves a source header to its canonical field name.
// Headers already equal to a canonical name map to themselves.
func (s *SectorProfile) Canonical(header string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(header))
	if key == "" {
		return "", false
	}
	if c, ok := s.ColumnMap[key]; ok {
		return c, true
	}
	for _, c := range s.ColumnMap {
		if strings.EqualFold(c, key) {
			return c, true
		}
	}
	return "", false
}

// IsExtra reports whether field belongs in the sector's side table.
func (s *SectorProfile) IsExtra(field string) bool {
	if s.ExtraMetadataShape == "" {
		return false
	}
	for _, f := range s.ExtraFields {
		if f == field {
			return true
		}
	}
	return false
}
