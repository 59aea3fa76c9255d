package models

// Well-known target field names that carry meaning beyond pass-through.
const (
	FieldLegacyID   = "legacyId"
	FieldIdentifier = "identifier"
	FieldTitle      = "title"
	FieldParentID   = "parentId"
	FieldCulture    = "culture"
)

// Record is one normalized row: target field name -> value, in first-set order.
type Record struct {
	// Row is the 1-based data row number in the source table.
	Row int

	values map[string]string
	order  []string
}

// NewRecord returns an empty record for the given source row.
func NewRecord(row int) *Record {
	return &Record{Row: row, values: make(map[string]string)}
}

// Get returns the value of field, or "" when unset.
func (r *Record) Get(field string) string {
	if r == nil {
		return ""
	}
	return r.values[field]
}

// Has reports whether field holds a non-empty value.
func (r *Record) Has(field string) bool {
	return r.Get(field) != ""
}

// Set stores value under field, keeping the field's original position.
func (r *Record) Set(field, value string) {
	if _, ok := r.values[field]; !ok {
		r.order = append(r.order, field)
	}
	r.values[field] = value
}

// Delete removes field from the record.
func (r *Record) Delete(field string) {
	if _, ok := r.values[field]; !ok {
		return
	}
	delete(r.values, field)
	for i, f := range r.order {
		if f == field {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Keys returns the populated field names in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len is the number of populated fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Map returns a copy of the record's values.
func (r *Record) Map() map[string]string {
	out := make(map[string]string, r.Len())
	for _, k := range r.Keys() {
		out[k] = r.values[k]
	}
	return out
}

// Clone returns an independent copy of r.
func (r *Record) Clone() *Record {
	c := NewRecord(r.Row)
	for _, k := range r.order {
		c.Set(k, r.values[k])
	}
	return c
}
