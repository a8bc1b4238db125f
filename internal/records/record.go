// Package records defines the semi-structured record abstraction shared by
// every engine component. The record store has used several historical names
// for the same logical field, so all field access goes through ordered
// candidate-key resolution instead of direct map lookups.
package records

import (
	"fmt"
	"strings"
)

// NotAvailable is the sentinel returned when no candidate key resolves.
// Records are never rejected for missing fields; they degrade to this value.
const NotAvailable = "N/A"

// Record is a loosely-typed snapshot row from the record store. Fields are
// optional, values are whatever the upstream export produced, and the same
// logical field may appear under any of its historical key names. Records are
// treated as immutable once fetched.
type Record map[string]any

// Resolve returns the value of the first candidate key whose value is
// present: not nil and not the empty string. No type coercion is applied.
// When nothing qualifies it returns NotAvailable.
func Resolve(r Record, keys []string) any {
	for _, key := range keys {
		v, ok := r[key]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			continue
		}
		return v
	}
	return NotAvailable
}

// Text resolves a field and renders it for display. Non-string values are
// formatted with their default representation.
func Text(r Record, keys []string) string {
	v := Resolve(r, keys)
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ResolveID resolves an entity identifier. Identifiers that come back empty,
// whitespace, or as the NotAvailable sentinel exclude the record from all
// id-keyed aggregation, so ok reports whether the id is usable.
func ResolveID(r Record, keys []string) (string, bool) {
	id := strings.TrimSpace(Text(r, keys))
	if id == "" || id == NotAvailable {
		return "", false
	}
	return id, true
}
