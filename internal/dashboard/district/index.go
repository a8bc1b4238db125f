// Package district groups raw district spellings into canonical names. The
// underlying dataset is never rewritten: filtering always tests the original
// raw strings, the canonical name is only a display and selection key.
package district

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/records"
)

// All is the sentinel selection that imposes no district restriction.
const All = "All"

var titleCaser = cases.Title(language.English)

// Canonicalize trims and title-cases a raw district string.
func Canonicalize(raw string) string {
	return titleCaser.String(strings.TrimSpace(raw))
}

// Index maps canonical district names to the set of raw variants observed in
// a snapshot.
type Index struct {
	variants map[string]map[string]struct{}
}

// Build scans records and indexes every district spelling found under the
// candidate keys. Missing districts are skipped, not indexed as a name.
func Build(recs []records.Record, districtKeys []string) *Index {
	idx := &Index{variants: make(map[string]map[string]struct{})}
	for _, r := range recs {
		raw := records.Text(r, districtKeys)
		if raw == records.NotAvailable || strings.TrimSpace(raw) == "" {
			continue
		}
		canonical := Canonicalize(raw)
		set, ok := idx.variants[canonical]
		if !ok {
			set = make(map[string]struct{})
			idx.variants[canonical] = set
		}
		set[raw] = struct{}{}
	}
	return idx
}

// Names returns the canonical district names in sorted order.
func (x *Index) Names() []string {
	names := make([]string, 0, len(x.variants))
	for name := range x.variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Variants returns the raw spellings grouped under a canonical name, sorted.
// Unknown names return an empty slice.
func (x *Index) Variants(name string) []string {
	set := x.variants[name]
	raws := make([]string, 0, len(set))
	for raw := range set {
		raws = append(raws, raw)
	}
	sort.Strings(raws)
	return raws
}

// Matches reports whether a raw district string belongs to the selected
// canonical name. Selecting All imposes no restriction. The comparison is
// exact equality against the observed raw variants, never against a
// normalized copy.
func (x *Index) Matches(name, raw string) bool {
	if name == All || name == "" {
		return true
	}
	set, ok := x.variants[name]
	if !ok {
		return false
	}
	_, ok = set[raw]
	return ok
}
