// Package coverage computes per-entity and cohort-wide service-domain
// coverage. Coverage is monotonic per entity: one qualifying event sets a
// domain and later events can never unset it.
package coverage

import (
	"strings"

	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/config"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/records"
)

// DomainStat is the cohort-wide coverage for one service domain.
type DomainStat struct {
	Name  string
	Count int
	Rate  float64
}

// Stats summarizes domain coverage over an already-filtered cohort. Rates are
// relative to the filtered cohort size, never the unfiltered universe.
type Stats struct {
	Domains         []DomainStat
	AllDomainsCount int
	AllDomainsRate  float64
	TotalEntities   int
	TotalEvents     int
}

// notProvidedVocabulary is the case-insensitive set of values that count as
// "no service recorded" even though the field is populated.
var notProvidedVocabulary = map[string]struct{}{
	"not applicable": {},
	"n/a":            {},
	"na":             {},
	"none":           {},
	"no":             {},
	"false":          {},
	"0":              {},
	"[]":             {},
	"{}":             {},
}

// Aggregate computes coverage for entities against their service events.
// Events whose owning-entity id does not resolve are dropped silently; dirty
// rows degrade, they never error. The entities slice must already carry the
// district and cohort filters, because it is the denominator for every rate.
func Aggregate(entities, events []records.Record, entityIDKeys, eventOwnerKeys []string, domains []config.Domain) Stats {
	byOwner := groupByOwner(events, eventOwnerKeys)

	domainCounts := make([]int, len(domains))
	allCount := 0

	for _, entity := range entities {
		id, ok := records.ResolveID(entity, entityIDKeys)
		var owned []records.Record
		if ok {
			owned = byOwner[id]
		}

		all := len(domains) > 0
		for i, domain := range domains {
			has := false
			for _, event := range owned {
				if IsProvided(records.Resolve(event, domain.FieldKeys)) {
					has = true
					break
				}
			}
			if has {
				domainCounts[i]++
			} else {
				all = false
			}
		}
		if all {
			allCount++
		}
	}

	total := len(entities)
	stats := Stats{
		Domains:         make([]DomainStat, len(domains)),
		AllDomainsCount: allCount,
		AllDomainsRate:  rate(allCount, total),
		TotalEntities:   total,
		TotalEvents:     len(events),
	}
	for i, domain := range domains {
		stats.Domains[i] = DomainStat{
			Name:  domain.Name,
			Count: domainCounts[i],
			Rate:  rate(domainCounts[i], total),
		}
	}
	return stats
}

// IsProvided reports whether a domain field value records an actual service.
// Nil, empty, and the not-applicable vocabulary all count as not provided;
// empty arrays and objects from the export count as not provided too.
func IsProvided(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if s == "" {
			return false
		}
		_, rejected := notProvidedVocabulary[s]
		return !rejected
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func groupByOwner(events []records.Record, ownerKeys []string) map[string][]records.Record {
	byOwner := make(map[string][]records.Record)
	for _, event := range events {
		id, ok := records.ResolveID(event, ownerKeys)
		if !ok {
			continue
		}
		byOwner[id] = append(byOwner[id], event)
	}
	return byOwner
}

func rate(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}
