// Package models holds the value types shared across the dashboard engine:
// snapshots, filter specs, and the presentation-ready outputs.
package models

import (
	"time"

	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/records"
)

// Snapshot is one completed fetch from the record store. Arrays are immutable
// once installed; filters and pagination are recomputed from them on demand
// and never written back.
type Snapshot struct {
	Households    []records.Record `json:"households"`
	Persons       []records.Record `json:"persons"`
	ServiceEvents []records.Record `json:"serviceEvents"`
	CasePlans     []records.Record `json:"casePlans"`
	Referrals     []records.Record `json:"referrals"`
	Flags         []records.Record `json:"flags"`
	FetchedAt     time.Time        `json:"fetchedAt"`
}

// RefreshSource reports where a completed refresh got its snapshot. A cache
// source means the record store fetch failed and the last good snapshot was
// served instead; a superseded refresh installed nothing.
type RefreshSource string

const (
	RefreshSourceStore      RefreshSource = "record_store"
	RefreshSourceCache      RefreshSource = "cache"
	RefreshSourceSuperseded RefreshSource = "superseded"
)

// EntityKind selects which entity array a computation runs over.
type EntityKind string

const (
	KindHousehold EntityKind = "household"
	KindPerson    EntityKind = "person"
)

// Selection is one tri-state sub-population filter value.
type Selection string

const (
	SelectAll Selection = "all"
	SelectYes Selection = "yes"
	SelectNo  Selection = "no"
)

// Valid reports whether s is one of the three recognized selections.
func (s Selection) Valid() bool {
	return s == SelectAll || s == SelectYes || s == SelectNo
}

// CohortSpec maps cohort filter keys to their selections. Keys left out
// behave as SelectAll.
type CohortSpec map[string]Selection

// FilterSpec is the immutable view state a page passes into the engine. The
// engine itself owns no filter state.
type FilterSpec struct {
	Kind     EntityKind
	District string // canonical district name, or district.All
	Cohort   CohortSpec
}

// CohortStats is the coverage summary for the currently filtered cohort.
// The four named domains are the default configuration; rates are relative
// to the filtered cohort size, never the unfiltered universe.
type CohortStats struct {
	HealthCount   int     `json:"healthCount"`
	HealthRate    float64 `json:"healthRate"`
	SchooledCount int     `json:"schooledCount"`
	SchooledRate  float64 `json:"schooledRate"`
	SafeCount     int     `json:"safeCount"`
	SafeRate      float64 `json:"safeRate"`
	StableCount   int     `json:"stableCount"`
	StableRate    float64 `json:"stableRate"`
	AllFourCount  int     `json:"allFourCount"`
	AllFourRate   float64 `json:"allFourRate"`
	TotalEntities int     `json:"totalEntities"`
	TotalEvents   int     `json:"totalEvents"`
}

// RiskFlags is the composite risk classification for one entity.
type RiskFlags struct {
	HIVPositive       bool `json:"hivPositive"`
	HIVNoRecentVL     bool `json:"hivNoRecentVL"`
	UnsuppressedVL    bool `json:"unsuppressedVL"`
	NoServiceInWindow bool `json:"noServiceInWindow"`
	NoActiveCasePlan  bool `json:"noActiveCasePlan"`
	OverdueReferral   bool `json:"overdueReferral"`
	OutOfSchool       bool `json:"outOfSchool"`
	HighRisk          bool `json:"isHighRisk"`
}

// EntityRisk pairs an entity id with its flags.
type EntityRisk struct {
	EntityID string    `json:"entityId"`
	Flags    RiskFlags `json:"flags"`
}

// AuditRow is one presentation-ready row of the audit view. ServiceDate is
// the raw resolved text; sorting happens on the parsed date during assembly.
type AuditRow struct {
	ID               string   `json:"id"`
	District         string   `json:"district"`
	ServiceDate      string   `json:"serviceDate"`
	ProvidedServices []string `json:"providedServices"`
	CaseworkerName   string   `json:"caseworkerName"`
}

// AuditPage is one page of assembled audit rows.
type AuditPage struct {
	Rows      []AuditRow `json:"rows"`
	Page      int        `json:"page"`
	PageSize  int        `json:"pageSize"`
	TotalRows int        `json:"totalRows"`
}

// DistrictInfo describes one canonical district and its raw spelling variants.
type DistrictInfo struct {
	Name     string   `json:"name"`
	Variants []string `json:"variants"`
}

// CasePlanServices is the service list attributed to a case plan. Fallback
// reports that no explicit link resolved and the owner's full service history
// is shown instead; callers must surface it, never hide it.
type CasePlanServices struct {
	CasePlanID string           `json:"casePlanId"`
	Services   []records.Record `json:"services"`
	Fallback   bool             `json:"fallback"`
}
