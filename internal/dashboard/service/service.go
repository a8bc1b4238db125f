// Package service orchestrates the dashboard engine: it owns the snapshot
// lifecycle and composes the normalization, coverage, risk, and audit
// components over the latest completed snapshot. All computation is a pure
// function of that snapshot plus the caller's filter spec; the only mutable
// state here is which snapshot is installed.
package service

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/audit"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/caseplan"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/cohort"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/config"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/coverage"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/district"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/metrics"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/models"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/ports"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/risk"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/records"
	dErrors "github.com/BlueCodeSystems/ecap-plus-pmp-sub000/pkg/domain-errors"
)

type Service struct {
	store   ports.RecordStore
	cache   ports.SnapshotCache
	cfg     config.Engine
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time

	generation atomic.Uint64

	mu      sync.RWMutex
	snap    *models.Snapshot
	idx     *district.Index
	lastErr error
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithCache(cache ports.SnapshotCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNowFunc overrides the evaluation clock. Risk windows anchor to this.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store ports.RecordStore, cfg config.Engine, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "record store is required")
	}

	svc := &Service{
		store:  store,
		cfg:    cfg,
		logger: slog.Default(),
		tracer: otel.Tracer("dashboard"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Refresh fetches a new snapshot from the record store. If a newer refresh
// started while this one was in flight, the stale result is discarded, never
// merged. On upstream failure the service falls back to the snapshot cache
// when one is configured; otherwise the failure is held as a distinct error
// state until a refresh succeeds. The returned source tells the caller where
// the installed snapshot came from, so a masked upstream failure stays
// visible.
func (s *Service) Refresh(ctx context.Context) (models.RefreshSource, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.Refresh")
	defer span.End()

	generation := s.generation.Add(1)

	snap, err := s.store.FetchSnapshot(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementRefreshFailures()
		}
		s.logger.ErrorContext(ctx, "snapshot refresh failed", "error", err)

		if cached := s.cachedSnapshot(ctx); cached != nil {
			s.install(ctx, generation, cached)
			return models.RefreshSourceCache, nil
		}

		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "record store fetch failed")
	}

	if !s.install(ctx, generation, snap) {
		return models.RefreshSourceSuperseded, nil
	}

	if s.metrics != nil {
		s.metrics.IncrementRefreshes()
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "snapshot cache write failed", "error", err)
		}
	}
	return models.RefreshSourceStore, nil
}

// install makes snap current unless a newer refresh has started. Reports
// whether the snapshot was installed.
func (s *Service) install(ctx context.Context, generation uint64, snap *models.Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation.Load() {
		if s.metrics != nil {
			s.metrics.IncrementStaleSnapshotsDropped()
		}
		s.logger.WarnContext(ctx, "stale snapshot discarded",
			"fetch_generation", generation,
			"current_generation", s.generation.Load(),
		)
		return false
	}

	s.snap = snap
	s.idx = district.Build(allDistrictRecords(snap), s.cfg.DistrictKeys)
	s.lastErr = nil

	if s.metrics != nil {
		s.metrics.SetSnapshotRecords("household", len(snap.Households))
		s.metrics.SetSnapshotRecords("person", len(snap.Persons))
		s.metrics.SetSnapshotRecords("service_event", len(snap.ServiceEvents))
		s.metrics.SetSnapshotRecords("case_plan", len(snap.CasePlans))
		s.metrics.SetSnapshotRecords("referral", len(snap.Referrals))
		s.metrics.SetSnapshotRecords("flag", len(snap.Flags))
	}
	return true
}

func (s *Service) cachedSnapshot(ctx context.Context) *models.Snapshot {
	if s.cache == nil {
		return nil
	}
	cached, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "snapshot cache read failed", "error", err)
		return nil
	}
	if cached != nil {
		s.logger.InfoContext(ctx, "serving cached snapshot after upstream failure",
			"fetched_at", cached.FetchedAt)
	}
	return cached
}

// snapshot returns the current snapshot and district index, or the distinct
// unavailable error state when no fetch has completed yet.
func (s *Service) snapshot() (*models.Snapshot, *district.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		if s.lastErr != nil {
			return nil, nil, dErrors.Wrap(s.lastErr, dErrors.CodeUnavailable, "no snapshot available")
		}
		return nil, nil, dErrors.New(dErrors.CodeUnavailable, "no snapshot available")
	}
	return s.snap, s.idx, nil
}

// Stats computes cohort coverage for the filtered cohort. Rates come back
// relative to that cohort's size, never the unfiltered universe.
func (s *Service) Stats(ctx context.Context, f models.FilterSpec) (*models.CohortStats, error) {
	_, span := s.tracer.Start(ctx, "dashboard.Stats")
	defer span.End()

	snap, idx, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	entities := s.filterEntities(snap, idx, f)
	events := s.filterEventsByDistrict(snap.ServiceEvents, idx, f.District)

	idKeys := s.entityIDKeys(f.Kind)
	stats := coverage.Aggregate(entities, events, idKeys, s.cfg.EventOwnerKeys, s.cfg.Domains)

	return composeCohortStats(stats), nil
}

// RiskProfiles classifies every entity in the filtered cohort.
func (s *Service) RiskProfiles(ctx context.Context, f models.FilterSpec) ([]models.EntityRisk, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.RiskProfiles")
	defer span.End()

	snap, idx, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	entities := s.filterEntities(snap, idx, f)
	byOwner := risk.GroupInputs(snap.ServiceEvents, snap.CasePlans, snap.Referrals, s.cfg)

	return risk.ClassifyAll(ctx, entities, s.entityIDKeys(f.Kind), byOwner, s.now(), s.cfg)
}

// AuditPage assembles one page of the audit view.
func (s *Service) AuditPage(ctx context.Context, q audit.Query) (*models.AuditPage, error) {
	_, span := s.tracer.Start(ctx, "dashboard.AuditPage")
	defer span.End()

	snap, idx, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	if q.PageSize <= 0 {
		q.PageSize = s.cfg.PageSize
	}
	rows := audit.Assemble(snap.ServiceEvents, q, idx, s.cfg)
	page := audit.Page(rows, q.Page, q.PageSize)
	return &page, nil
}

// ExportCSV renders the full filtered audit view, not just one page.
func (s *Service) ExportCSV(ctx context.Context, q audit.Query) ([]byte, error) {
	_, span := s.tracer.Start(ctx, "dashboard.ExportCSV")
	defer span.End()

	snap, idx, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	rows := audit.Assemble(snap.ServiceEvents, q, idx, s.cfg)

	var buf bytes.Buffer
	if err := audit.WriteCSV(&buf, rows); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "render csv export")
	}
	if s.metrics != nil {
		s.metrics.IncrementExports()
	}
	return buf.Bytes(), nil
}

// Districts lists canonical districts with their observed raw variants.
func (s *Service) Districts(ctx context.Context) ([]models.DistrictInfo, error) {
	_, idx, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	names := idx.Names()
	out := make([]models.DistrictInfo, 0, len(names))
	for _, name := range names {
		out = append(out, models.DistrictInfo{Name: name, Variants: idx.Variants(name)})
	}
	return out, nil
}

// CasePlanServices returns the services linked to a case plan, surfacing the
// owner-history fallback when no explicit link resolves.
func (s *Service) CasePlanServices(ctx context.Context, planID string) (*models.CasePlanServices, error) {
	snap, _, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	for _, plan := range snap.CasePlans {
		id, ok := records.ResolveID(plan, s.cfg.CasePlanIDKeys)
		if !ok || id != planID {
			continue
		}
		result := caseplan.Services(plan, snap.ServiceEvents, s.cfg)
		if result.Fallback {
			s.logger.WarnContext(ctx, "case plan has no linked services, showing owner history",
				"case_plan_id", planID)
		}
		return &result, nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "case plan not found")
}

func (s *Service) entityIDKeys(kind models.EntityKind) []string {
	if kind == models.KindPerson {
		return s.cfg.PersonIDKeys
	}
	return s.cfg.HouseholdIDKeys
}

func (s *Service) filterEntities(snap *models.Snapshot, idx *district.Index, f models.FilterSpec) []records.Record {
	source := snap.Households
	if f.Kind == models.KindPerson {
		source = snap.Persons
	}

	out := make([]records.Record, 0, len(source))
	for _, entity := range source {
		if !idx.Matches(f.District, records.Text(entity, s.cfg.DistrictKeys)) {
			continue
		}
		if !cohort.Matches(entity, f.Cohort, s.cfg.CohortKeyMap) {
			continue
		}
		out = append(out, entity)
	}
	return out
}

// Events are restricted by district only; the sub-population filter selects
// entities, and event attribution then follows entity ids.
func (s *Service) filterEventsByDistrict(events []records.Record, idx *district.Index, name string) []records.Record {
	if name == "" || name == district.All {
		return events
	}
	out := make([]records.Record, 0, len(events))
	for _, event := range events {
		if idx.Matches(name, records.Text(event, s.cfg.DistrictKeys)) {
			out = append(out, event)
		}
	}
	return out
}

func composeCohortStats(stats coverage.Stats) *models.CohortStats {
	out := &models.CohortStats{
		AllFourCount:  stats.AllDomainsCount,
		AllFourRate:   stats.AllDomainsRate,
		TotalEntities: stats.TotalEntities,
		TotalEvents:   stats.TotalEvents,
	}
	for _, d := range stats.Domains {
		switch d.Name {
		case "health":
			out.HealthCount, out.HealthRate = d.Count, d.Rate
		case "schooled":
			out.SchooledCount, out.SchooledRate = d.Count, d.Rate
		case "safe":
			out.SafeCount, out.SafeRate = d.Count, d.Rate
		case "stable":
			out.StableCount, out.StableRate = d.Count, d.Rate
		}
	}
	return out
}

func allDistrictRecords(snap *models.Snapshot) []records.Record {
	recs := make([]records.Record, 0, len(snap.Households)+len(snap.Persons)+len(snap.ServiceEvents))
	recs = append(recs, snap.Households...)
	recs = append(recs, snap.Persons...)
	recs = append(recs, snap.ServiceEvents...)
	return recs
}
