// Package handler is the thin HTTP layer over the dashboard service. It
// translates query parameters into filter specs and delegates; no business
// logic lives here.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/audit"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/config"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/district"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/models"
	dErrors "github.com/BlueCodeSystems/ecap-plus-pmp-sub000/pkg/domain-errors"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/pkg/platform/httputil"
)

// Service defines the engine operations the HTTP layer exposes.
type Service interface {
	Refresh(ctx context.Context) (models.RefreshSource, error)
	Stats(ctx context.Context, f models.FilterSpec) (*models.CohortStats, error)
	RiskProfiles(ctx context.Context, f models.FilterSpec) ([]models.EntityRisk, error)
	AuditPage(ctx context.Context, q audit.Query) (*models.AuditPage, error)
	ExportCSV(ctx context.Context, q audit.Query) ([]byte, error)
	Districts(ctx context.Context) ([]models.DistrictInfo, error)
	CasePlanServices(ctx context.Context, planID string) (*models.CasePlanServices, error)
}

// Handler wires dashboard endpoints to the engine service.
type Handler struct {
	service Service
	logger  *slog.Logger
	cfg     config.Engine
}

// New constructs a dashboard handler with its dependencies.
func New(service Service, logger *slog.Logger, cfg config.Engine) *Handler {
	return &Handler{service: service, logger: logger, cfg: cfg}
}

// Register mounts dashboard endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/districts", h.HandleDistricts)
		r.Get("/stats", h.HandleStats)
		r.Get("/risk", h.HandleRisk)
		r.Get("/audit", h.HandleAudit)
		r.Get("/audit/export", h.HandleAuditExport)
		r.Get("/caseplans/{planID}/services", h.HandleCasePlanServices)
		r.Post("/refresh", h.HandleRefresh)
	})
}

func (h *Handler) HandleDistricts(w http.ResponseWriter, r *http.Request) {
	districts, err := h.service.Districts(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, districts)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseFilterSpec(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	stats, err := h.service.Stats(r.Context(), f)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "stats computation failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) HandleRisk(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseFilterSpec(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	profiles, err := h.service.RiskProfiles(r.Context(), f)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "risk classification failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profiles)
}

func (h *Handler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseAuditQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.AuditPage(r.Context(), q)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "audit assembly failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) HandleAuditExport(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseAuditQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	csv, err := h.service.ExportCSV(r.Context(), q)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "csv export failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	filename := fmt.Sprintf("audit-export-%s.csv", uuid.NewString())
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(csv)
}

func (h *Handler) HandleCasePlanServices(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	if planID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "case plan id is required"))
		return
	}

	result, err := h.service.CasePlanServices(r.Context(), planID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	source, err := h.service.Refresh(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "refresh failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "refreshed",
		"source": string(source),
	})
}

func (h *Handler) parseFilterSpec(r *http.Request) (models.FilterSpec, error) {
	kind := models.KindHousehold
	switch r.URL.Query().Get("kind") {
	case "", string(models.KindHousehold):
	case string(models.KindPerson):
		kind = models.KindPerson
	default:
		return models.FilterSpec{}, dErrors.New(dErrors.CodeBadRequest, "kind must be household or person")
	}

	cohortSpec, err := h.parseCohortSpec(r)
	if err != nil {
		return models.FilterSpec{}, err
	}

	return models.FilterSpec{
		Kind:     kind,
		District: districtParam(r),
		Cohort:   cohortSpec,
	}, nil
}

func (h *Handler) parseAuditQuery(r *http.Request) (audit.Query, error) {
	cohortSpec, err := h.parseCohortSpec(r)
	if err != nil {
		return audit.Query{}, err
	}

	q := audit.Query{
		Search:   r.URL.Query().Get("search"),
		District: districtParam(r),
		Cohort:   cohortSpec,
	}

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return audit.Query{}, dErrors.New(dErrors.CodeBadRequest, "page must be a positive integer")
		}
		q.Page = page
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return audit.Query{}, dErrors.New(dErrors.CodeBadRequest, "page_size must be a positive integer")
		}
		q.PageSize = size
	}
	return q, nil
}

// Cohort filters arrive as one query parameter per configured cohort key,
// e.g. ?calhiv=yes&agyw=no. Absent parameters behave as "all".
func (h *Handler) parseCohortSpec(r *http.Request) (models.CohortSpec, error) {
	spec := models.CohortSpec{}
	for key := range h.cfg.CohortKeyMap {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			continue
		}
		sel := models.Selection(raw)
		if !sel.Valid() {
			return nil, dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("%s must be one of all, yes, no", key))
		}
		spec[key] = sel
	}
	return spec, nil
}

func districtParam(r *http.Request) string {
	name := r.URL.Query().Get("district")
	if name == "" {
		return district.All
	}
	return name
}
