package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/config"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/models"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/service"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/store/memory"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/records"
)

var testNow = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSnapshot() models.Snapshot {
	return models.Snapshot{
		Households: []records.Record{
			{"household_id": "H1", "district": "Lusaka", "is_hiv_positive": "1"},
			{"household_id": "H2", "district": "Ndola", "is_hiv_positive": "0"},
		},
		ServiceEvents: []records.Record{
			{"household_id": "H1", "district": "Lusaka", "service_date": "10-06-2024", "health_services": "HTS", "caseworker_name": "Mary Banda"},
			{"household_id": "H2", "district": "Ndola", "service_date": "05-06-2024", "schooled_services": "fees", "caseworker_name": "Agnes Mwale"},
		},
		CasePlans: []records.Record{
			{"case_plan_id": "CP1", "household_id": "H1"},
		},
	}
}

func newTestRouter(t *testing.T) (chi.Router, *memory.Store) {
	t.Helper()

	store := memory.New()
	store.Seed(testSnapshot())

	cfg := config.Default()
	svc, err := service.New(store, cfg,
		service.WithLogger(testLogger()),
		service.WithNowFunc(func() time.Time { return testNow }),
	)
	require.NoError(t, err)
	_, err = svc.Refresh(context.Background())
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, testLogger(), cfg).Register(r)
	return r, store
}

func doRequest(t *testing.T, router chi.Router, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleDistricts(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/districts")
	require.Equal(t, http.StatusOK, rec.Code)

	var districts []models.DistrictInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &districts))
	require.Len(t, districts, 2)
	assert.Equal(t, "Lusaka", districts[0].Name)
}

func TestHandleStats(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/stats?district=Lusaka")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.CohortStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalEntities)
	assert.Equal(t, 1, stats.HealthCount)
}

func TestHandleStatsCohortFilter(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/stats?calhiv=yes")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.CohortStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalEntities, "only H1 is flagged calhiv")
}

func TestHandleStatsRejectsBadParams(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/stats?kind=village")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/stats?calhiv=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRisk(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/risk")
	require.Equal(t, http.StatusOK, rec.Code)

	var profiles []models.EntityRisk
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profiles))
	require.Len(t, profiles, 2)
}

func TestHandleAuditPagination(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/audit?page=1&page_size=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var page models.AuditPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.TotalRows)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "H1", page.Rows[0].ID, "newest service first")

	rec = doRequest(t, router, http.MethodGet, "/api/v1/audit?page=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAuditExport(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/audit/export?district=Lusaka")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment; filename=")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\r\n")
	assert.Len(t, lines, 2, "header plus the single Lusaka row")
}

func TestHandleCasePlanServices(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/caseplans/CP1/services")
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.CasePlanServices
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "CP1", result.CasePlanID)
	assert.True(t, result.Fallback)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/caseplans/CP404/services")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRefresh(t *testing.T) {
	router, store := newTestRouter(t)

	// The refreshed snapshot replaces the seeded one.
	store.Seed(models.Snapshot{
		Households: []records.Record{{"household_id": "H9", "district": "Kitwe"}},
	})
	rec := doRequest(t, router, http.MethodPost, "/api/v1/refresh")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "refreshed", body["status"])
	assert.Equal(t, string(models.RefreshSourceStore), body["source"])

	rec = doRequest(t, router, http.MethodGet, "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.CohortStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalEntities)
}
