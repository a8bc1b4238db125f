package caseplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/config"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/records"
)

var cfg = config.Default()

func TestServicesExplicitLink(t *testing.T) {
	plan := records.Record{"case_plan_id": "CP1", "household_id": "H1"}
	events := []records.Record{
		{"case_plan_id": "CP1", "household_id": "H1", "services": "a"},
		{"case_plan_id": "CP2", "household_id": "H1", "services": "b"},
		{"household_id": "H1", "services": "c"},
	}

	got := Services(plan, events, cfg)

	assert.False(t, got.Fallback)
	require.Len(t, got.Services, 1)
	assert.Equal(t, "a", got.Services[0]["services"])
}

func TestServicesFallbackToOwnerHistory(t *testing.T) {
	plan := records.Record{"case_plan_id": "CP9", "household_id": "H1"}
	events := []records.Record{
		{"household_id": "H1", "services": "a"},
		{"household_id": "H1", "services": "b"},
		{"household_id": "H2", "services": "other household"},
	}

	got := Services(plan, events, cfg)

	assert.True(t, got.Fallback, "fallback must be surfaced, not silent")
	assert.Len(t, got.Services, 2)
}

func TestServicesUnresolvablePlanAndOwner(t *testing.T) {
	got := Services(records.Record{}, []records.Record{{"household_id": "H1"}}, cfg)

	assert.True(t, got.Fallback)
	assert.Empty(t, got.Services)
	assert.Equal(t, records.NotAvailable, got.CasePlanID)
}
