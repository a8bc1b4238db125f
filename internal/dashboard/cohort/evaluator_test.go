package cohort

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/models"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/records"
)

var keyMap = map[string]string{
	"calhiv": "is_hiv_positive",
	"agyw":   "is_agyw",
}

func TestMatchesAllSelectionsPassEverything(t *testing.T) {
	spec := models.CohortSpec{"calhiv": models.SelectAll, "agyw": models.SelectAll}

	assert.True(t, Matches(records.Record{}, spec, keyMap))
	assert.True(t, Matches(records.Record{"is_hiv_positive": "garbage"}, spec, keyMap))
	assert.True(t, Matches(nil, spec, keyMap))
}

func TestMatchesYesSemantics(t *testing.T) {
	spec := models.CohortSpec{"calhiv": models.SelectYes}

	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"string one", "1", true},
		{"string true", "true", true},
		{"number one", float64(1), true},
		{"bool true", true, true},
		{"string zero", "0", false},
		{"not applicable", "Not Applicable", false},
		{"uppercase TRUE is not exact", "TRUE", false},
		{"number two", float64(2), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := records.Record{"is_hiv_positive": tt.value}
			assert.Equal(t, tt.want, Matches(r, spec, keyMap))
		})
	}

	t.Run("missing field fails", func(t *testing.T) {
		assert.False(t, Matches(records.Record{}, spec, keyMap))
	})
}

func TestMatchesNoSemantics(t *testing.T) {
	spec := models.CohortSpec{"calhiv": models.SelectNo}

	assert.True(t, Matches(records.Record{"is_hiv_positive": "0"}, spec, keyMap))
	assert.True(t, Matches(records.Record{"is_hiv_positive": "false"}, spec, keyMap))
	assert.True(t, Matches(records.Record{"is_hiv_positive": float64(0)}, spec, keyMap))
	assert.True(t, Matches(records.Record{"is_hiv_positive": false}, spec, keyMap))

	// Missing and other values fail both branches, strict semantics.
	assert.False(t, Matches(records.Record{}, spec, keyMap))
	assert.False(t, Matches(records.Record{"is_hiv_positive": "Not Applicable"}, spec, keyMap))
	assert.False(t, Matches(records.Record{"is_hiv_positive": "2"}, spec, keyMap))
}

func TestMatchesActiveKeysAndTogether(t *testing.T) {
	spec := models.CohortSpec{
		"calhiv": models.SelectYes,
		"agyw":   models.SelectNo,
	}

	assert.True(t, Matches(records.Record{"is_hiv_positive": "1", "is_agyw": "0"}, spec, keyMap))
	assert.False(t, Matches(records.Record{"is_hiv_positive": "1", "is_agyw": "1"}, spec, keyMap))
	assert.False(t, Matches(records.Record{"is_hiv_positive": "0", "is_agyw": "0"}, spec, keyMap))
}

func TestMatchesUnmappedKeyResolvesToItself(t *testing.T) {
	spec := models.CohortSpec{"is_hei": models.SelectYes}
	assert.True(t, Matches(records.Record{"is_hei": "1"}, spec, nil))
	assert.False(t, Matches(records.Record{}, spec, nil))
}
