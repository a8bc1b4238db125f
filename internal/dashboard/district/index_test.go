package district

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/records"
)

var districtKeys = []string{"district", "hh_district"}

func TestBuildGroupsSpellingVariants(t *testing.T) {
	recs := []records.Record{
		{"district": "Lusaka"},
		{"district": "LUSAKA "},
		{"district": " lusaka"},
		{"district": "Ndola"},
		{"hh_district": "ndola"},
		{"other": "x"},
	}

	idx := Build(recs, districtKeys)

	require.Equal(t, []string{"Lusaka", "Ndola"}, idx.Names())
	assert.Len(t, idx.Variants("Lusaka"), 3)
	assert.Len(t, idx.Variants("Ndola"), 2)
}

func TestMatchesUsesRawSpelling(t *testing.T) {
	recs := []records.Record{
		{"district": "Lusaka"},
		{"district": "LUSAKA "},
		{"district": " lusaka"},
	}
	idx := Build(recs, districtKeys)

	for _, raw := range []string{"Lusaka", "LUSAKA ", " lusaka"} {
		assert.True(t, idx.Matches("Lusaka", raw), "raw %q should match canonical Lusaka", raw)
	}

	// The canonical spelling itself is not a variant unless it was observed.
	assert.False(t, idx.Matches("Lusaka", "lusaka district"))
	assert.False(t, idx.Matches("Kitwe", "Lusaka"), "unknown canonical matches nothing")
}

func TestMatchesAllImposesNoRestriction(t *testing.T) {
	idx := Build(nil, districtKeys)
	assert.True(t, idx.Matches(All, "anything"))
	assert.True(t, idx.Matches("", "anything"))
}

func TestCanonicalize(t *testing.T) {
	assert.Equal(t, "Lusaka", Canonicalize(" LUSAKA "))
	assert.Equal(t, "Chipata Central", Canonicalize("chipata central"))
}
