package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	keys := []string{"household_id", "hh_id", "uid", "unique_id"}

	tests := []struct {
		name   string
		record Record
		want   any
	}{
		{
			name:   "first key wins",
			record: Record{"household_id": "HH-001", "hh_id": "HH-002"},
			want:   "HH-001",
		},
		{
			name:   "nil value skipped",
			record: Record{"household_id": nil, "hh_id": "HH-002"},
			want:   "HH-002",
		},
		{
			name:   "empty string skipped",
			record: Record{"household_id": "", "uid": "HH-003"},
			want:   "HH-003",
		},
		{
			name:   "nothing qualifies yields sentinel",
			record: Record{"household_id": "", "other": "x"},
			want:   NotAvailable,
		},
		{
			name:   "no coercion on non-string values",
			record: Record{"household_id": float64(42)},
			want:   float64(42),
		},
		{
			name:   "zero is present",
			record: Record{"household_id": float64(0), "hh_id": "HH-009"},
			want:   float64(0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.record, keys))
		})
	}
}

func TestResolveNeverPanics(t *testing.T) {
	assert.Equal(t, NotAvailable, Resolve(nil, []string{"uid"}))
	assert.Equal(t, NotAvailable, Resolve(Record{}, nil))
}

func TestResolveID(t *testing.T) {
	keys := []string{"uid", "unique_id"}

	id, ok := ResolveID(Record{"uid": "VCA-17"}, keys)
	assert.True(t, ok)
	assert.Equal(t, "VCA-17", id)

	_, ok = ResolveID(Record{"uid": "  "}, keys)
	assert.False(t, ok, "whitespace id must be unusable")

	_, ok = ResolveID(Record{"other": "x"}, keys)
	assert.False(t, ok, "missing id must be unusable")

	_, ok = ResolveID(Record{"uid": NotAvailable}, keys)
	assert.False(t, ok, "sentinel id must be unusable")
}

func TestText(t *testing.T) {
	assert.Equal(t, "Lusaka", Text(Record{"district": "Lusaka"}, []string{"district"}))
	assert.Equal(t, "7", Text(Record{"count": float64(7)}, []string{"count"}))
	assert.Equal(t, NotAvailable, Text(Record{}, []string{"district"}))
}
