package shipping

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testZones() []Zone {
	return []Zone{
		{ID: "z1", Name: "Lagos", States: []string{"Lagos"}, Fee: decimal.NewFromInt(2500)},
		{ID: "z2", Name: "South West", States: []string{"Ogun", "Oyo", " Osun "}, Fee: decimal.NewFromInt(4000)},
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		state  string
		wantID string
	}{
		{name: "exact match", state: "Lagos", wantID: "z1"},
		{name: "case insensitive", state: "oyo", wantID: "z2"},
		{name: "whitespace trimmed", state: "  Osun", wantID: "z2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, err := Resolve(testZones(), tt.state)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, z.ID)
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	for _, state := range []string{"Kano", "", "   "} {
		_, err := Resolve(testZones(), state)

		var znf *ZoneNotFoundError
		require.ErrorAs(t, err, &znf, "state %q", state)
		assert.Equal(t, state, znf.State)
	}
}

func TestFind(t *testing.T) {
	z, ok := Find(testZones(), "z2")
	require.True(t, ok)
	assert.Equal(t, "South West", z.Name)

	_, ok = Find(testZones(), "missing")
	assert.False(t, ok)
}
