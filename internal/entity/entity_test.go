package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Version
	}{
		{name: "full", in: "114.0.5735.90", want: Version{114, 0, 5735, 90}},
		{name: "short", in: "0.34", want: Version{Major: 0, Minor: 34}},
		{name: "padded", in: " 115.0 ", want: Version{Major: 115}},
		{name: "non_digit_field", in: "115.x.2", want: Version{Major: 115, Release: 2}},
		{name: "empty", in: "", want: Version{}},
		{name: "extra_fields", in: "1.2.3.4.5", want: Version{1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseVersion(tt.in))
		})
	}
}

func TestVersionCompare(t *testing.T) {
	assert.Equal(t, 0, ParseVersion("1.2.3.4").Compare(ParseVersion("1.2.3.4")))
	assert.Equal(t, -1, ParseVersion("1.2.3.4").Compare(ParseVersion("1.2.4.0")))
	assert.Equal(t, 1, ParseVersion("2.0").Compare(ParseVersion("1.9.9.9")))
}

func TestVersionReleasePrefix(t *testing.T) {
	assert.Equal(t, "114.0.5735", ParseVersion("114.0.5735.90").ReleasePrefix())
}

func TestBonusTable(t *testing.T) {
	table := BonusTable{Entries: []BonusEntry{{Key: 100, Cost: 12}, {Key: 1000, Cost: 120}}}

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []int{100, 1000}, table.Keys())

	cost, ok := table.Cost(1000)
	assert.True(t, ok)
	assert.Equal(t, 120, cost)

	_, ok = table.Cost(500)
	assert.False(t, ok)
}

func TestBonusOutcomeActivated(t *testing.T) {
	assert.True(t, BonusOutcome{Current: ActiveBonus(1000)}.Activated())
	assert.False(t, BonusOutcome{Current: ActiveBonusNone}.Activated())
	assert.False(t, BonusOutcome{Current: ActiveBonusUnknown}.Activated())
}

func TestActiveBonusString(t *testing.T) {
	assert.Equal(t, "unknown", ActiveBonusUnknown.String())
	assert.Equal(t, "0", ActiveBonusNone.String())
	assert.Equal(t, "50", ActiveBonus(50).String())
}
