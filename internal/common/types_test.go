package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"tenant":      RoleTenant,
		" Landlord ":  RoleLandlord,
		"FACILITATOR": RoleFacilitator,
		"admin":       RoleAdmin,
	}
	for input, expected := range cases {
		role, err := ParseRole(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, expected, role)
	}

	_, err := ParseRole("janitor")
	assert.True(t, IsBadRequest(err))
}

func TestNormalizePage(t *testing.T) {
	p := NormalizePage(0, 0, 50, 100)
	assert.Equal(t, Page{Page: 1, Limit: 50}, p)
	assert.Equal(t, 0, p.Offset())

	p = NormalizePage(3, 500, 50, 100)
	assert.Equal(t, Page{Page: 3, Limit: 100}, p)
	assert.Equal(t, 200, p.Offset())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("  short ", 10))
	assert.Equal(t, "abc...", Preview("abcdef", 3))
}
