package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole("ROLE_USER")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, r)

	r, err = ParseRole("ROLE_ADMIN")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	_, err = ParseRole("role_admin")
	require.Error(t, err)
	_, err = ParseRole("")
	require.Error(t, err)
}

func TestRole_Satisfies(t *testing.T) {
	tests := []struct {
		have, need Role
		want       bool
	}{
		{RoleUser, RoleUser, true},
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleUser, true},
		{RoleUser, RoleAdmin, false},
		{Role(""), RoleUser, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.have)+"->"+string(tt.need), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.have.Satisfies(tt.need))
		})
	}
}

func TestRefreshToken_ExpiryBoundary(t *testing.T) {
	expiry := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)
	rt := &RefreshToken{ExpiryDate: expiry}

	assert.False(t, rt.IsExpired(expiry.Add(-time.Nanosecond)))
	assert.True(t, rt.IsExpired(expiry), "expiry instant itself is expired")
	assert.True(t, rt.IsExpired(expiry.Add(time.Second)))
}

func TestRefreshToken_IsUsable(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, (&RefreshToken{ExpiryDate: now.Add(time.Hour)}).IsUsable(now))
	assert.False(t, (&RefreshToken{ExpiryDate: now.Add(time.Hour), Revoked: true}).IsUsable(now))
	assert.False(t, (&RefreshToken{ExpiryDate: now}).IsUsable(now))
}
