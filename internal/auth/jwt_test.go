package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	tokens, err := Issue("driver-1", RoleDriver, "bus-1", "campusbus", "secret", time.Minute, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)

	claims, err := Parse(tokens.AccessToken, "secret", "campusbus")
	require.NoError(t, err)
	assert.Equal(t, "driver-1", claims.Subject)
	assert.Equal(t, RoleDriver, claims.Role)
	assert.Equal(t, "bus-1", claims.BusID)
	assert.False(t, claims.IsAdmin())
}

func TestParseRejectsBadTokens(t *testing.T) {
	tokens, err := Issue("driver-1", RoleDriver, "bus-1", "campusbus", "secret", time.Minute, time.Hour)
	require.NoError(t, err)

	_, err = Parse(tokens.AccessToken, "wrong-key", "campusbus")
	assert.Error(t, err)

	_, err = Parse(tokens.AccessToken, "secret", "someone-else")
	assert.Error(t, err)

	expired, err := Issue("driver-1", RoleDriver, "bus-1", "campusbus", "secret", -time.Minute, time.Hour)
	require.NoError(t, err)
	_, err = Parse(expired.AccessToken, "secret", "campusbus")
	assert.Error(t, err)
}

func TestAdminClaims(t *testing.T) {
	tokens, err := Issue("ops-1", RoleAdmin, "", "campusbus", "secret", time.Minute, time.Hour)
	require.NoError(t, err)
	claims, err := Parse(tokens.AccessToken, "secret", "campusbus")
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
}
