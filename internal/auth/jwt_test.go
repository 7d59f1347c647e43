package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, exp, err := GenerateToken(42, RoleCashier, 7, time.Hour)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := ParseToken(token)
	require.NoError(t, err)

	p := PrincipalFromClaims(claims)
	assert.Equal(t, int64(42), p.UserID)
	assert.Equal(t, RoleCashier, p.Role)
	assert.Equal(t, int64(7), p.TenantID)
}

func TestParseTokenExpired(t *testing.T) {
	token, _, err := GenerateToken(1, RoleWaiter, 0, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("not.a.token")
	assert.Error(t, err)
}
