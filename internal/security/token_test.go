package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken("secret", "user-1", TokenAccess, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := ParseToken(token, "secret", TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := IssueToken("secret", "user-1", TokenAccess, time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret", TokenAccess)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseTokenExpired(t *testing.T) {
	token, err := IssueToken("secret", "user-1", TokenAccess, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "secret", TokenAccess)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseTokenWrongKind(t *testing.T) {
	token, err := IssueToken("secret", "user-1", TokenRefresh, time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "secret", TokenAccess)
	assert.ErrorIs(t, err, ErrWrongTokenKind)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("not.a.jwt", "secret", TokenAccess)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIssueTokenUnique(t *testing.T) {
	first, err := IssueToken("secret", "user-1", TokenRefresh, time.Hour)
	require.NoError(t, err)
	second, err := IssueToken("secret", "user-1", TokenRefresh, time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestHashRefreshToken(t *testing.T) {
	first := HashRefreshToken("token-a")
	second := HashRefreshToken("token-a")
	other := HashRefreshToken("token-b")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Len(t, first, 32)
}
