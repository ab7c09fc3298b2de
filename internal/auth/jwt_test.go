package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	token, err := Issue(42, "timetrack", "secret", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token.Value)

	claims, err := Parse(token.Value, "secret", "timetrack")
	require.NoError(t, err)
	require.Equal(t, 42, claims.UserID)
	require.Equal(t, "42", claims.Subject)
}

func TestParseRejectsWrongKey(t *testing.T) {
	token, err := Issue(1, "timetrack", "secret", time.Hour)
	require.NoError(t, err)

	_, err = Parse(token.Value, "other-secret", "timetrack")
	require.Error(t, err)
}

func TestParseRejectsIssuerMismatch(t *testing.T) {
	token, err := Issue(1, "someone-else", "secret", time.Hour)
	require.NoError(t, err)

	_, err = Parse(token.Value, "secret", "timetrack")
	require.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := Issue(1, "timetrack", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token.Value, "secret", "timetrack")
	require.Error(t, err)
}
