package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := New("test-secret", time.Hour)

	token, issued, err := svc.GenerateToken("user-1", "consultant")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "consultant", claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	assert.NotEmpty(t, claims.ID)
}

func TestValidate_WrongSecret(t *testing.T) {
	token, _, err := New("secret-a", time.Hour).GenerateToken("user-1", "client")
	require.NoError(t, err)

	_, err = New("secret-b", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Expired(t *testing.T) {
	svc := New("secret", -time.Minute)
	token, _, err := svc.GenerateToken("user-1", "client")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensHaveDistinctIDs(t *testing.T) {
	svc := New("secret", time.Hour)
	_, a, err := svc.GenerateToken("user-1", "client")
	require.NoError(t, err)
	_, b, err := svc.GenerateToken("user-1", "client")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}
