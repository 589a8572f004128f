package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	token, err := GenerateToken("s3cret", 42)
	require.NoError(t, err)

	id, err := ParseToken("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	_, err = ParseToken("other", token)
	assert.Error(t, err)
}

func TestRejectsExpiredAndForeignTokens(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": 1,
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := expired.SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = ParseToken("k", signed)
	assert.Error(t, err)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	signed, err = noSubject.SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = ParseToken("k", signed)
	assert.Error(t, err)

	_, err = GenerateToken("", 1)
	assert.Error(t, err)
}
