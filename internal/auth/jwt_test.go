package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewJWTManager("secret")
	token, err := m.Generate("user-1")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), claims.ExpiresAt.Time, 5*time.Second)
}

func TestValidateRejectsExpired(t *testing.T) {
	m := NewJWTManager("secret")
	issued := time.Now().Add(-TokenTTL - time.Minute)
	m.now = func() time.Time { return issued }
	token, err := m.Generate("user-1")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateRejectsForeignTokens(t *testing.T) {
	token, err := NewJWTManager("other").Generate("user-1")
	require.NoError(t, err)
	_, err = NewJWTManager("secret").Validate(token)
	assert.Error(t, err, "wrong key")

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{UserID: "user-1"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = NewJWTManager("secret").Validate(hs512)
	assert.Error(t, err, "unexpected algorithm")

	anonymous, err := NewJWTManager("secret").Generate("")
	require.NoError(t, err)
	_, err = NewJWTManager("secret").Validate(anonymous)
	assert.Error(t, err, "missing subject")

	_, err = NewJWTManager("secret").Validate("not-a-jwt")
	assert.Error(t, err)
}
