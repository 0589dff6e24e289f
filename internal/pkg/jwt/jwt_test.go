package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_StreamToken(t *testing.T) {
	svc := NewJWTService("test-secret", time.Minute)

	token, expiresIn, err := svc.GenerateStreamToken("user-1", "screen-1")
	require.NoError(t, err)
	assert.Equal(t, 60, expiresIn)

	userID, err := svc.ValidateStreamToken(token, "screen-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	_, err = svc.ValidateStreamToken(token, "screen-2")
	assert.ErrorIs(t, err, auth.ErrStreamTokenMismatch)
}

func TestJWTService_ValidateStreamToken_RejectsAccessToken(t *testing.T) {
	svc := NewJWTService("test-secret", time.Minute)

	token, _, err := svc.GenerateAccessToken("user-1", "admin@example.com", time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateStreamToken(token, "screen-1")
	assert.ErrorIs(t, err, auth.ErrWrongTokenType)
}

func TestJWTService_ValidateStreamToken_Invalid(t *testing.T) {
	svc := NewJWTService("test-secret", time.Minute)
	other := NewJWTService("other-secret", time.Minute)

	token, _, err := other.GenerateStreamToken("user-1", "screen-1")
	require.NoError(t, err)

	_, err = svc.ValidateStreamToken(token, "screen-1")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = svc.ValidateStreamToken("not-a-token", "screen-1")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWTService_AccessTokenDecodes(t *testing.T) {
	svc := NewJWTService("test-secret", 0)

	token, _, err := svc.GenerateAccessToken("user-9", "ops@example.com", time.Hour)
	require.NoError(t, err)

	decoded, err := svc.JWTAuth().Decode(token)
	require.NoError(t, err)
	claims, err := decoded.AsMap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-9", UserID(claims))
	assert.Equal(t, TypeAccess, claims["type"])
}
