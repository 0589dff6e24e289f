package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/auth"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Token types carried in the "type" claim.
const (
	TypeAccess = "access"
	TypeStream = "stream"
)

// DefaultStreamTTL is the lifetime of an SSE stream token.
const DefaultStreamTTL = 5 * time.Minute

type Service interface {
	GenerateAccessToken(userID string, email string, ttl time.Duration) (token string, expiresAt int64, err error)
	GenerateStreamToken(userID string, screenID string) (token string, expiresIn int, err error)
	ValidateStreamToken(tokenString string, screenID string) (userID string, err error)
	JWTAuth() *jwtauth.JWTAuth
}

// JWTService verifies access tokens issued by the identity provider with a
// shared HS256 secret and mints the short-lived tokens used by SSE streams,
// which cannot send an Authorization header.
type JWTService struct {
	tokenAuth *jwtauth.JWTAuth
	streamTTL time.Duration
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, streamTTL time.Duration) Service {
	if streamTTL <= 0 {
		streamTTL = DefaultStreamTTL
	}
	return &JWTService{
		tokenAuth: jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		streamTTL: streamTTL,
	}
}

func (j *JWTService) GenerateAccessToken(userID string, email string, ttl time.Duration) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(ttl).Unix()
	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id": userID,
		"email":   email,
		"type":    TypeAccess,
		"exp":     expiresAt,
	})
	return tokenString, expiresAt, err
}

// GenerateStreamToken generates a short-lived token bound to one screen
func (j *JWTService) GenerateStreamToken(userID string, screenID string) (token string, expiresIn int, err error) {
	expiresAt := time.Now().Add(j.streamTTL).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":   userID,
		"screen_id": screenID,
		"type":      TypeStream,
		"exp":       expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, int(j.streamTTL.Seconds()), nil
}

// ValidateStreamToken validates a stream token for screenID and returns the
// user ID
func (j *JWTService) ValidateStreamToken(tokenString string, screenID string) (userID string, err error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return "", auth.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %w", auth.ErrInvalidToken, err)
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != TypeStream {
		return "", auth.ErrWrongTokenType
	}

	boundTo, ok := token.Get("screen_id")
	if !ok || boundTo != screenID {
		return "", auth.ErrStreamTokenMismatch
	}

	userIDVal, ok := token.Get("user_id")
	if !ok {
		return "", auth.ErrInvalidToken
	}
	userID, ok = userIDVal.(string)
	if !ok || userID == "" {
		return "", auth.ErrInvalidToken
	}

	return userID, nil
}

// UserID extracts the user_id claim of a verified token's claims
func UserID(claims map[string]interface{}) string {
	if id, ok := claims["user_id"].(string); ok {
		return id
	}
	if sub, ok := claims["sub"].(string); ok {
		return sub
	}
	return ""
}
