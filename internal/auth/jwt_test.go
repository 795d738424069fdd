package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/classpulse/backend/internal/auth"
)

const secret = "test-secret"

func mintToken(t *testing.T, secret string, claims auth.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidate(t *testing.T) {
	svc := auth.NewJWTService(secret)
	userID := uuid.New()
	token := mintToken(t, secret, auth.Claims{
		UserID: userID,
		Role:   "faculty",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, "faculty", claims.Role)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	svc := auth.NewJWTService(secret)
	token := mintToken(t, "other-secret", auth.Claims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := svc.Validate(token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := auth.NewJWTService(secret)
	token := mintToken(t, secret, auth.Claims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, err := svc.Validate(token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}
