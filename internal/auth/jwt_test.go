package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/auth"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser(role models.Role) *models.User {
	return &models.User{
		Base:  models.Base{ID: uuid.New()},
		Email: "ae@example.com",
		Role:  role,
	}
}

func TestJWTService_GenerateToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 24*time.Hour)
	user := testUser(models.RoleAE)

	t.Run("round trips claims", func(t *testing.T) {
		token, err := jwtService.GenerateToken(user)
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		claims, err := jwtService.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, user.Email, claims.Email)
		assert.Equal(t, models.RoleAE, claims.Role)
		assert.Equal(t, "salespulse", claims.Issuer)
		assert.Equal(t, user.ID.String(), claims.Subject)
		assert.Contains(t, []string(claims.Audience), "salespulse-api")
		assert.WithinDuration(t, time.Now().Add(jwtService.TTL()), claims.ExpiresAt.Time, 5*time.Second)
	})

	t.Run("each token has its own id", func(t *testing.T) {
		first, err := jwtService.GenerateToken(user)
		require.NoError(t, err)
		second, err := jwtService.GenerateToken(user)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)

		a, err := jwtService.ValidateToken(first)
		require.NoError(t, err)
		b, err := jwtService.ValidateToken(second)
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("refuses a user without an id", func(t *testing.T) {
		_, err := jwtService.GenerateToken(&models.User{Email: "x@example.com"})
		assert.ErrorIs(t, err, auth.ErrInvalidToken)

		_, err = jwtService.GenerateToken(nil)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestJWTService_ValidateToken(t *testing.T) {
	user := testUser(models.RoleAdmin)

	forge := func(t *testing.T, method jwt.SigningMethod, key any, mutate func(*auth.Claims)) string {
		t.Helper()
		now := time.Now()
		claims := &auth.Claims{
			UserID: user.ID,
			Role:   models.RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "salespulse",
				Subject:   user.ID.String(),
				Audience:  jwt.ClaimStrings{"salespulse-api"},
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
		if mutate != nil {
			mutate(claims)
		}
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}

	t.Run("accepts a well formed token", func(t *testing.T) {
		token := forge(t, jwt.SigningMethodHS256, []byte("test-secret"), nil)
		claims, err := auth.NewJWTService("test-secret", time.Hour).ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		token, err := auth.NewJWTService("test-secret", -time.Hour).GenerateToken(user)
		require.NoError(t, err)

		_, err = auth.NewJWTService("test-secret", time.Hour).ValidateToken(token)
		assert.Equal(t, auth.ErrExpiredToken, err)
	})

	t.Run("tolerates small clock skew", func(t *testing.T) {
		token, err := auth.NewJWTService("test-secret", -5*time.Second).GenerateToken(user)
		require.NoError(t, err)

		_, err = auth.NewJWTService("test-secret", time.Hour).ValidateToken(token)
		assert.NoError(t, err)
	})

	t.Run("rejects tampered token", func(t *testing.T) {
		jwtService := auth.NewJWTService("test-secret", 24*time.Hour)

		token, err := jwtService.GenerateToken(user)
		require.NoError(t, err)

		_, err = jwtService.ValidateToken(token + "tampered")
		assert.Equal(t, auth.ErrInvalidToken, err)
	})

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"different secret", func(t *testing.T) string {
			return forge(t, jwt.SigningMethodHS256, []byte("secret-1"), nil)
		}},
		{"another issuer", func(t *testing.T) string {
			return forge(t, jwt.SigningMethodHS256, []byte("test-secret"), func(c *auth.Claims) { c.Issuer = "someone-else" })
		}},
		{"another audience", func(t *testing.T) string {
			return forge(t, jwt.SigningMethodHS256, []byte("test-secret"), func(c *auth.Claims) { c.Audience = jwt.ClaimStrings{"billing"} })
		}},
		{"no expiry", func(t *testing.T) string {
			return forge(t, jwt.SigningMethodHS256, []byte("test-secret"), func(c *auth.Claims) { c.ExpiresAt = nil })
		}},
		{"subject mismatch", func(t *testing.T) string {
			return forge(t, jwt.SigningMethodHS256, []byte("test-secret"), func(c *auth.Claims) { c.Subject = uuid.NewString() })
		}},
		{"nil user id", func(t *testing.T) string {
			return forge(t, jwt.SigningMethodHS256, []byte("test-secret"), func(c *auth.Claims) {
				c.UserID = uuid.Nil
				c.Subject = uuid.Nil.String()
			})
		}},
		{"HS512 instead of HS256", func(t *testing.T) string {
			return forge(t, jwt.SigningMethodHS512, []byte("test-secret"), nil)
		}},
		{"malformed", func(*testing.T) string { return "not-a-valid-jwt" }},
		{"empty", func(*testing.T) string { return "" }},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			_, err := auth.NewJWTService("test-secret", time.Hour).ValidateToken(tt.token(t))
			assert.Equal(t, auth.ErrInvalidToken, err)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, auth.CheckPassword("correct horse", hash))
	assert.False(t, auth.CheckPassword("wrong", hash))

	temp, err := auth.TemporaryPassword()
	require.NoError(t, err)
	assert.Len(t, temp, 12)
}
