package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/access"
	"github.com/hugh/salespulse/internal/api/dto"
	"github.com/hugh/salespulse/internal/auth"
	"github.com/hugh/salespulse/internal/database/models"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "user_email"
	UserRoleKey  contextKey = "user_role"
)

// UserLoader resolves the account behind a token. It must fail for
// disabled accounts.
type UserLoader interface {
	ActiveUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Auth accepts a token from a Bearer Authorization header, X-Auth-Token
// or the "token" cookie, in that order, then reloads the user so a disabled account or a
// changed role takes effect on the next request.
func Auth(tokens auth.TokenService, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				unauthorized(w, "Missing token")
				return
			}

			claims, err := tokens.ValidateToken(token)
			if err != nil {
				unauthorized(w, "Invalid or expired token")
				return
			}

			user, err := users.ActiveUser(r.Context(), claims.UserID)
			switch {
			case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrInactiveUser):
				unauthorized(w, "Account not found or inactive")
				return
			case err != nil:
				slog.ErrorContext(r.Context(), "loading session user", "user_id", claims.UserID, "error", err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserIDKey, user.ID)
			ctx = context.WithValue(ctx, UserEmailKey, user.Email)
			ctx = context.WithValue(ctx, UserRoleKey, user.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// headerToken returns a token sent explicitly in a header: a Bearer
// Authorization value or X-Auth-Token. Other Authorization schemes are
// ignored.
func headerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); tok != "" {
			return tok
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Auth-Token"))
}

func extractToken(r *http.Request) string {
	if tok := headerToken(r); tok != "" {
		return tok
	}
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusUnauthorized, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: msg})
}

// Helper functions to extract values from context
func GetUserID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

func GetUserEmail(ctx context.Context) string {
	if email, ok := ctx.Value(UserEmailKey).(string); ok {
		return email
	}
	return ""
}

func GetUserRole(ctx context.Context) models.Role {
	if role, ok := ctx.Value(UserRoleKey).(models.Role); ok {
		return role
	}
	return ""
}

// GetActor returns the authenticated caller for access checks.
func GetActor(ctx context.Context) access.Actor {
	return access.Actor{ID: GetUserID(ctx), Role: GetUserRole(ctx)}
}

// RequireRole middleware ensures user has specific role
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userRole := GetUserRole(r.Context())

			for _, role := range roles {
				if userRole == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, http.StatusForbidden, "Forbidden")
		})
	}
}
