package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/salespulse/internal/api/dto"
	"github.com/hugh/salespulse/internal/api/handlers"
	"github.com/hugh/salespulse/internal/api/middleware"
	"github.com/hugh/salespulse/internal/auth"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/testutil"
	"github.com/hugh/salespulse/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResponder() *handlers.Responder {
	return handlers.NewResponder(util.NopLogger(), true)
}

func setupAuthTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)

	handler := handlers.NewAuthHandler(tc.AuthService, newResponder(), false, 3600)

	r := chi.NewRouter()
	r.Post("/api/v1/auth/login", handler.Login)
	r.Post("/api/v1/auth/logout", handler.Logout)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tc.JWTService, tc.AuthService))
		r.Get("/api/v1/auth/me", handler.Me)
		r.With(middleware.RequireRole(models.RoleAdmin)).Post("/api/v1/auth/register", handler.Register)
	})

	return r, tc
}

func TestAuthHandler_Register(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	t.Run("admin registers AE with password", func(t *testing.T) {
		body := map[string]string{
			"email":      "NewAE@Example.com",
			"password":   "securepassword123",
			"first_name": "Jordan",
			"last_name":  "Lee",
		}

		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/auth/register", body, tc.AdminToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.RegisterResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "newae@example.com", resp.User.Email)
		assert.Equal(t, "Jordan Lee", resp.User.FullName)
		assert.Equal(t, "ae", resp.User.Role)
		assert.True(t, resp.User.IsActive)
		assert.Empty(t, resp.TemporaryPassword)
	})

	t.Run("temporary password issued when none given", func(t *testing.T) {
		body := map[string]string{
			"email":      "temp@example.com",
			"first_name": "Temp",
			"last_name":  "User",
			"role":       "admin",
		}

		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/auth/register", body, tc.AdminToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.RegisterResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "admin", resp.User.Role)
		require.NotEmpty(t, resp.TemporaryPassword)

		_, err := tc.AuthService.Login(testutil.TestContext(t), auth.LoginInput{
			Email:    "temp@example.com",
			Password: resp.TemporaryPassword,
		})
		assert.NoError(t, err)
	})

	t.Run("duplicate email", func(t *testing.T) {
		body := map[string]string{
			"email":      tc.User.Email,
			"first_name": "Dup",
			"last_name":  "User",
		}

		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/auth/register", body, tc.AdminToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("validation errors", func(t *testing.T) {
		body := map[string]string{
			"email":    "not-an-email",
			"password": "short",
			"role":     "manager",
		}

		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/auth/register", body, tc.AdminToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Contains(t, resp.Details, "email")
		assert.Contains(t, resp.Details, "password")
		assert.Contains(t, resp.Details, "first_name")
		assert.Contains(t, resp.Details, "role")
	})

	t.Run("AE cannot register users", func(t *testing.T) {
		body := map[string]string{
			"email":      "sneaky@example.com",
			"first_name": "Sneaky",
			"last_name":  "User",
		}

		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/auth/register", body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("requires authentication", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/register", map[string]string{})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	t.Run("successful login", func(t *testing.T) {
		body := map[string]string{
			"email":    tc.User.Email,
			"password": testutil.TestPassword,
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.AuthResponse
		err := json.Unmarshal(rr.Body.Bytes(), &resp)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, tc.User.Email, resp.User.Email)
		assert.Equal(t, "ae", resp.User.Role)

		// Check cookie is set
		var tokenCookie *http.Cookie
		for _, c := range rr.Result().Cookies() {
			if c.Name == "token" {
				tokenCookie = c
				break
			}
		}
		require.NotNil(t, tokenCookie)
		assert.Equal(t, resp.Token, tokenCookie.Value)
		assert.True(t, tokenCookie.HttpOnly)
		assert.Equal(t, 3600, tokenCookie.MaxAge)

		var csrf *http.Cookie
		for _, c := range rr.Result().Cookies() {
			if c.Name == "csrf_token" {
				csrf = c
			}
		}
		require.NotNil(t, csrf)
		assert.False(t, csrf.HttpOnly)
		assert.NotEmpty(t, csrf.Value)
	})

	t.Run("wrong password", func(t *testing.T) {
		body := map[string]string{
			"email":    tc.User.Email,
			"password": "wrongpassword",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("non-existent user", func(t *testing.T) {
		body := map[string]string{
			"email":    "nobody@example.com",
			"password": "whatever123",
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("inactive user", func(t *testing.T) {
		inactive := testutil.CreateTestUser(t, tc.DB, models.RoleAE, "Gone", "Away")
		testutil.Deactivate(t, tc.DB, inactive)

		body := map[string]string{
			"email":    inactive.Email,
			"password": testutil.TestPassword,
		}

		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", map[string]string{})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(`{"email":`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/logout", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var cleared bool
	for _, c := range rr.Result().Cookies() {
		if c.Name == "token" && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestAuthHandler_Me(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/auth/me", nil, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var user dto.UserDTO
	testutil.ParseJSONResponse(t, rr, &user)
	assert.Equal(t, tc.User.ID.String(), user.ID)
	assert.Equal(t, "Avery Baker", user.FullName)
}
