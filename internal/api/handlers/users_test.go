package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/api/dto"
	"github.com/hugh/salespulse/internal/api/handlers"
	"github.com/hugh/salespulse/internal/api/middleware"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/testutil"
	"github.com/hugh/salespulse/internal/users"
	"github.com/hugh/salespulse/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUserTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)

	handler := handlers.NewUserHandler(users.NewService(tc.DB, util.NopLogger()), newResponder())
	admin := middleware.RequireRole(models.RoleAdmin)

	r := chi.NewRouter()
	r.Use(middleware.Auth(tc.JWTService, tc.AuthService))
	r.Route("/api/v1/users", func(r chi.Router) {
		r.With(admin).Get("/", handler.List)
		r.Get("/aes", handler.ListAEs)
		r.Get("/{id}", handler.Get)
		r.With(admin).Patch("/{id}", handler.Update)
		r.With(admin).Patch("/{id}/status", handler.SetStatus)
	})

	return r, tc
}

func TestUserHandler_List(t *testing.T) {
	router, tc := setupUserTestRouter(t)
	defer tc.Cleanup()

	inactive := testutil.CreateTestUser(t, tc.DB, models.RoleAE, "Gone", "Away")
	testutil.Deactivate(t, tc.DB, inactive)

	t.Run("admin lists everyone", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/users", nil, tc.AdminToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var list []dto.UserDTO
		testutil.ParseJSONResponse(t, rr, &list)
		assert.Len(t, list, 3)
	})

	t.Run("AE cannot list", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/users", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("AEs are active account executives only", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/users/aes", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var list []dto.UserDTO
		testutil.ParseJSONResponse(t, rr, &list)
		require.Len(t, list, 1)
		assert.Equal(t, tc.User.ID.String(), list[0].ID)
	})
}

func TestUserHandler_Get(t *testing.T) {
	router, tc := setupUserTestRouter(t)
	defer tc.Cleanup()

	tests := []struct {
		name   string
		id     string
		token  string
		status int
	}{
		{"own profile", tc.User.ID.String(), tc.Token, http.StatusOK},
		{"AE reading admin", tc.Admin.ID.String(), tc.Token, http.StatusForbidden},
		{"admin reading AE", tc.User.ID.String(), tc.AdminToken, http.StatusOK},
		{"unknown user", uuid.NewString(), tc.AdminToken, http.StatusNotFound},
		{"invalid id", "abc", tc.AdminToken, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/users/"+tt.id, nil, tt.token)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestUserHandler_Update(t *testing.T) {
	router, tc := setupUserTestRouter(t)
	defer tc.Cleanup()

	path := "/api/v1/users/" + tc.User.ID.String()

	t.Run("rename and promote", func(t *testing.T) {
		body := map[string]string{"first_name": "Ava", "role": "admin"}

		req := testutil.AuthenticatedRequest(t, "PATCH", path, body, tc.AdminToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var user dto.UserDTO
		testutil.ParseJSONResponse(t, rr, &user)
		assert.Equal(t, "Ava", user.FirstName)
		assert.Equal(t, "Baker", user.LastName)
		assert.Equal(t, "admin", user.Role)
	})

	t.Run("email taken", func(t *testing.T) {
		body := map[string]string{"email": tc.Admin.Email}

		req := testutil.AuthenticatedRequest(t, "PATCH", path, body, tc.AdminToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("invalid role", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "PATCH", path, map[string]string{"role": "owner"}, tc.AdminToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("nothing to update", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "PATCH", path, map[string]string{}, tc.AdminToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestUserHandler_SetStatus(t *testing.T) {
	router, tc := setupUserTestRouter(t)
	defer tc.Cleanup()

	ae := testutil.CreateTestUser(t, tc.DB, models.RoleAE, "Riley", "Chen")
	aeToken := tc.TokenFor(t, ae)
	path := "/api/v1/users/" + ae.ID.String() + "/status"

	t.Run("status required", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "PATCH", path, map[string]string{}, tc.AdminToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("deactivated user loses access", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "PATCH", path, map[string]bool{"is_active": false}, tc.AdminToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var user dto.UserDTO
		testutil.ParseJSONResponse(t, rr, &user)
		assert.False(t, user.IsActive)

		req = testutil.AuthenticatedRequest(t, "GET", "/api/v1/users/aes", nil, aeToken)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("reactivated", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "PATCH", path, map[string]bool{"is_active": true}, tc.AdminToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		req = testutil.AuthenticatedRequest(t, "GET", "/api/v1/users/aes", nil, aeToken)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
