package users_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/access"
	"github.com/hugh/salespulse/internal/apperr"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/testutil"
	"github.com/hugh/salespulse/internal/users"
	"github.com/hugh/salespulse/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestService_ListAEs(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	svc := users.NewService(tc.DB, util.NopLogger())

	casey := testutil.CreateTestUser(t, tc.DB, models.RoleAE, "Casey", "Adams")
	gone := testutil.CreateTestUser(t, tc.DB, models.RoleAE, "Gone", "Away")
	testutil.Deactivate(t, tc.DB, gone)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	aes, err := svc.ListAEs(ctx)
	require.NoError(t, err)
	require.Len(t, aes, 2)
	assert.Equal(t, casey.ID, aes[0].ID)
	assert.Equal(t, tc.User.ID, aes[1].ID)
}

func TestService_Get(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	svc := users.NewService(tc.DB, util.NopLogger())

	self := access.Actor{ID: tc.User.ID, Role: models.RoleAE}
	admin := access.Actor{ID: tc.Admin.ID, Role: models.RoleAdmin}

	got, err := svc.Get(ctx, self, tc.User.ID)
	require.NoError(t, err)
	assert.Equal(t, tc.User.Email, got.Email)

	_, err = svc.Get(ctx, self, tc.Admin.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	got, err = svc.Get(ctx, admin, tc.User.ID)
	require.NoError(t, err)
	assert.Equal(t, tc.User.ID, got.ID)

	_, err = svc.Get(ctx, admin, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_Update(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	svc := users.NewService(tc.DB, util.NopLogger())

	t.Run("partial update", func(t *testing.T) {
		got, err := svc.Update(ctx, tc.User.ID, users.UpdateInput{
			FirstName: strPtr(" Ava "),
			Email:     strPtr("AVA@Example.com"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Ava", got.FirstName)
		assert.Equal(t, "Baker", got.LastName)
		assert.Equal(t, "ava@example.com", got.Email)
	})

	t.Run("promote to admin", func(t *testing.T) {
		role := models.RoleAdmin
		got, err := svc.Update(ctx, tc.User.ID, users.UpdateInput{Role: &role})
		require.NoError(t, err)
		assert.True(t, got.IsAdmin())
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Update(ctx, tc.User.ID, users.UpdateInput{Email: strPtr(tc.Admin.Email)})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("invalid fields", func(t *testing.T) {
		role := models.Role("manager")
		_, err := svc.Update(ctx, tc.User.ID, users.UpdateInput{Email: strPtr("nope"), Role: &role, LastName: strPtr("  ")})
		var verr *apperr.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Fields, 3)
	})

	t.Run("nothing to update", func(t *testing.T) {
		_, err := svc.Update(ctx, tc.User.ID, users.UpdateInput{})
		var verr *apperr.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "no updates provided", verr.Message)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := svc.Update(ctx, uuid.New(), users.UpdateInput{FirstName: strPtr("X")})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestService_SetStatus(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	svc := users.NewService(tc.DB, util.NopLogger())

	got, err := svc.SetStatus(ctx, tc.User.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = tc.AuthService.ActiveUser(ctx, tc.User.ID)
	assert.Error(t, err)

	got, err = svc.SetStatus(ctx, tc.User.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}
