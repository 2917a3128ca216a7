package activity_test

import (
	"encoding/json"
	"testing"

	"github.com/hugh/salespulse/internal/activity"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/testutil"
	"github.com/hugh/salespulse/pkg/crypto"
	"github.com/hugh/salespulse/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_ResealMetadata(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	oldKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	newKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	before, err := crypto.NewEncryptor(oldKey)
	require.NoError(t, err)
	oldSvc := activity.NewService(tc.DB, tc.Calendar, before, util.NopLogger())
	for i := 0; i < 5; i++ {
		_, err := oldSvc.Log(ctx, tc.User.ID, activity.LogInput{
			Type:     models.ActivityEmail,
			Metadata: json.RawMessage(`{"thread":"renewal"}`),
		})
		require.NoError(t, err)
	}

	// Plain metadata from a process running without a key stays as is.
	plainSvc := activity.NewService(tc.DB, tc.Calendar, nil, util.NopLogger())
	plain, err := plainSvc.Log(ctx, tc.User.ID, activity.LogInput{
		Type:     models.ActivityCall,
		Metadata: json.RawMessage(`{"plain":true}`),
	})
	require.NoError(t, err)

	// One value sealed to a key nobody kept.
	lost, err := crypto.NewEncryptor("")
	require.NoError(t, err)
	orphan, err := activity.NewService(tc.DB, tc.Calendar, lost, util.NopLogger()).
		Log(ctx, tc.User.ID, activity.LogInput{Type: models.ActivityMeeting, Metadata: json.RawMessage(`{}`)})
	require.NoError(t, err)

	rotated, err := crypto.NewEncryptor(newKey, oldKey)
	require.NoError(t, err)
	svc := activity.NewService(tc.DB, tc.Calendar, rotated, util.NopLogger())

	var sealedBefore []models.ActivityEvent
	require.NoError(t, tc.DB.Where("activity_type = ?", models.ActivityEmail).Order("id").Find(&sealedBefore).Error)

	stats, err := svc.ResealMetadata(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Resealed)
	assert.Equal(t, 1, stats.Failed)

	onlyNew, err := crypto.NewEncryptor(newKey)
	require.NoError(t, err)

	var events []models.ActivityEvent
	require.NoError(t, tc.DB.Where("user_id = ? AND activity_type = ?", tc.User.ID, models.ActivityEmail).Order("id").Find(&events).Error)
	require.Len(t, events, 5)
	for i, e := range events {
		opened, err := onlyNew.Open(*e.Metadata)
		require.NoError(t, err)
		assert.JSONEq(t, `{"thread":"renewal"}`, string(opened))

		// Only the ciphertext changes.
		was := sealedBefore[i]
		assert.NotEqual(t, *was.Metadata, *e.Metadata)
		assert.Equal(t, was.ID, e.ID)
		assert.Equal(t, was.Quantity, e.Quantity)
		assert.True(t, was.OccurredAt.Equal(e.OccurredAt))
		assert.True(t, was.CreatedAt.Equal(e.CreatedAt))
		assert.True(t, e.MetadataEncrypted)
	}

	var untouched models.ActivityEvent
	require.NoError(t, tc.DB.First(&untouched, "id = ?", plain.ID).Error)
	assert.False(t, untouched.MetadataEncrypted)
	assert.Equal(t, `{"plain":true}`, *untouched.Metadata)

	var skipped models.ActivityEvent
	require.NoError(t, tc.DB.First(&skipped, "id = ?", orphan.ID).Error)
	assert.Equal(t, *orphan.Metadata, *skipped.Metadata)
}

func TestService_ResealMetadata_NoKey(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := activity.NewService(tc.DB, tc.Calendar, nil, util.NopLogger())
	_, err := svc.ResealMetadata(testutil.TestContext(t), 0)
	assert.ErrorIs(t, err, crypto.ErrNoKey)
}
