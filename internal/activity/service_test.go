package activity_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/access"
	"github.com/hugh/salespulse/internal/activity"
	"github.com/hugh/salespulse/internal/apperr"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/testutil"
	"github.com/hugh/salespulse/internal/week"
	"github.com/hugh/salespulse/pkg/crypto"
	"github.com/hugh/salespulse/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func intPtr(v int) *int { return &v }

func newService(t *testing.T, tc *testutil.TestSetup) *activity.Service {
	t.Helper()
	return activity.NewService(tc.DB, tc.Calendar, nil, util.NopLogger())
}

func weeklyTotal(t *testing.T, db *gorm.DB, userID uuid.UUID, weekStart week.Date, typ models.ActivityType) int64 {
	t.Helper()
	var row models.ActivityWeekly
	err := db.Where("user_id = ? AND week_start = ? AND activity_type = ?", userID, weekStart, typ).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0
	}
	require.NoError(t, err)
	return row.TotalQuantity
}

func dailyTotal(t *testing.T, db *gorm.DB, userID uuid.UUID, date week.Date, typ models.ActivityType) models.ActivityDaily {
	t.Helper()
	var row models.ActivityDaily
	err := db.Where("user_id = ? AND activity_date = ? AND activity_type = ?", userID, date, typ).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ActivityDaily{}
	}
	require.NoError(t, err)
	return row
}

func eventSum(t *testing.T, db *gorm.DB, userID uuid.UUID, typ models.ActivityType) int64 {
	t.Helper()
	var sum int64
	require.NoError(t, db.Model(&models.ActivityEvent{}).
		Where("user_id = ? AND activity_type = ?", userID, typ).
		Select("COALESCE(SUM(quantity), 0)").Scan(&sum).Error)
	return sum
}

func TestService_Log(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	svc := newService(t, tc)

	t.Run("defaults quantity to one and stamps now", func(t *testing.T) {
		ev, err := svc.Log(ctx, tc.User.ID, activity.LogInput{Type: models.ActivityEmail})
		require.NoError(t, err)
		assert.Equal(t, 1, ev.Quantity)
		assert.True(t, ev.OccurredAt.Equal(testutil.Now))
		assert.Equal(t, int64(1), weeklyTotal(t, tc.DB, tc.User.ID, tc.Calendar.ThisWeek(), models.ActivityEmail))
	})

	t.Run("adds to existing rollups", func(t *testing.T) {
		_, err := svc.Log(ctx, tc.User.ID, activity.LogInput{Type: models.ActivityCall, Quantity: intPtr(3), DurationSeconds: intPtr(120)})
		require.NoError(t, err)
		_, err = svc.Log(ctx, tc.User.ID, activity.LogInput{Type: models.ActivityCall, Quantity: intPtr(2), DurationSeconds: intPtr(60)})
		require.NoError(t, err)

		day := dailyTotal(t, tc.DB, tc.User.ID, tc.Calendar.Today(), models.ActivityCall)
		assert.Equal(t, int64(5), day.TotalQuantity)
		assert.Equal(t, int64(180), day.TotalDurationSeconds)
		assert.Equal(t, int64(5), weeklyTotal(t, tc.DB, tc.User.ID, tc.Calendar.ThisWeek(), models.ActivityCall))
	})

	t.Run("backdated event lands in its own week", func(t *testing.T) {
		at := time.Date(2024, 2, 27, 10, 0, 0, 0, time.UTC)
		_, err := svc.Log(ctx, tc.User.ID, activity.LogInput{Type: models.ActivityMeeting, OccurredAt: &at})
		require.NoError(t, err)

		assert.Equal(t, int64(1), weeklyTotal(t, tc.DB, tc.User.ID, week.NewDate(2024, 2, 26), models.ActivityMeeting))
		assert.Equal(t, int64(0), weeklyTotal(t, tc.DB, tc.User.ID, tc.Calendar.ThisWeek(), models.ActivityMeeting))
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		cases := []struct {
			name  string
			input activity.LogInput
			field string
		}{
			{"unknown type", activity.LogInput{Type: "fax"}, "activity_type"},
			{"zero quantity", activity.LogInput{Type: models.ActivityCall, Quantity: intPtr(0)}, "quantity"},
			{"quantity too large", activity.LogInput{Type: models.ActivityCall, Quantity: intPtr(1001)}, "quantity"},
			{"negative duration", activity.LogInput{Type: models.ActivityCall, DurationSeconds: intPtr(-1)}, "duration_seconds"},
			{"metadata array", activity.LogInput{Type: models.ActivityCall, Metadata: json.RawMessage(`[1,2]`)}, "metadata"},
		}
		for _, c := range cases {
			t.Run(c.name, func(t *testing.T) {
				_, err := svc.Log(ctx, tc.User.ID, c.input)
				var verr *apperr.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields, c.field)
			})
		}
	})
}

func TestService_Reverse(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	svc := newService(t, tc)
	owner := access.Actor{ID: tc.User.ID, Role: tc.User.Role}

	_, err := svc.Log(ctx, tc.User.ID, activity.LogInput{Type: models.ActivityCall, Quantity: intPtr(4)})
	require.NoError(t, err)
	ev, err := svc.Log(ctx, tc.User.ID, activity.LogInput{Type: models.ActivityCall, Quantity: intPtr(3), DurationSeconds: intPtr(90)})
	require.NoError(t, err)

	t.Run("other AE is forbidden", func(t *testing.T) {
		other := testutil.CreateTestUser(t, tc.DB, models.RoleAE, "Other", "Person")
		_, err := svc.Reverse(ctx, access.Actor{ID: other.ID, Role: other.Role}, ev.ID)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("unknown event", func(t *testing.T) {
		_, err := svc.Reverse(ctx, owner, uuid.New())
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	var reversal *models.ActivityEvent
	t.Run("owner reverses", func(t *testing.T) {
		reversal, err = svc.Reverse(ctx, owner, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, -3, reversal.Quantity)
		require.NotNil(t, reversal.ReversesEventID)
		assert.Equal(t, ev.ID, *reversal.ReversesEventID)

		day := dailyTotal(t, tc.DB, tc.User.ID, tc.Calendar.Today(), models.ActivityCall)
		assert.Equal(t, int64(4), day.TotalQuantity)
		assert.Equal(t, int64(0), day.TotalDurationSeconds)
		assert.Equal(t, eventSum(t, tc.DB, tc.User.ID, models.ActivityCall),
			weeklyTotal(t, tc.DB, tc.User.ID, tc.Calendar.ThisWeek(), models.ActivityCall))
	})

	t.Run("second reversal conflicts", func(t *testing.T) {
		_, err := svc.Reverse(ctx, owner, ev.ID)
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("reversal cannot be reversed", func(t *testing.T) {
		require.NotNil(t, reversal)
		_, err := svc.Reverse(ctx, owner, reversal.ID)
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("admin may reverse anyone's event", func(t *testing.T) {
		other, err := svc.Log(ctx, tc.User.ID, activity.LogInput{Type: models.ActivityEmail})
		require.NoError(t, err)
		_, err = svc.Reverse(ctx, access.Actor{ID: tc.Admin.ID, Role: tc.Admin.Role}, other.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), weeklyTotal(t, tc.DB, tc.User.ID, tc.Calendar.ThisWeek(), models.ActivityEmail))
	})
}

func TestService_ListEvents_Metadata(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	enc, err := crypto.NewEncryptor(key)
	require.NoError(t, err)
	svc := activity.NewService(tc.DB, tc.Calendar, enc, util.NopLogger())

	ev, err := svc.Log(ctx, tc.User.ID, activity.LogInput{
		Type:     models.ActivityCall,
		Metadata: json.RawMessage(`{"account":"Acme"}`),
	})
	require.NoError(t, err)

	var stored models.ActivityEvent
	require.NoError(t, tc.DB.First(&stored, "id = ?", ev.ID).Error)
	assert.True(t, stored.MetadataEncrypted)
	require.NotNil(t, stored.Metadata)
	assert.NotContains(t, *stored.Metadata, "Acme")

	_, err = svc.Reverse(ctx, access.Actor{ID: tc.User.ID, Role: tc.User.Role}, ev.ID)
	require.NoError(t, err)

	events, err := svc.ListEvents(ctx, tc.User.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	var original activity.EventView
	for _, e := range events {
		if e.ID == ev.ID {
			original = e
		}
	}
	assert.True(t, original.Reversed)
	assert.JSONEq(t, `{"account":"Acme"}`, string(original.Metadata))
}

func TestService_Summary(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	svc := newService(t, tc)

	last := tc.Calendar.LastWeek().In(time.UTC).Add(10 * time.Hour)
	prior := tc.Calendar.PriorWeek().In(time.UTC).Add(10 * time.Hour)

	_, err := svc.Log(ctx, tc.User.ID, activity.LogInput{Type: models.ActivityCall, Quantity: intPtr(12), OccurredAt: &last})
	require.NoError(t, err)
	_, err = svc.Log(ctx, tc.User.ID, activity.LogInput{Type: models.ActivityCall, Quantity: intPtr(10), OccurredAt: &prior})
	require.NoError(t, err)
	_, err = svc.Log(ctx, tc.User.ID, activity.LogInput{Type: models.ActivityEmail, Quantity: intPtr(5), OccurredAt: &last})
	require.NoError(t, err)
	_, err = svc.Log(ctx, tc.User.ID, activity.LogInput{Type: models.ActivityCall, Quantity: intPtr(2), DurationSeconds: intPtr(30)})
	require.NoError(t, err)

	sum, err := svc.Summary(ctx, tc.User.ID)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-06", sum.Date.String())
	assert.Equal(t, "2024-03-04", sum.WeekStart.String())
	assert.Equal(t, map[models.ActivityType]int64{models.ActivityCall: 2}, sum.Today)
	assert.Equal(t, map[models.ActivityType]int64{models.ActivityCall: 30}, sum.TodayDuration)
	assert.Equal(t, int64(2), sum.Week[models.ActivityCall])

	calls := sum.WoW[models.ActivityCall]
	assert.Equal(t, int64(12), calls.Last)
	assert.Equal(t, int64(10), calls.Prior)
	assert.Equal(t, int64(2), calls.Delta)
	require.NotNil(t, calls.Pct)
	assert.Equal(t, 20.0, *calls.Pct)

	emails := sum.WoW[models.ActivityEmail]
	assert.Equal(t, int64(5), emails.Last)
	assert.Nil(t, emails.Pct)
}

func TestService_AdminOverview(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	svc := newService(t, tc)

	second := testutil.CreateTestUser(t, tc.DB, models.RoleAE, "Casey", "Adams")
	gone := testutil.CreateTestUser(t, tc.DB, models.RoleAE, "Gone", "Zed")
	testutil.Deactivate(t, tc.DB, gone)

	testutil.CreateWeeklyRollup(t, tc.DB, tc.User.ID, tc.Calendar.LastWeek(), models.ActivityCall, 15)
	testutil.CreateWeeklyRollup(t, tc.DB, tc.User.ID, tc.Calendar.PriorWeek(), models.ActivityCall, 10)
	testutil.CreateWeeklyRollup(t, tc.DB, tc.User.ID, tc.Calendar.LastWeek(), models.ActivityEmail, 8)
	testutil.CreateWeeklyRollup(t, tc.DB, tc.User.ID, tc.Calendar.PriorWeek(), models.ActivityEmail, 10)
	testutil.CreateWeeklyRollup(t, tc.DB, tc.User.ID, tc.Calendar.ThisWeek(), models.ActivityMeeting, 2)

	rows, err := svc.AdminOverview(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// ordered by last name
	assert.Equal(t, second.ID, rows[0].UserID)
	assert.Empty(t, rows[0].Activities)
	assert.Nil(t, rows[0].WowAvg)

	row := rows[1]
	assert.Equal(t, "Avery Baker", row.FullName)
	require.NotNil(t, row.Activities[models.ActivityCall].WowPct)
	assert.Equal(t, 50.0, *row.Activities[models.ActivityCall].WowPct)
	assert.Equal(t, -20.0, *row.Activities[models.ActivityEmail].WowPct)
	assert.Equal(t, int64(2), row.Activities[models.ActivityMeeting].ThisWeek)
	assert.Nil(t, row.Activities[models.ActivityMeeting].WowPct)
	require.NotNil(t, row.WowAvg)
	assert.Equal(t, 15.0, *row.WowAvg)
}

func TestService_AdminDailyAndWeekly(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	svc := newService(t, tc)

	_, err := svc.Log(ctx, tc.User.ID, activity.LogInput{Type: models.ActivityCall, Quantity: intPtr(6)})
	require.NoError(t, err)

	daily, err := svc.AdminDaily(ctx, tc.Calendar.Today())
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, int64(6), daily[0].Activities[models.ActivityCall].Quantity)

	weekly, err := svc.AdminWeekly(ctx, tc.Calendar.Today())
	require.NoError(t, err)
	require.Len(t, weekly, 1)
	assert.Equal(t, int64(6), weekly[0].Activities[models.ActivityCall])

	empty, err := svc.AdminDaily(ctx, tc.Calendar.Today().AddDays(-1))
	require.NoError(t, err)
	require.Len(t, empty, 1)
	assert.Empty(t, empty[0].Activities)
}

func TestService_RebuildAndAudit(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	svc := newService(t, tc)

	last := tc.Calendar.LastWeek().In(time.UTC).Add(9 * time.Hour)
	_, err := svc.Log(ctx, tc.User.ID, activity.LogInput{Type: models.ActivityCall, Quantity: intPtr(7), OccurredAt: &last})
	require.NoError(t, err)
	_, err = svc.Log(ctx, tc.User.ID, activity.LogInput{Type: models.ActivityCall, Quantity: intPtr(4)})
	require.NoError(t, err)

	mismatches, err := svc.Audit(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	// Drift the stored totals away from the events.
	require.NoError(t, tc.DB.Model(&models.ActivityWeekly{}).
		Where("user_id = ? AND week_start = ?", tc.User.ID, tc.Calendar.ThisWeek()).
		Update("total_quantity", 99).Error)
	testutil.CreateWeeklyRollup(t, tc.DB, tc.User.ID, tc.Calendar.LastWeek(), models.ActivityEmail, 3)

	mismatches, err = svc.Audit(ctx, 4)
	require.NoError(t, err)
	require.Len(t, mismatches, 2)
	assert.Equal(t, int64(4), mismatches[1].Expected)
	assert.Equal(t, int64(99), mismatches[1].Actual)
	assert.Equal(t, models.ActivityEmail, mismatches[0].ActivityType)
	assert.Equal(t, int64(0), mismatches[0].Expected)

	stats, err := svc.Rebuild(ctx, tc.User.ID, tc.Calendar.LastWeek(), tc.Calendar.Today())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Events)
	assert.Equal(t, 2, stats.WeeklyRows)
	assert.Equal(t, "2024-02-26", stats.From.String())
	assert.Equal(t, "2024-03-10", stats.To.String())

	assert.Equal(t, int64(4), weeklyTotal(t, tc.DB, tc.User.ID, tc.Calendar.ThisWeek(), models.ActivityCall))
	assert.Equal(t, int64(7), weeklyTotal(t, tc.DB, tc.User.ID, tc.Calendar.LastWeek(), models.ActivityCall))
	assert.Equal(t, int64(0), weeklyTotal(t, tc.DB, tc.User.ID, tc.Calendar.LastWeek(), models.ActivityEmail))

	mismatches, err = svc.Audit(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestService_RebuildInterleavedWithLogs(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)
	svc := newService(t, tc)

	for i := 1; i <= 3; i++ {
		_, err := svc.Log(ctx, tc.User.ID, activity.LogInput{Type: models.ActivityEmail, Quantity: intPtr(i)})
		require.NoError(t, err)

		stats, err := svc.Rebuild(ctx, tc.User.ID, tc.Calendar.ThisWeek(), tc.Calendar.ThisWeek())
		require.NoError(t, err)
		assert.Equal(t, i, stats.Events)
	}
	_, err := svc.Log(ctx, tc.User.ID, activity.LogInput{Type: models.ActivityEmail, Quantity: intPtr(4)})
	require.NoError(t, err)

	assert.Equal(t, int64(10), weeklyTotal(t, tc.DB, tc.User.ID, tc.Calendar.ThisWeek(), models.ActivityEmail))
	assert.Equal(t, int64(10), dailyTotal(t, tc.DB, tc.User.ID, tc.Calendar.Today(), models.ActivityEmail).TotalQuantity)

	mismatches, err := svc.Audit(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}
