package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/auth"
	"github.com/hugh/salespulse/internal/database"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/week"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Now is the fixed clock used by tests: Wednesday 2024-03-06 15:00 UTC.
// This week starts 2024-03-04, last week 2024-02-26, prior week 2024-02-19.
var Now = time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC)

const TestPassword = "testpassword123"

// SetupTestDB creates an in-memory SQLite database for testing. The pool is
// limited to one connection so every query sees the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// Calendar returns a UTC calendar pinned to Now.
func Calendar() *week.Calendar {
	return week.NewCalendar(time.UTC).WithClock(func() time.Time { return Now })
}

// CreateTestUser creates an active user with TestPassword.
func CreateTestUser(t *testing.T, db *gorm.DB, role models.Role, firstName, lastName string) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Base: models.Base{
			ID: uuid.New(),
		},
		Email:        "test-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         role,
		IsActive:     true,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// Deactivate flips is_active off for user.
func Deactivate(t *testing.T, db *gorm.DB, user *models.User) {
	t.Helper()
	if err := db.Model(user).Update("is_active", false).Error; err != nil {
		t.Fatalf("failed to deactivate user: %v", err)
	}
	user.IsActive = false
}

func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// CreateCommitment stores targets for user in the week starting weekStart.
func CreateCommitment(t *testing.T, db *gorm.DB, userID uuid.UUID, weekStart week.Date, calls, emails, meetings int) *models.WeeklyCommitment {
	t.Helper()

	c := &models.WeeklyCommitment{
		UserID:         userID,
		WeekStartDate:  weekStart,
		CallsTarget:    calls,
		EmailsTarget:   emails,
		MeetingsTarget: meetings,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("failed to create commitment: %v", err)
	}
	return c
}

// CreateResult stores actuals for user in the week starting weekStart.
func CreateResult(t *testing.T, db *gorm.DB, userID uuid.UUID, weekStart week.Date, calls, emails, meetings int) *models.WeeklyResult {
	t.Helper()

	r := &models.WeeklyResult{
		UserID:         userID,
		WeekStartDate:  weekStart,
		CallsActual:    calls,
		EmailsActual:   emails,
		MeetingsActual: meetings,
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("failed to create result: %v", err)
	}
	return r
}

// CreateWeeklyRollup writes an activity_weekly row directly.
func CreateWeeklyRollup(t *testing.T, db *gorm.DB, userID uuid.UUID, weekStart week.Date, activityType models.ActivityType, total int64) {
	t.Helper()

	row := &models.ActivityWeekly{
		UserID:        userID,
		WeekStart:     weekStart,
		ActivityType:  activityType,
		TotalQuantity: total,
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("failed to create weekly rollup: %v", err)
	}
}

// CreateTeamUpdate creates a hub resource in category.
func CreateTeamUpdate(t *testing.T, db *gorm.DB, title, category string) *models.TeamUpdate {
	t.Helper()

	u := &models.TeamUpdate{
		Title:    title,
		Content:  "Content for " + title,
		Category: category,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("failed to create team update: %v", err)
	}
	return u
}

// AuthenticatedRequest builds a JSON request carrying token as a Bearer
// header. body may be nil, raw JSON ([]byte or json.RawMessage) or any
// value to marshal.
func AuthenticatedRequest(t *testing.T, method, path string, body any, token string) *http.Request {
	t.Helper()

	var payload []byte
	switch b := body.(type) {
	case nil:
	case []byte:
		payload = b
	case json.RawMessage:
		payload = b
	default:
		var err error
		if payload, err = json.Marshal(b); err != nil {
			t.Fatalf("marshal %T: %v", body, err)
		}
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func UnauthenticatedRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// ParseJSONResponse decodes the recorded body into v.
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response (status %d): %v\nbody: %s", rr.Code, err, rr.Body.String())
	}
}

// TestContext is cancelled when t finishes or after 30 seconds.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB          *gorm.DB
	JWTService  *auth.JWTService
	AuthService *auth.Service
	Calendar    *week.Calendar

	// User is an AE; Admin is an administrator.
	User       *models.User
	Token      string
	Admin      *models.User
	AdminToken string
}

// NewTestContext creates a complete test setup with DB, an AE, an admin
// and tokens for both.
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	user := CreateTestUser(t, db, models.RoleAE, "Avery", "Baker")
	admin := CreateTestUser(t, db, models.RoleAdmin, "Morgan", "Admin")

	return &TestSetup{
		DB:          db,
		JWTService:  jwtService,
		AuthService: auth.NewService(db, jwtService),
		Calendar:    Calendar(),
		User:        user,
		Token:       GenerateTestToken(t, jwtService, user),
		Admin:       admin,
		AdminToken:  GenerateTestToken(t, jwtService, admin),
	}
}

// TokenFor issues a token for another user in the same setup.
func (ts *TestSetup) TokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	return GenerateTestToken(t, ts.JWTService, user)
}

// Cleanup closes the in-memory database. Safe to call twice.
func (ts *TestSetup) Cleanup() {
	if ts.DB == nil {
		return
	}
	if sqlDB, err := ts.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
