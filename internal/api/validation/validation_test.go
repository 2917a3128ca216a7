package validation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestQuery_Aliases(t *testing.T) {
	r := httptest.NewRequest("GET", "/?weekStart=2024-03-04", nil)
	assert.Equal(t, "2024-03-04", Query(r, "week_start", "weekStart"))

	r = httptest.NewRequest("GET", "/?week_start=2024-02-26&weekStart=2024-03-04", nil)
	assert.Equal(t, "2024-02-26", Query(r, "week_start", "weekStart"))

	assert.Empty(t, Query(r, "missing"))
}

func TestUUIDParam(t *testing.T) {
	id := uuid.New()
	r := withURLParams(httptest.NewRequest("GET", "/", nil), "id", id.String())
	got, err := UUIDParam(r, "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	r = withURLParams(httptest.NewRequest("GET", "/", nil), "id", "nope")
	_, err = UUIDParam(r, "id")
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "id")
}

func TestDateParam(t *testing.T) {
	r := withURLParams(httptest.NewRequest("GET", "/", nil), "date", "2024-03-06")
	d, err := DateParam(r, "date")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-06", d.String())

	r = withURLParams(httptest.NewRequest("GET", "/", nil), "date", "03/06/2024")
	_, err = DateParam(r, "date")
	assert.Error(t, err)
}

func TestQueryDateAndUUID(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	d, err := QueryDate(r, "week_start")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	id, err := QueryUUID(r, "user_id")
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, id)

	r = httptest.NewRequest("GET", "/?week_start=bad&user_id=bad", nil)
	_, err = QueryDate(r, "week_start")
	assert.Error(t, err)
	_, err = QueryUUID(r, "user_id")
	assert.Error(t, err)
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    int
		wantErr bool
	}{
		{"default", "/", 12, false},
		{"value", "/?limit=5", 5, false},
		{"not a number", "/?limit=abc", 0, true},
		{"below min", "/?limit=0", 0, true},
		{"above max", "/?limit=101", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QueryInt(httptest.NewRequest("GET", tt.url, nil), "limit", 12, 1, 100)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello world", SanitizeString("hello\x00 world"))
	assert.Equal(t, "line1\nline2\ttab", SanitizeString("line1\nline2\ttab\x07"))
	assert.Nil(t, SanitizePtr(nil))
	assert.Equal(t, "ok", *SanitizePtr(func() *string { s := "o\x00k"; return &s }()))
}
