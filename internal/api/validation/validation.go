// Package validation parses path and query parameters into typed values,
// reporting problems as field validation errors.
package validation

import (
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/apperr"
	"github.com/hugh/salespulse/internal/week"
)

// Query returns the first non-empty query value among names. Several names
// let camelCase and snake_case spellings both work.
func Query(r *http.Request, names ...string) string {
	q := r.URL.Query()
	for _, n := range names {
		if v := strings.TrimSpace(q.Get(n)); v != "" {
			return v
		}
	}
	return ""
}

func UUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Invalid(name, "must be a valid UUID")
	}
	return id, nil
}

func DateParam(r *http.Request, name string) (week.Date, error) {
	d, err := week.Parse(chi.URLParam(r, name))
	if err != nil {
		return week.Date{}, apperr.Invalid(name, "must be a date in YYYY-MM-DD format")
	}
	return d, nil
}

// QueryUUID returns uuid.Nil when the parameter is absent.
func QueryUUID(r *http.Request, names ...string) (uuid.UUID, error) {
	v := Query(r, names...)
	if v == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, apperr.Invalid(names[0], "must be a valid UUID")
	}
	return id, nil
}

// QueryDate returns the zero Date when the parameter is absent.
func QueryDate(r *http.Request, names ...string) (week.Date, error) {
	v := Query(r, names...)
	if v == "" {
		return week.Date{}, nil
	}
	d, err := week.Parse(v)
	if err != nil {
		return week.Date{}, apperr.Invalid(names[0], "must be a date in YYYY-MM-DD format")
	}
	return d, nil
}

// QueryInt returns def when the parameter is absent and rejects values
// outside [min, max].
func QueryInt(r *http.Request, name string, def, min, max int) (int, error) {
	v := Query(r, name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Invalid(name, "must be an integer")
	}
	if n < min || n > max {
		return 0, apperr.Invalid(name, "must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
	}
	return n, nil
}

// SanitizeString removes null bytes and control characters other than
// newlines and tabs.
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// SanitizePtr applies SanitizeString to an optional value.
func SanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := SanitizeString(*s)
	return &v
}
