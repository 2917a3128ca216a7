// Package patch turns request structs of optional fields into gorm update
// maps. Only pointer fields tagged `patch:"column"` participate, and only
// when non-nil, so an explicit false or zero is still written.
package patch

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrEmpty         = errors.New("no updates provided")
	ErrUnknownColumn = errors.New("column not allowed")
)

// Set is a column to value map suitable for gorm's Updates.
type Set map[string]interface{}

func (s Set) Has(column string) bool {
	_, ok := s[column]
	return ok
}

// Columns returns the columns in s. Order is unspecified.
func (s Set) Columns() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

// Build collects the non-nil tagged fields of v into a Set. Every tagged
// column must appear in allowed.
func Build(v interface{}, allowed ...string) (Set, error) {
	allow := make(map[string]bool, len(allowed))
	for _, c := range allowed {
		allow[c] = true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, ErrEmpty
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("patch: expected struct, got %s", rv.Kind())
	}

	set := Set{}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		column := field.Tag.Get("patch")
		if column == "" || column == "-" {
			continue
		}
		if !allow[column] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
		}
		if field.Type.Kind() != reflect.Pointer {
			return nil, fmt.Errorf("patch: field %s must be a pointer", field.Name)
		}
		fv := rv.Field(i)
		if fv.IsNil() {
			continue
		}
		set[column] = fv.Elem().Interface()
	}

	if len(set) == 0 {
		return nil, ErrEmpty
	}
	return set, nil
}

// Restrict validates a Set built elsewhere against allowed.
func Restrict(set Set, allowed ...string) error {
	allow := make(map[string]bool, len(allowed))
	for _, c := range allowed {
		allow[c] = true
	}
	if len(set) == 0 {
		return ErrEmpty
	}
	for column := range set {
		if !allow[column] {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, column)
		}
	}
	return nil
}
