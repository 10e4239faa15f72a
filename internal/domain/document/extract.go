package document

import (
	"encoding/json"
	"strings"

	"csafcms/internal/core/apperror"
	"csafcms/internal/domain/filter"
)

// Scalar lists the value types Extract can return.
type Scalar interface {
	string | float64 | bool | map[string]any
}

// Extract walks field through doc and returns the value at its end.
//
// A missing or null value anywhere on the path yields ok == false and no
// error, so sparse documents read as "absent". Descending through a value
// that is not an object, or finding a leaf of a type other than T, fails with
// TYPE_MISMATCH.
func Extract[T Scalar](field filter.Field, doc map[string]any) (value T, ok bool, err error) {
	segments := field.Segments()
	if len(segments) == 0 {
		return value, false, apperror.NewInvalidRequest("field path must not be empty")
	}

	obj := doc
	for i, seg := range segments[:len(segments)-1] {
		next := obj[seg]
		if next == nil {
			return value, false, nil
		}
		child, isObj := asObject(next)
		if !isObj {
			return value, false, apperror.NewTypeMismatch(strings.Join(segments[:i+1], "."), "object", next)
		}
		obj = child
	}

	raw := obj[segments[len(segments)-1]]
	if raw == nil {
		return value, false, nil
	}
	if v, isT := raw.(T); isT {
		return v, true, nil
	}
	if v, converted := convert[T](raw); converted {
		return v, true, nil
	}
	return value, false, apperror.NewTypeMismatch(field.Dotted(), typeLabel[T](), raw)
}

// ExtractString extracts a string field; absent values yield "".
func ExtractString(field filter.Field, doc map[string]any) (string, error) {
	s, _, err := Extract[string](field, doc)
	return s, err
}

func asObject(v any) (map[string]any, bool) {
	switch o := v.(type) {
	case map[string]any:
		return o, true
	case Document:
		return o, true
	}
	return nil, false
}

// convert covers representations a decoder may produce for the same JSON
// value: json.Number for numbers and Document for objects.
func convert[T Scalar](raw any) (T, bool) {
	var zero T
	switch r := raw.(type) {
	case json.Number:
		if _, wantNumber := any(zero).(float64); wantNumber {
			if f, err := r.Float64(); err == nil {
				return any(f).(T), true
			}
		}
	case Document:
		if _, wantObject := any(zero).(map[string]any); wantObject {
			return any(map[string]any(r)).(T), true
		}
	}
	return zero, false
}

func typeLabel[T Scalar]() string {
	var zero T
	switch any(zero).(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return "object"
	}
}
