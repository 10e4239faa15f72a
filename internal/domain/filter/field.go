package filter

import (
	"slices"
	"strings"

	"csafcms/internal/core/apperror"
)

// ArrayEntry is the path sentinel marking "each element of the array named by
// the preceding segments". It never appears in a compiled selector.
const ArrayEntry = "[]"

// Field is an immutable reference to a (possibly nested) document field.
type Field struct {
	segments []string
	inArray  bool
}

// NewField builds a Field from its path segments.
func NewField(segments ...string) (Field, error) {
	if len(segments) == 0 {
		return Field{}, apperror.NewInvalidExpression("", "field path must have at least one segment")
	}
	for i, s := range segments {
		if s == "" {
			return Field{}, apperror.NewInvalidExpression("", "field path segment must not be empty").
				WithDetail("position", i)
		}
		if s == ArrayEntry {
			return Field{}, apperror.NewInvalidExpression("", "array entry marker is not a field name").
				WithDetail("position", i)
		}
	}
	return Field{segments: slices.Clone(segments)}, nil
}

// MustField is NewField for package-level field declarations.
func MustField(segments ...string) Field {
	f, err := NewField(segments...)
	if err != nil {
		panic(err)
	}
	return f
}

// ArrayField builds a Field whose last segment names an array; comparisons
// anchored on it match individual array elements.
func ArrayField(segments ...string) (Field, error) {
	f, err := NewField(segments...)
	if err != nil {
		return Field{}, err
	}
	f.inArray = true
	return f, nil
}

// Segments returns a copy of the path.
func (f Field) Segments() []string {
	return slices.Clone(f.segments)
}

// Len returns the number of path segments.
func (f Field) Len() int {
	return len(f.segments)
}

// IsZero reports whether f was never constructed.
func (f Field) IsZero() bool {
	return len(f.segments) == 0
}

// IsArray reports whether f names an array whose elements are matched individually.
func (f Field) IsArray() bool {
	return f.inArray
}

// Dotted returns the dot-joined path used as selector key and projection name.
func (f Field) Dotted() string {
	return strings.Join(f.segments, ".")
}

// String implements fmt.Stringer.
func (f Field) String() string {
	if f.inArray {
		return f.Dotted() + ArrayEntry
	}
	return f.Dotted()
}

// HasPrefix reports whether p's path is a prefix of (or equal to) f's path.
func (f Field) HasPrefix(p Field) bool {
	if p.IsZero() || len(p.segments) > len(f.segments) {
		return false
	}
	return slices.Equal(f.segments[:len(p.segments)], p.segments)
}

// TrimPrefix returns the segments of f that follow p.
// The caller must have checked HasPrefix.
func (f Field) TrimPrefix(p Field) []string {
	return slices.Clone(f.segments[len(p.segments):])
}

// DottedAll renders fields for a projection list.
func DottedAll(fields []Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Dotted())
	}
	return out
}
