package filter

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"csafcms/internal/core/apperror"
)

// Expression is a filter over documents. The set of implementations is closed:
// Comparison and Conjunction.
type Expression interface {
	Operator() Operator
	isExpression()
}

// Comparison compares the value at a field with a literal.
type Comparison struct {
	op           Operator
	field        Field
	value        any
	arrayContext Field
}

func (Comparison) isExpression() {}

// Operator returns the comparison operator.
func (c Comparison) Operator() Operator { return c.op }

// Field returns the compared field.
func (c Comparison) Field() Field { return c.field }

// Value returns the literal.
func (c Comparison) Value() any { return c.value }

// ArrayContext returns the array field the comparison is scoped to, if any.
func (c Comparison) ArrayContext() (Field, bool) {
	return c.arrayContext, !c.arrayContext.IsZero()
}

// WithArrayContext returns a copy matching "at least one element of the array
// at ctx satisfies the comparison". ctx must prefix the compared field; this
// is checked when the expression is compiled.
func (c Comparison) WithArrayContext(ctx Field) Comparison {
	ctx.inArray = true
	c.arrayContext = ctx
	return c
}

// Conjunction holds two or more expressions that must all match.
type Conjunction struct {
	exprs []Expression
}

func (Conjunction) isExpression() {}

// Operator returns OpAnd.
func (Conjunction) Operator() Operator { return OpAnd }

// Expressions returns the operands in construction order.
func (a Conjunction) Expressions() []Expression {
	return slices.Clone(a.exprs)
}

// And combines at least two expressions.
func And(exprs ...Expression) (Conjunction, error) {
	if len(exprs) < 2 {
		return Conjunction{}, apperror.NewInvalidExpression(string(OpAnd), "and requires at least two expressions").
			WithDetail("count", len(exprs))
	}
	for i, e := range exprs {
		if e == nil {
			return Conjunction{}, apperror.NewInvalidExpression(string(OpAnd), "and operand must not be nil").
				WithDetail("position", i)
		}
	}
	return Conjunction{exprs: slices.Clone(exprs)}, nil
}

// NewComparison builds a comparison of the field at path with value.
//
// A path containing ArrayEntry, e.g. ("listValues", ArrayEntry, "value"), is
// scoped to the array named by the segments before the marker: it matches when
// any element's "value" satisfies the comparison.
func NewComparison(op Operator, value any, path ...string) (Comparison, error) {
	if !op.IsComparison() {
		return Comparison{}, apperror.NewInvalidExpression(string(op), "unknown comparison operator")
	}
	if err := checkLiteral(op, value); err != nil {
		return Comparison{}, err
	}

	segments, arrayPath, err := splitArrayEntry(op, path)
	if err != nil {
		return Comparison{}, err
	}

	field, err := NewField(segments...)
	if err != nil {
		return Comparison{}, withOperator(err, op)
	}

	c := Comparison{op: op, field: field, value: value}
	if arrayPath != nil {
		ctx, err := ArrayField(arrayPath...)
		if err != nil {
			return Comparison{}, withOperator(err, op)
		}
		c.arrayContext = ctx
	}
	return c, nil
}

// Equal matches documents whose field equals value byte for byte.
func Equal(value any, path ...string) (Comparison, error) {
	return NewComparison(OpEqual, value, path...)
}

// NotEqual matches documents whose field differs from value.
func NotEqual(value any, path ...string) (Comparison, error) {
	return NewComparison(OpNotEqual, value, path...)
}

// Greater matches documents whose field is greater than value.
func Greater(value any, path ...string) (Comparison, error) {
	return NewComparison(OpGreater, value, path...)
}

// GreaterOrEqual matches documents whose field is greater than or equal to value.
func GreaterOrEqual(value any, path ...string) (Comparison, error) {
	return NewComparison(OpGreaterOrEqual, value, path...)
}

// Less matches documents whose field is less than value.
func Less(value any, path ...string) (Comparison, error) {
	return NewComparison(OpLess, value, path...)
}

// LessOrEqual matches documents whose field is less than or equal to value.
func LessOrEqual(value any, path ...string) (Comparison, error) {
	return NewComparison(OpLessOrEqual, value, path...)
}

// ContainsIgnoreCase matches documents whose string field contains value, ignoring case.
func ContainsIgnoreCase(value string, path ...string) (Comparison, error) {
	return NewComparison(OpContainsIgnoreCase, value, path...)
}

// Must panics if err is non-nil. Intended for static filters and tests.
func Must[E Expression](e E, err error) E {
	if err != nil {
		panic(err)
	}
	return e
}

// splitArrayEntry removes the ArrayEntry marker and returns the array path
// preceding it (nil when the path has no marker).
func splitArrayEntry(op Operator, path []string) ([]string, []string, error) {
	idx := slices.Index(path, ArrayEntry)
	if idx < 0 {
		return path, nil, nil
	}
	if idx == 0 {
		return nil, nil, apperror.NewInvalidExpression(string(op), "array entry marker must follow an array field name")
	}
	if slices.Index(path[idx+1:], ArrayEntry) >= 0 {
		return nil, nil, apperror.NewInvalidExpression(string(op), "only one array entry marker is supported per path")
	}
	segments := slices.Concat(path[:idx], path[idx+1:])
	return segments, path[:idx], nil
}

type literalKind int

const (
	literalInvalid literalKind = iota
	literalString
	literalNumber
	literalBool
)

func classifyLiteral(v any) literalKind {
	switch v.(type) {
	case string:
		return literalString
	case bool:
		return literalBool
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return literalNumber
	}
	return literalInvalid
}

func checkLiteral(op Operator, v any) error {
	kind := classifyLiteral(v)
	switch {
	case kind == literalInvalid:
		return apperror.NewInvalidExpression(string(op), "literal must be a string, number or boolean").
			WithDetail("type", typeName(v))
	case kind == literalNumber && !isFinite(v):
		return apperror.NewInvalidExpression(string(op), "number literal must be finite").
			WithDetail("value", fmt.Sprint(v))
	case op == OpContainsIgnoreCase && kind != literalString:
		return apperror.NewInvalidExpression(string(op), "contains requires a string literal").
			WithDetail("type", typeName(v))
	case op.IsOrdering() && kind == literalBool:
		return apperror.NewInvalidExpression(string(op), "ordering requires a string or number literal").
			WithDetail("type", typeName(v))
	}
	return nil
}

// isFinite reports false for NaN and infinities, which JSON cannot encode.
func isFinite(v any) bool {
	switch n := v.(type) {
	case float32:
		return !math.IsNaN(float64(n)) && !math.IsInf(float64(n), 0)
	case float64:
		return !math.IsNaN(n) && !math.IsInf(n, 0)
	}
	return true
}

func typeName(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T", v)
}

func withOperator(err error, op Operator) error {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.WithDetail("operator", string(op))
	}
	return err
}
