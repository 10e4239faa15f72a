package filter

import (
	"regexp"
	"strings"

	"csafcms/internal/core/apperror"
)

// Selector is a query in the store's native selector grammar.
// Keys are dotted field paths or operator tokens.
type Selector map[string]any

const (
	tokenAnd       = "$and"
	tokenElemMatch = "$elemMatch"
	tokenRegex     = "$regex"
)

// Compile translates expr into a selector. Comparisons that carry an array
// context are wrapped in $elemMatch under the array's path.
func Compile(expr Expression) (Selector, error) {
	return compileExpr(expr, Field{})
}

// CompileWithin compiles expr relative to the array at arrayContext: the
// result matches documents where at least one element of that array satisfies
// the whole expression. Every field of expr must lie under arrayContext.
func CompileWithin(expr Expression, arrayContext Field) (Selector, error) {
	if arrayContext.IsZero() {
		return nil, apperror.NewInvalidExpression("", "array context must not be empty")
	}
	inner, err := compileExpr(expr, arrayContext)
	if err != nil {
		return nil, err
	}
	return Selector{arrayContext.Dotted(): Selector{tokenElemMatch: inner}}, nil
}

// compileExpr compiles expr with field paths taken relative to base, the
// array an enclosing $elemMatch already descended into (zero at top level).
func compileExpr(expr Expression, base Field) (Selector, error) {
	switch e := expr.(type) {
	case Comparison:
		return compileComparison(e, base)
	case Conjunction:
		if len(e.exprs) < 2 {
			return nil, apperror.NewInvalidExpression(string(OpAnd), "and requires at least two expressions")
		}
		parts := make([]Selector, 0, len(e.exprs))
		for _, sub := range e.exprs {
			s, err := compileExpr(sub, base)
			if err != nil {
				return nil, err
			}
			parts = append(parts, s)
		}
		return Selector{tokenAnd: parts}, nil
	case nil:
		return nil, apperror.NewInvalidExpression("", "expression must not be nil")
	default:
		return nil, apperror.NewInvalidExpression(string(expr.Operator()), "unsupported expression type")
	}
}

func compileComparison(c Comparison, base Field) (Selector, error) {
	if c.field.IsZero() {
		return nil, apperror.NewInvalidExpression(string(c.op), "field path must not be empty")
	}
	if !c.op.IsComparison() {
		return nil, apperror.NewInvalidExpression(string(c.op), "unknown comparison operator")
	}

	rest, ok := relativeTo(c.field, base)
	if !ok {
		return nil, outsideContext(c, base)
	}

	ctx, scoped := c.ArrayContext()
	if !scoped || samePath(ctx, base) {
		return predicate(c, rest), nil
	}

	// The comparison opens its own $elemMatch below base.
	ctxRest, ok := relativeTo(ctx, base)
	if !ok || len(ctxRest) == 0 {
		return nil, outsideContext(c, base)
	}
	if !c.field.HasPrefix(ctx) {
		return nil, outsideContext(c, ctx)
	}
	inner := predicate(c, c.field.TrimPrefix(ctx))
	return Selector{strings.Join(ctxRest, "."): Selector{tokenElemMatch: inner}}, nil
}

// predicate renders {"<rest>": {"<token>": value}}; with an empty rest (the
// element itself is compared) only the condition is returned.
func predicate(c Comparison, rest []string) Selector {
	var cond Selector
	if c.op == OpContainsIgnoreCase {
		cond = Selector{tokenRegex: containsPattern(c.value.(string))}
	} else {
		cond = Selector{selectorTokens[c.op]: c.value}
	}
	if len(rest) == 0 {
		return cond
	}
	return Selector{strings.Join(rest, "."): cond}
}

// containsPattern builds a case-insensitive substring regex for value.
func containsPattern(value string) string {
	return "(?i).*" + regexp.QuoteMeta(value) + ".*"
}

func relativeTo(f, base Field) ([]string, bool) {
	if base.IsZero() {
		return f.Segments(), true
	}
	if !f.HasPrefix(base) {
		return nil, false
	}
	return f.TrimPrefix(base), true
}

func samePath(a, b Field) bool {
	return !b.IsZero() && a.Len() == b.Len() && a.HasPrefix(b)
}

func outsideContext(c Comparison, ctx Field) error {
	return apperror.NewInvalidExpression(string(c.op), "array context does not prefix the field path").
		WithDetail("field", c.field.Dotted()).
		WithDetail("array_context", ctx.Dotted())
}
