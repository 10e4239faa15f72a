// Package filter builds typed boolean expressions over document fields and
// compiles them into the document store's native query selector.
package filter

// Operator определяет вид сравнения или логическую связку.
type Operator string

const (
	OpEqual              Operator = "eq"       // Равно
	OpNotEqual           Operator = "neq"      // Не равно
	OpGreater            Operator = "gt"       // Больше
	OpGreaterOrEqual     Operator = "gte"      // Больше или равно
	OpLess               Operator = "lt"       // Меньше
	OpLessOrEqual        Operator = "lte"      // Меньше или равно
	OpContainsIgnoreCase Operator = "contains" // Содержит (без учета регистра)

	OpAnd Operator = "and" // Логическое И
)

// selectorTokens maps comparison operators to selector operator tokens.
// OpContainsIgnoreCase is rendered as a $regex and is handled separately.
var selectorTokens = map[Operator]string{
	OpEqual:          "$eq",
	OpNotEqual:       "$ne",
	OpGreater:        "$gt",
	OpGreaterOrEqual: "$gte",
	OpLess:           "$lt",
	OpLessOrEqual:    "$lte",
}

// IsComparison reports whether op compares a field with a literal.
func (op Operator) IsComparison() bool {
	_, ok := selectorTokens[op]
	return ok || op == OpContainsIgnoreCase
}

// IsOrdering reports whether op requires an orderable literal.
func (op Operator) IsOrdering() bool {
	switch op {
	case OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual:
		return true
	}
	return false
}
