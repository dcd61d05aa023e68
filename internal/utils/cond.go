package querybuilder

import "strings"

// Condition is one clause of a WHERE; clauses are joined with AND.
type Condition struct {
	clause string
	args   []interface{}
}

func buildCondition(conditions []Condition) (string, []interface{}) {
	parts := make([]string, 0, len(conditions))
	args := make([]interface{}, 0)

	for _, cond := range conditions {
		parts = append(parts, cond.clause)
		args = append(args, cond.args...)
	}

	return strings.Join(parts, " AND "), args
}
