package store

import (
	"fmt"
	"strings"
)

// condition is one parsed "field OP :param" clause.
type condition struct {
	Field string
	Op    string
	Param string
}

// comparison operators accepted by the mini-language, longest first so
// ">=" is matched before ">".
var operators = []string{"!=", "<=", ">=", "=", "<", ">"}

// parseQuery parses a predicate string into its conjunctive clauses.
// The grammar is deliberately tiny: clauses of the form
// "field OP :param" joined by AND. An empty string matches everything.
func parseQuery(query string) ([]condition, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	clauses := splitAnd(query)
	conds := make([]condition, 0, len(clauses))
	for _, clause := range clauses {
		cond, err := parseClause(clause)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

// splitAnd splits on the AND keyword, case-insensitively.
func splitAnd(query string) []string {
	fields := strings.Fields(query)
	var clauses []string
	var current []string
	for _, f := range fields {
		if strings.EqualFold(f, "and") {
			clauses = append(clauses, strings.Join(current, " "))
			current = nil
			continue
		}
		current = append(current, f)
	}
	clauses = append(clauses, strings.Join(current, " "))
	return clauses
}

func parseClause(clause string) (condition, error) {
	clause = strings.TrimSpace(clause)
	for _, op := range operators {
		idx := strings.Index(clause, op)
		if idx <= 0 {
			continue
		}
		field := strings.TrimSpace(clause[:idx])
		rhs := strings.TrimSpace(clause[idx+len(op):])
		if field == "" || !strings.HasPrefix(rhs, ":") || len(rhs) < 2 {
			break
		}
		if !isIdentifier(field) || !isIdentifier(rhs[1:]) {
			break
		}
		return condition{Field: field, Op: op, Param: rhs[1:]}, nil
	}
	return condition{}, fmt.Errorf("%w: %q", ErrBadQuery, clause)
}

// isIdentifier reports whether s is a safe field or parameter name:
// letters, digits, underscores, and dots for nested fields. Field names
// end up inside backend filter expressions, so anything else is refused.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}

// bindParams resolves each condition's placeholder against params,
// returning values in clause order.
func bindParams(conds []condition, params map[string]any) ([]any, error) {
	values := make([]any, 0, len(conds))
	for _, cond := range conds {
		v, ok := params[cond.Param]
		if !ok {
			return nil, fmt.Errorf("%w: missing parameter :%s", ErrBadQuery, cond.Param)
		}
		values = append(values, v)
	}
	return values, nil
}
