package query

import (
	"fmt"
	"strings"

	"github.com/spec-kit/user-service/internal/resource"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// WhereClause renders the conditions of s as a PostgreSQL boolean
// expression using $n placeholders numbered after the existing args. Column
// names come from meta, never from the request. s must have passed Validate.
func WhereClause[T any](s Spec, meta *resource.Metadata[T], args []any) (string, []any) {
	clauses := []string{"1=1"}
	for _, c := range s.Conditions {
		f, ok := meta.Field(c.Field)
		if !ok {
			continue
		}
		var expr string
		switch c.Op {
		case OpEq, OpNe, OpBefore, OpAfter, OpGte, OpLte:
			v, ok := operand(f.Kind, c.Value)
			if !ok {
				continue
			}
			args = append(args, v)
			expr = fmt.Sprintf("%s %s $%d", f.Column, sqlOperator(c.Op), len(args))
		case OpContains, OpNotContain:
			args = append(args, "%"+likeEscaper.Replace(c.Value)+"%")
			not := ""
			if c.Op == OpNotContain {
				not = "NOT "
			}
			expr = fmt.Sprintf("COALESCE(%s, '') %sILIKE $%d", f.Column, not, len(args))
		default:
			continue
		}
		clauses = append(clauses, expr)
	}
	return strings.Join(clauses, " AND "), args
}

func sqlOperator(op Operator) string {
	switch op {
	case OpNe:
		return "IS DISTINCT FROM"
	case OpBefore, OpLte:
		return "<="
	case OpAfter, OpGte:
		return ">="
	default:
		return "="
	}
}
