// Package query turns flat request query parameters into filter and order
// directives, and evaluates them either in-process or as SQL.
//
// Supported parameter forms:
//
//	field=val             field equals val
//	field_ne=val          field is not equal to val
//	field_before=val      field (a date) is before or equal to val
//	field_after=val       field (a date) is after or equal to val
//	field_contains=val    field contains val, case-insensitive
//	field_notcontain=val  field does not contain val, case-insensitive
//	field_gte=val         field (a number) is greater than or equal to val
//	field_lte=val         field (a number) is less than or equal to val
//	sortby_asc=field      order ascending by field
//	sortby_dsc=field      order descending by field
//
// Keys with any other suffix are ignored.
package query

import (
	"sort"
	"strings"
)

// Operator is a comparison applied by a Condition.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpBefore     Operator = "before"
	OpAfter      Operator = "after"
	OpContains   Operator = "contains"
	OpNotContain Operator = "notcontain"
	OpGte        Operator = "gte"
	OpLte        Operator = "lte"
)

const sortKey = "sortby"

var suffixes = map[string]Operator{
	"ne":         OpNe,
	"before":     OpBefore,
	"after":      OpAfter,
	"contains":   OpContains,
	"notcontain": OpNotContain,
	"gte":        OpGte,
	"lte":        OpLte,
}

// Condition filters on one field.
type Condition struct {
	Param string
	Field string
	Op    Operator
	Value string
}

// Order is one sort directive.
type Order struct {
	Param string
	Field string
	Desc  bool
}

// Spec is the parsed form of a query string.
type Spec struct {
	Conditions []Condition
	Order      []Order
}

// Eq builds a Spec of exact-equality conditions.
func Eq(fields map[string]string) Spec {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var spec Spec
	for _, k := range keys {
		spec.Conditions = append(spec.Conditions, Condition{Param: k, Field: k, Op: OpEq, Value: fields[k]})
	}
	return spec
}

// Parse translates query parameters. Keys are processed in lexical order so
// the result is deterministic; a sortby value may list several fields
// separated by commas.
func Parse(params map[string]string) Spec {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var spec Spec
	for _, key := range keys {
		value := params[key]
		idx := strings.LastIndex(key, "_")
		if idx < 0 {
			spec.Conditions = append(spec.Conditions, Condition{Param: key, Field: key, Op: OpEq, Value: value})
			continue
		}
		field, suffix := key[:idx], key[idx+1:]
		if field == "" {
			continue
		}
		if field == sortKey && (suffix == "asc" || suffix == "dsc") {
			for _, name := range strings.Split(value, ",") {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				spec.Order = append(spec.Order, Order{Param: key, Field: name, Desc: suffix == "dsc"})
			}
			continue
		}
		op, ok := suffixes[suffix]
		if !ok {
			continue
		}
		spec.Conditions = append(spec.Conditions, Condition{Param: key, Field: field, Op: op, Value: value})
	}
	return spec
}
