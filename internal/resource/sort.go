package resource

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// SortField orders records by one field.
type SortField[T any] struct {
	Name  string
	Field Field[T]
	Desc  bool
}

// SortObjects sorts items in place by fields: by the first field, ties broken
// by the next one and so on. Records comparing equal on every field keep
// their relative order.
func SortObjects[T any](items []T, fields []SortField[T]) []T {
	if len(fields) == 0 {
		return items
	}
	slices.SortStableFunc(items, func(a, b T) int {
		for _, sf := range fields {
			c := CompareValues(sf.Field.Kind, sf.Field.Value(a), sf.Field.Value(b))
			if c == 0 {
				continue
			}
			if sf.Desc {
				return -c
			}
			return c
		}
		return 0
	})
	return items
}

// CompareValues compares two accessor results of the given kind. Absent
// values sort before present ones.
func CompareValues(kind Kind, a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch kind {
	case KindTime:
		at, _ := a.(time.Time)
		bt, _ := b.(time.Time)
		return at.Compare(bt)
	case KindNumber:
		an, _ := a.(float64)
		bn, _ := b.(float64)
		return cmp.Compare(an, bn)
	default:
		as, _ := a.(string)
		bs, _ := b.(string)
		return strings.Compare(as, bs)
	}
}
