package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/user-service/internal/resource"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// Validate checks every condition and order of s against the fields declared
// by meta. Unknown fields, operators that do not fit the field kind and
// operands that cannot be parsed are reported as validation errors.
func Validate[T any](s Spec, meta *resource.Metadata[T]) error {
	for _, c := range s.Conditions {
		f, ok := meta.Field(c.Field)
		if !ok || !operandValid(f.Kind, c) {
			return invalidParam(c.Param)
		}
	}
	for _, o := range s.Order {
		if _, ok := meta.Field(o.Field); !ok {
			return invalidParam(o.Param)
		}
	}
	return nil
}

func invalidParam(param string) error {
	return apperrors.NewValidationError(resource.InvalidQueryParamMessage(param), map[string]any{"param": param})
}

func operandValid(kind resource.Kind, c Condition) bool {
	switch c.Op {
	case OpEq, OpNe:
		_, ok := operand(kind, c.Value)
		return ok
	case OpBefore, OpAfter:
		if kind != resource.KindTime {
			return false
		}
		_, ok := parseTime(c.Value)
		return ok
	case OpGte, OpLte:
		if kind != resource.KindNumber {
			return false
		}
		_, err := strconv.ParseFloat(c.Value, 64)
		return err == nil
	case OpContains, OpNotContain:
		return kind == resource.KindString
	default:
		return false
	}
}

// operand converts a raw parameter value to the representation used by
// field accessors of kind.
func operand(kind resource.Kind, raw string) (any, bool) {
	switch kind {
	case resource.KindTime:
		t, ok := parseTime(raw)
		return t, ok
	case resource.KindNumber:
		n, err := strconv.ParseFloat(raw, 64)
		return n, err == nil
	default:
		return raw, true
	}
}

func parseTime(raw string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Match reports whether item satisfies every condition of s. s must have
// passed Validate for the same metadata; conditions on undeclared fields
// never match.
func Match[T any](s Spec, meta *resource.Metadata[T], item T) bool {
	for _, c := range s.Conditions {
		f, ok := meta.Field(c.Field)
		if !ok || !matchCondition(f, c, item) {
			return false
		}
	}
	return true
}

func matchCondition[T any](f resource.Field[T], c Condition, item T) bool {
	v := f.Value(item)
	switch c.Op {
	case OpEq:
		return equal(f.Kind, v, c.Value)
	case OpNe:
		return !equal(f.Kind, v, c.Value)
	case OpContains:
		return containsFold(v, c.Value)
	case OpNotContain:
		return !containsFold(v, c.Value)
	case OpBefore, OpLte:
		rhs, ok := operand(f.Kind, c.Value)
		return ok && v != nil && resource.CompareValues(f.Kind, v, rhs) <= 0
	case OpAfter, OpGte:
		rhs, ok := operand(f.Kind, c.Value)
		return ok && v != nil && resource.CompareValues(f.Kind, v, rhs) >= 0
	default:
		return false
	}
}

func equal(kind resource.Kind, v any, raw string) bool {
	if v == nil {
		return false
	}
	rhs, ok := operand(kind, raw)
	return ok && resource.CompareValues(kind, v, rhs) == 0
}

// containsFold treats an absent value as the empty string.
func containsFold(v any, sub string) bool {
	s, _ := v.(string)
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// Filter returns the items matching s, preserving their order.
func Filter[T any](items []T, s Spec, meta *resource.Metadata[T]) []T {
	if len(s.Conditions) == 0 {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if Match(s, meta, item) {
			out = append(out, item)
		}
	}
	return out
}

// SortFields returns the explicit order directives of s followed by the
// metadata's default sort fields that were not named explicitly.
func SortFields[T any](s Spec, meta *resource.Metadata[T]) []resource.SortField[T] {
	fields := make([]resource.SortField[T], 0, len(s.Order)+len(meta.SortBy))
	seen := make(map[string]struct{}, len(s.Order))
	for _, o := range s.Order {
		f, ok := meta.Field(o.Field)
		if !ok {
			continue
		}
		if _, dup := seen[o.Field]; dup {
			continue
		}
		seen[o.Field] = struct{}{}
		fields = append(fields, resource.SortField[T]{Name: o.Field, Field: f, Desc: o.Desc})
	}
	for _, sf := range meta.DefaultSort() {
		if _, dup := seen[sf.Name]; dup {
			continue
		}
		fields = append(fields, sf)
	}
	return fields
}
