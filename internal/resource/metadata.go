// Package resource describes CRUD resources through static metadata: the
// key field used for identity lookups, the default listing order and the
// table of fields that may be filtered or sorted on.
package resource

import (
	"fmt"
	"time"
)

// Kind classifies a field value for comparisons.
type Kind int

const (
	KindString Kind = iota
	KindTime
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindTime:
		return "time"
	case KindNumber:
		return "number"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Field is a typed accessor for one attribute of T.
//
// Value returns a string for KindString, a time.Time for KindTime and a
// float64 for KindNumber. A nil result stands for an absent value (SQL NULL).
type Field[T any] struct {
	Column string
	Kind   Kind
	Value  func(T) any
}

// Descriptor is the type-independent part of a resource's metadata.
type Descriptor struct {
	Name        string
	NamePlural  string
	Label       string
	LabelPlural string
	Description string
	KeyName     string
	SortBy      []string
}

// Metadata parameterizes generic CRUD behavior over a resource type.
type Metadata[T any] struct {
	Descriptor
	Key    func(T) string
	Fields map[string]Field[T]
}

// Field looks up a field by its external name.
func (m *Metadata[T]) Field(name string) (Field[T], bool) {
	f, ok := m.Fields[name]
	return f, ok
}

// DefaultSort returns the ascending sort fields named by SortBy.
func (m *Metadata[T]) DefaultSort() []SortField[T] {
	fields := make([]SortField[T], 0, len(m.SortBy))
	for _, name := range m.SortBy {
		if f, ok := m.Fields[name]; ok {
			fields = append(fields, SortField[T]{Name: name, Field: f})
		}
	}
	return fields
}

// Validate checks that the key and sort fields reference declared fields.
func (m *Metadata[T]) Validate() error {
	if m.Key == nil {
		return fmt.Errorf("%s metadata: key accessor missing", m.Name)
	}
	if _, ok := m.Fields[m.KeyName]; !ok {
		return fmt.Errorf("%s metadata: key field %q not declared", m.Name, m.KeyName)
	}
	for _, name := range m.SortBy {
		if _, ok := m.Fields[name]; !ok {
			return fmt.Errorf("%s metadata: sort field %q not declared", m.Name, name)
		}
	}
	for name, f := range m.Fields {
		if f.Value == nil {
			return fmt.Errorf("%s metadata: field %q has no accessor", m.Name, name)
		}
	}
	return nil
}

// StringValue adapts a string getter to a Field accessor.
func StringValue[T any](get func(T) string) func(T) any {
	return func(v T) any { return get(v) }
}

// OptionalStringValue adapts a *string getter, mapping nil to an absent value.
func OptionalStringValue[T any](get func(T) *string) func(T) any {
	return func(v T) any {
		if s := get(v); s != nil {
			return *s
		}
		return nil
	}
}

// TimeValue adapts a time getter to a Field accessor.
func TimeValue[T any](get func(T) time.Time) func(T) any {
	return func(v T) any { return get(v) }
}
