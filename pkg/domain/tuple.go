package domain

import (
	"fmt"
	"reflect"
)

// MaxTupleArity is the largest number of values a Tuple can hold.
const MaxTupleArity = 8

// Tuple is a fixed-size, immutable, heterogeneous sequence of values.
type Tuple struct {
	values []any
}

// NewTuple builds a tuple from 1 to MaxTupleArity values.
func NewTuple(values ...any) (Tuple, error) {
	if len(values) < 1 || len(values) > MaxTupleArity {
		return Tuple{}, fmt.Errorf("%w: got %d values", ErrTupleArity, len(values))
	}
	vs := make([]any, len(values))
	copy(vs, values)
	return Tuple{values: vs}, nil
}

// MustTuple is like NewTuple but panics on error.
func MustTuple(values ...any) Tuple {
	t, err := NewTuple(values...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the arity of the tuple.
func (t Tuple) Len() int {
	return len(t.values)
}

// At returns the value at position i without narrowing.
// It panics with *IndexError when i is out of range.
func (t Tuple) At(i int) any {
	if i < 0 || i >= len(t.values) {
		panic(&IndexError{Index: i, Len: len(t.values)})
	}
	return t.values[i]
}

// Values returns a copy of the tuple contents.
func (t Tuple) Values() []any {
	vs := make([]any, len(t.values))
	copy(vs, t.values)
	return vs
}

func (t Tuple) String() string {
	return fmt.Sprintf("%v", t.values)
}

// ValueAt returns the value at position i narrowed to T.
// A nil slot narrows to the zero value of T.
func ValueAt[T any](t Tuple, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(t.values) {
		return zero, &IndexError{Index: i, Len: len(t.values)}
	}
	v := t.values[i]
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &TypeMismatchError{
			Name: fmt.Sprintf("tuple[%d]", i),
			Want: typeName[T](),
			Got:  fmt.Sprintf("%T", v),
		}
	}
	return typed, nil
}

// CollectMode selects the container built for one tuple position by Collect.
type CollectMode int

const (
	// CollectList keeps every value, duplicates included, in input order.
	CollectList CollectMode = iota
	// CollectSet keeps the first occurrence of each distinct value.
	CollectSet
)

func (m CollectMode) String() string {
	switch m {
	case CollectList:
		return "list"
	case CollectSet:
		return "set"
	default:
		return fmt.Sprintf("CollectMode(%d)", int(m))
	}
}

// Collect aggregates tuples position by position.
// The k-th slot of the result holds a []any (CollectList) or a *Set (CollectSet)
// built from the k-th slot of every input. An empty input yields empty containers.
func Collect(tuples []Tuple, modes ...CollectMode) (Tuple, error) {
	if len(modes) < 1 || len(modes) > MaxTupleArity {
		return Tuple{}, fmt.Errorf("%w: got %d collect modes", ErrTupleArity, len(modes))
	}

	out := make([]any, len(modes))
	for k, mode := range modes {
		switch mode {
		case CollectList:
			list := make([]any, 0, len(tuples))
			for _, t := range tuples {
				if k >= len(t.values) {
					return Tuple{}, &IndexError{Index: k, Len: len(t.values)}
				}
				list = append(list, t.values[k])
			}
			out[k] = list
		case CollectSet:
			set := NewSet()
			for _, t := range tuples {
				if k >= len(t.values) {
					return Tuple{}, &IndexError{Index: k, Len: len(t.values)}
				}
				set.Add(t.values[k])
			}
			out[k] = set
		default:
			return Tuple{}, fmt.Errorf("unknown collect mode %v at position %d", mode, k)
		}
	}
	return Tuple{values: out}, nil
}

// Set is an insertion-ordered collection of distinct values.
// Comparable values are deduplicated by equality, others by deep equality.
type Set struct {
	items []any
	index map[any]struct{}
}

// NewSet creates an empty set.
func NewSet(values ...any) *Set {
	s := &Set{index: make(map[any]struct{})}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts v and reports whether it was not present yet.
func (s *Set) Add(v any) bool {
	if s.Contains(v) {
		return false
	}
	if isComparable(v) {
		s.index[v] = struct{}{}
	}
	s.items = append(s.items, v)
	return true
}

// Contains reports whether v is in the set.
func (s *Set) Contains(v any) bool {
	if isComparable(v) {
		_, ok := s.index[v]
		return ok
	}
	for _, item := range s.items {
		if reflect.DeepEqual(item, v) {
			return true
		}
	}
	return false
}

// Len returns the number of distinct values.
func (s *Set) Len() int {
	return len(s.items)
}

// Values returns the members in first-seen order.
func (s *Set) Values() []any {
	vs := make([]any, len(s.items))
	copy(vs, s.items)
	return vs
}

func (s *Set) String() string {
	return fmt.Sprintf("set%v", s.items)
}

// isComparable reports whether v can be used as a map key without panicking.
// Structs and arrays may hold interfaces with unhashable dynamic values, so they take the slow path.
func isComparable(v any) bool {
	if v == nil {
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.Pointer, reflect.Chan:
		return true
	default:
		return false
	}
}
