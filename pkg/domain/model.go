package domain

import (
	"fmt"
	"iter"
	"slices"
)

// Model is the mutable accumulator a pipeline threads through its steps.
//
// Values are kept in insertion order. Writing a nil value removes the entry,
// so a key is never present with a nil value. Every write is traced: Added
// holds keys set since the last ClearTrace, Removed holds keys cleared since then.
//
// A Model is not safe for concurrent use; each execution owns its own.
type Model struct {
	values  map[string]any
	order   []string
	added   map[string]any
	removed []string
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{
		values: make(map[string]any),
		added:  make(map[string]any),
	}
}

// Set writes a raw value under name. A nil-equivalent value removes the entry.
func (m *Model) Set(name string, value any) {
	if isNil(value) {
		m.Delete(name)
		return
	}

	if _, exists := m.values[name]; !exists {
		m.order = append(m.order, name)
	}
	m.values[name] = value
	m.added[name] = value
	m.removed = slices.DeleteFunc(m.removed, func(n string) bool { return n == name })
}

// Delete removes name from the model and records it in the removed trace.
func (m *Model) Delete(name string) {
	if _, exists := m.values[name]; exists {
		delete(m.values, name)
		m.order = slices.DeleteFunc(m.order, func(n string) bool { return n == name })
	}
	delete(m.added, name)
	if !slices.Contains(m.removed, name) {
		m.removed = append(m.removed, name)
	}
}

// Value returns the raw value stored under name.
func (m *Model) Value(name string) (any, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Has reports whether name holds a value.
func (m *Model) Has(name string) bool {
	_, ok := m.values[name]
	return ok
}

// Len returns the number of stored values.
func (m *Model) Len() int {
	return len(m.order)
}

// Keys returns the stored names in insertion order.
func (m *Model) Keys() []string {
	return slices.Clone(m.order)
}

// All iterates the stored values in insertion order.
func (m *Model) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, name := range slices.Clone(m.order) {
			v, ok := m.values[name]
			if !ok {
				continue
			}
			if !yield(name, v) {
				return
			}
		}
	}
}

// Added returns a copy of the values set since the last ClearTrace.
func (m *Model) Added() map[string]any {
	out := make(map[string]any, len(m.added))
	for k, v := range m.added {
		out[k] = v
	}
	return out
}

// Removed returns the names removed since the last ClearTrace, in removal order.
func (m *Model) Removed() []string {
	return slices.Clone(m.removed)
}

// ClearTrace resets the added and removed traces without touching the values.
func (m *Model) ClearTrace() {
	m.added = make(map[string]any)
	m.removed = nil
}

// IsError reports the error flag written by the last execution.
func (m *Model) IsError() bool {
	v, _ := Get(m, IsError)
	return v
}

// ErrorMessageText returns the error message written by the last failed execution.
func (m *Model) ErrorMessageText() string {
	v, _ := Get(m, ErrorMessage)
	return v
}

// View selects a view using the model's own error flag.
func (m *Model) View(sel *ViewSelector) ViewResult {
	return SelectView(m.IsError(), sel, m)
}

func (m *Model) String() string {
	return fmt.Sprintf("Model%v", m.order)
}

// Get reads the value stored under k.
// It reports false when the key is absent or holds a value of another type.
func Get[T any](m *Model, k Key[T]) (T, bool) {
	var zero T
	v, ok := m.values[k.name]
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// GetOrDefault reads k, falling back to the key's default factory.
func GetOrDefault[T any](m *Model, k Key[T]) T {
	if v, ok := Get(m, k); ok {
		return v
	}
	return k.NewDefault()
}

// Put writes v under k and returns it. Writing a nil value removes the entry.
func Put[T any](m *Model, k Key[T], v T) T {
	m.Set(k.name, v)
	return v
}

// Remove clears k.
func Remove[T any](m *Model, k Key[T]) {
	m.Delete(k.name)
}

// Has reports whether k holds a value.
func Has[T any](m *Model, k Key[T]) bool {
	return m.Has(k.name)
}

// GetMany reads 2 to 6 slots at once, left to right.
// Absent slots yield nil in the returned tuple.
func (m *Model) GetMany(slots ...Slot) (Tuple, error) {
	if err := checkBatch(len(slots)); err != nil {
		return Tuple{}, err
	}
	values := make([]any, len(slots))
	for i, s := range slots {
		values[i] = m.values[s.Name()]
	}
	return Tuple{values: values}, nil
}

// PutMany writes the values of t into 2 to 6 slots, left to right.
// The tuple arity must match the number of slots.
func (m *Model) PutMany(t Tuple, slots ...Slot) error {
	if err := checkBatch(len(slots)); err != nil {
		return err
	}
	if t.Len() != len(slots) {
		return fmt.Errorf("%w: tuple of %d values for %d slots", ErrBatchArity, t.Len(), len(slots))
	}
	for i, s := range slots {
		if err := s.check(t.values[i]); err != nil {
			return err
		}
	}
	for i, s := range slots {
		m.Set(s.Name(), t.values[i])
	}
	return nil
}

// MinBatch and MaxBatch bound the number of slots accepted by batch operations.
const (
	MinBatch = 2
	MaxBatch = 6
)

func checkBatch(n int) error {
	if n < MinBatch || n > MaxBatch {
		return fmt.Errorf("%w: got %d slots, want %d to %d", ErrBatchArity, n, MinBatch, MaxBatch)
	}
	return nil
}
