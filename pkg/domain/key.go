package domain

import (
	"fmt"
	"sync"
)

// DuplicateKeyError is returned when a key name is registered twice.
type DuplicateKeyError struct {
	Name string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("attribute key %q is already registered", e.Name)
}

// Slot is the untyped view of a Key, used by batch operations on the Model.
// It can only be implemented by Key, which keeps the set of slot kinds closed.
type Slot interface {
	// Name returns the unique name the slot is registered under.
	Name() string
	// Default invokes the default factory, if the key has one.
	Default() (any, bool)

	check(value any) error
}

// Key addresses a typed slot in the Model.
// Keys are immutable and are meant to be created once at package initialization.
type Key[T any] struct {
	name    string
	factory func() T
}

// Name returns the registered name of the key.
func (k Key[T]) Name() string {
	return k.name
}

// HasDefault reports whether the key carries a default factory.
func (k Key[T]) HasDefault() bool {
	return k.factory != nil
}

// NewDefault returns a fresh default value for the key.
// The zero value of T is returned when no factory was configured.
func (k Key[T]) NewDefault() T {
	if k.factory == nil {
		var zero T
		return zero
	}
	return k.factory()
}

// Default implements Slot.
func (k Key[T]) Default() (any, bool) {
	if k.factory == nil {
		return nil, false
	}
	return k.factory(), true
}

func (k Key[T]) check(value any) error {
	if isNil(value) {
		return nil
	}
	if _, ok := value.(T); !ok {
		return &TypeMismatchError{Name: k.name, Want: typeName[T](), Got: fmt.Sprintf("%T", value)}
	}
	return nil
}

func (k Key[T]) String() string {
	return k.name
}

// Registry maps unique names to key descriptors. It is append-only.
type Registry struct {
	mu    sync.RWMutex
	slots map[string]Slot
	order []string
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		slots: make(map[string]Slot),
	}
}

// DefaultRegistry is the process-wide registry used by NewKey.
var DefaultRegistry = NewRegistry()

// CreateKey registers a new key in r.
// It fails with *DuplicateKeyError if the name is already taken; the existing entry is kept.
func CreateKey[T any](r *Registry, name string, factory func() T) (Key[T], error) {
	if name == "" {
		return Key[T]{}, fmt.Errorf("attribute key name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.slots[name]; exists {
		return Key[T]{}, &DuplicateKeyError{Name: name}
	}

	key := Key[T]{name: name, factory: factory}
	r.slots[name] = key
	r.order = append(r.order, name)
	return key, nil
}

// MustCreateKey is like CreateKey but panics on error.
func MustCreateKey[T any](r *Registry, name string, factory func() T) Key[T] {
	key, err := CreateKey(r, name, factory)
	if err != nil {
		panic(err)
	}
	return key
}

// NewKey registers a key without a default factory in the DefaultRegistry.
// It panics if the name is taken, so it belongs in package-level var blocks.
func NewKey[T any](name string) Key[T] {
	return MustCreateKey[T](DefaultRegistry, name, nil)
}

// NewKeyWithDefault registers a key with a default factory in the DefaultRegistry.
func NewKeyWithDefault[T any](name string, factory func() T) Key[T] {
	return MustCreateKey(DefaultRegistry, name, factory)
}

// Lookup returns the slot registered under name.
func (r *Registry) Lookup(name string) (Slot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot, ok := r.slots[name]
	return slot, ok
}

// Names returns the registered names in creation order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered keys.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
