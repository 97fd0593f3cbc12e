package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var (
	testRegistry = NewRegistry()
	keyName      = MustCreateKey[string](testRegistry, "name", nil)
	keyCount     = MustCreateKey[int](testRegistry, "count", nil)
	keyTags      = MustCreateKey[[]string](testRegistry, "tags", nil)
	keyOwner     = MustCreateKey[*owner](testRegistry, "owner", nil)
)

type owner struct {
	Login string
}

func TestModel_PutGet(t *testing.T) {
	m := NewModel()

	got := Put(m, keyName, "warp")
	assert.Equal(t, "warp", got)

	v, ok := Get(m, keyName)
	require.True(t, ok)
	assert.Equal(t, "warp", v)

	// Last write wins.
	Put(m, keyName, "warp")
	v, _ = Get(m, keyName)
	assert.Equal(t, "warp", v)

	_, ok = Get(m, keyCount)
	assert.False(t, ok)
	assert.True(t, Has(m, keyName))
	assert.False(t, Has(m, keyCount))
}

func TestModel_NilWriteIsRemoval(t *testing.T) {
	tests := []struct {
		name  string
		write func(m *Model)
		key   string
	}{
		{"nil slice", func(m *Model) { Put(m, keyTags, nil) }, "tags"},
		{"nil pointer", func(m *Model) { Put[*owner](m, keyOwner, nil) }, "owner"},
		{"raw nil", func(m *Model) { m.Set("name", nil) }, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel()
			m.Set(tt.key, "present")
			m.ClearTrace()

			tt.write(m)

			assert.False(t, m.Has(tt.key))
			assert.Contains(t, m.Removed(), tt.key)
			assert.NotContains(t, m.Added(), tt.key)
			assert.NotContains(t, m.Keys(), tt.key)
		})
	}
}

func TestModel_NilWriteOnAbsentKey(t *testing.T) {
	m := NewModel()
	Put(m, keyTags, nil)

	assert.False(t, Has(m, keyTags))
	assert.Equal(t, []string{"tags"}, m.Removed())
	assert.Empty(t, m.Added())
}

func TestModel_TraceTransitions(t *testing.T) {
	m := NewModel()
	Put(m, keyName, "a")
	Remove(m, keyName)
	assert.Equal(t, []string{"name"}, m.Removed())
	assert.Empty(t, m.Added())

	// Setting again moves it back to added.
	Put(m, keyName, "b")
	assert.Empty(t, m.Removed())
	assert.Equal(t, map[string]any{"name": "b"}, m.Added())

	m.ClearTrace()
	assert.Empty(t, m.Added())
	assert.Empty(t, m.Removed())
	assert.True(t, Has(m, keyName), "ClearTrace keeps values")
}

func TestModel_InsertionOrder(t *testing.T) {
	m := NewModel()
	m.Set("c", 1)
	m.Set("a", 2)
	m.Set("b", 3)
	m.Set("a", 4) // overwrite keeps position
	m.Delete("c")
	m.Set("c", 5) // re-insert goes last

	assert.Equal(t, []string{"a", "b", "c"}, m.Keys())

	var seen []string
	for name := range m.All() {
		seen = append(seen, name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestModel_GetTypeMismatch(t *testing.T) {
	m := NewModel()
	m.Set("count", "not a number")

	_, ok := Get(m, keyCount)
	assert.False(t, ok)
}

func TestModel_GetOrDefault(t *testing.T) {
	r := NewRegistry()
	k := MustCreateKey(r, "limit", func() int { return 10 })
	m := NewModel()

	assert.Equal(t, 10, GetOrDefault(m, k))
	Put(m, k, 3)
	assert.Equal(t, 3, GetOrDefault(m, k))
}

func TestModel_Batch(t *testing.T) {
	m := NewModel()

	err := m.PutMany(MustTuple("warp", 3), keyName, keyCount)
	require.NoError(t, err)

	tup, err := m.GetMany(keyName, keyCount, keyTags)
	require.NoError(t, err)
	assert.Equal(t, []any{"warp", 3, nil}, tup.Values())
}

func TestModel_BatchArity(t *testing.T) {
	m := NewModel()

	_, err := m.GetMany(keyName)
	assert.ErrorIs(t, err, ErrBatchArity)

	err = m.PutMany(MustTuple("a", 1, nil), keyName, keyCount)
	assert.ErrorIs(t, err, ErrBatchArity)

	seven := []Slot{keyName, keyCount, keyTags, keyOwner, keyName, keyCount, keyTags}
	_, err = m.GetMany(seven...)
	assert.ErrorIs(t, err, ErrBatchArity)
}

func TestModel_PutManyTypeMismatch(t *testing.T) {
	m := NewModel()

	err := m.PutMany(MustTuple("warp", "three"), keyName, keyCount)

	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "count", mismatch.Name)
	assert.False(t, Has(m, keyName), "no slot is written when one value does not fit")
}

func TestModel_JSONRoundTrip(t *testing.T) {
	m := NewModel()
	m.Set("z", 42)
	m.Set("a", "text")
	Put(m, FailureValue, errors.New("boom"))

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"z":42,"a":"text","failure":"boom"}`, string(data))
	assert.Equal(t, `{"z":42,"a":"text","failure":"boom"}`, string(data), "order is preserved")

	var loaded Model
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, []string{"z", "a", "failure"}, loaded.Keys())
	v, _ := loaded.Value("z")
	assert.Equal(t, json.Number("42"), v)
	assert.Empty(t, loaded.Added())
}

func TestModel_UnmarshalRejectsNonObject(t *testing.T) {
	var m Model
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &m))
}

func TestModel_YAMLOrder(t *testing.T) {
	m := NewModel()
	m.Set("second", 2)
	m.Set("first", MustTuple(1, "x"))

	out, err := yaml.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, "second: 2\nfirst:\n    - 1\n    - x\n", string(out))
}
