package ports

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/warp/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract runs a suite of tests to verify that a RunStore implementation
// adheres to the defined interface contract.
func RunStoreContract(t *testing.T, store RunStore) {
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		model := domain.NewModel()
		model.Set("foo", "bar")
		model.Set("count", 42)
		domain.Put(model, domain.IsError, false)

		err := store.Save(ctx, runID, model)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, []string{"foo", "count", "isError"}, loaded.Keys(), "insertion order survives persistence")

		foo, _ := loaded.Value("foo")
		assert.Equal(t, "bar", foo)
		// Snapshots go through JSON, so numbers come back as json.Number.
		count, _ := loaded.Value("count")
		assert.Equal(t, json.Number("42"), count)
		assert.False(t, loaded.IsError())
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, runID, domain.NewModel())
		require.NoError(t, err)

		err = store.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		_ = store.Save(ctx, id1, domain.NewModel())
		_ = store.Save(ctx, id2, domain.NewModel())

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
