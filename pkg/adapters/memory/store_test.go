package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/warp/pkg/adapters/memory"
	"github.com/aretw0/warp/pkg/domain"
	"github.com/aretw0/warp/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	model := domain.NewModel()
	model.Set("name", "before")
	require.NoError(t, store.Save(ctx, "run-1", model))

	model.Set("name", "after")

	loaded, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	name, _ := loaded.Value("name")
	assert.Equal(t, "before", name)

	loaded.Set("name", "mutated")
	again, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	name, _ = again.Value("name")
	assert.Equal(t, "before", name)
}
