package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/warp/pkg/adapters/memory"
	"github.com/aretw0/warp/pkg/domain"
	"github.com/aretw0/warp/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{"password", "ssn"})
	require.NoError(t, err)
	store := mw(underlying)

	m := domain.NewModel()
	m.Set("username", "jdoe")
	m.Set("user_password", "secret123")
	m.Set("details", map[string]any{
		"address":    "123 St",
		"ssn_number": "999-99-9999",
	})

	require.NoError(t, store.Save(ctx, "pii", m))

	v, _ := m.Value("user_password")
	assert.Equal(t, "secret123", v, "the in-memory model is not modified")
	details, _ := m.Value("details")
	assert.Equal(t, "999-99-9999", details.(map[string]any)["ssn_number"])

	stored, err := underlying.Load(ctx, "pii")
	require.NoError(t, err)
	assert.Equal(t, []string{"username", "user_password", "details"}, stored.Keys())

	v, _ = stored.Value("username")
	assert.Equal(t, "jdoe", v)
	v, _ = stored.Value("user_password")
	assert.Equal(t, middleware.Mask, v)
	details, _ = stored.Value("details")
	assert.Equal(t, map[string]any{"address": "123 St", "ssn_number": middleware.Mask}, details)
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.ErrorContains(t, err, "invalid mask pattern")
}

func TestChain_MasksBeforeEncrypting(t *testing.T) {
	ctx := context.Background()
	pii, err := middleware.NewPIIMiddleware([]string{"token"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Chain(memory.NewStore(), pii, enc)

	m := domain.NewModel()
	m.Set("token", "abc")
	require.NoError(t, store.Save(ctx, "run", m))

	loaded, err := store.Load(ctx, "run")
	require.NoError(t, err)
	v, _ := loaded.Value("token")
	assert.Equal(t, middleware.Mask, v)
}
