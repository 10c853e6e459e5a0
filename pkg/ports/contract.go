package ports

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/aretw0/taskup/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunKVStoreContract runs a suite of tests to verify that a KVStore implementation
// adheres to the defined interface contract.
func RunKVStoreContract(t *testing.T, store KVStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405.000000000")

	t.Run("Set and Get", func(t *testing.T) {
		key := prefix + "-token"
		require.NoError(t, store.Set(ctx, key, "abc.def.ghi"))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "abc.def.ghi", got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		key := prefix + "-user"
		require.NoError(t, store.Set(ctx, key, `{"id":"1"}`))
		require.NoError(t, store.Set(ctx, key, `{"id":"2"}`))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"2"}`, got)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, prefix+"-missing")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("Remove", func(t *testing.T) {
		key := prefix + "-remove"
		require.NoError(t, store.Set(ctx, key, "v"))
		require.NoError(t, store.Remove(ctx, key))

		_, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrKeyNotFound, "Get after Remove should return ErrKeyNotFound")

		assert.NoError(t, store.Remove(ctx, key), "Remove of a missing key is not an error")
	})

	t.Run("Empty Value", func(t *testing.T) {
		key := prefix + "-empty"
		require.NoError(t, store.Set(ctx, key, ""))
		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Empty(t, got)
		_ = store.Remove(ctx, key)
	})

	t.Run("Keys", func(t *testing.T) {
		k1, k2 := prefix+"-k1", prefix+"-k2"
		require.NoError(t, store.Set(ctx, k1, "1"))
		require.NoError(t, store.Set(ctx, k2, "2"))
		defer func() {
			_ = store.Remove(ctx, k1)
			_ = store.Remove(ctx, k2)
		}()

		keys, err := store.Keys(ctx)
		require.NoError(t, err)
		sort.Strings(keys)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
	})
}
