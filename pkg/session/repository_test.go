package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/taskup/pkg/adapters/memory"
	"github.com/aretw0/taskup/pkg/domain"
	"github.com/aretw0/taskup/pkg/ports"
	"github.com/aretw0/taskup/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	repo := session.NewRepository(kv)

	p, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.False(t, p.Complete())

	user := &domain.User{ID: "u1", Email: "ana@example.com", Extra: map[string]any{"plan": "pro"}}
	require.NoError(t, repo.Save(ctx, "tok", "ref", user))

	p, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, p.Complete())
	assert.Equal(t, "tok", p.Token)
	assert.Equal(t, "ref", p.RefreshToken)
	assert.Equal(t, "ana@example.com", p.User.Email)
	assert.Equal(t, "pro", p.User.Extra["plan"])

	require.NoError(t, repo.SaveToken(ctx, "tok2", ""))
	p, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok2", p.Token)
	assert.Equal(t, "ref", p.RefreshToken, "empty refresh token keeps the stored one")

	require.NoError(t, repo.Save(ctx, "tok3", "", user))
	p, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, p.RefreshToken, "a new session without refresh token drops the old one")

	require.NoError(t, repo.Clear(ctx))
	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRepository_CorruptUser(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	require.NoError(t, kv.Set(ctx, session.TokenKey, "tok"))
	require.NoError(t, kv.Set(ctx, session.UserKey, "{not json"))

	_, err := session.NewRepository(kv).Load(ctx)
	assert.Error(t, err)
}

type failingStore struct {
	ports.KVStore
}

func (failingStore) Remove(context.Context, string) error { return errors.New("disk full") }

func TestRepository_ClearAttemptsEveryKey(t *testing.T) {
	err := session.NewRepository(failingStore{memory.NewStore()}).Clear(context.Background())
	require.Error(t, err)
	for _, k := range session.Keys {
		assert.Contains(t, err.Error(), k)
	}
}
