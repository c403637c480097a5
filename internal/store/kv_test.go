package store

import (
	"context"
	"path/filepath"
	"testing"

	"agentconsole/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *KV {
	t.Helper()
	kv, err := Open(filepath.Join(t.TempDir(), "nested", "console.db"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestKV_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	kv := openTemp(t)

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Put(ctx, "k", []byte("v1")))
	require.NoError(t, kv.Put(ctx, "k", []byte("v2")))

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))

	require.NoError(t, kv.Delete(ctx, "k"))
	require.NoError(t, kv.Delete(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKV_SettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := openTemp(t)

	_, ok, err := kv.LoadSettings(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	want := types.Settings{Model: "claude-3-7-sonnet-latest", APIKey: "sk-x", Temperature: 0.7, MaxTokens: 4096}
	require.NoError(t, kv.SaveSettings(ctx, want))

	got, ok, err := kv.LoadSettings(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestKV_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "console.db")

	kv, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, kv.SaveSettings(ctx, types.Settings{Model: "m"}))
	require.NoError(t, kv.Close())

	kv, err = Open(path)
	require.NoError(t, err)
	defer kv.Close()

	got, ok, err := kv.LoadSettings(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "m", got.Model)
	assert.Equal(t, path, kv.Path())
}

func TestKV_GetJSONCorrupt(t *testing.T) {
	ctx := context.Background()
	kv := openTemp(t)

	require.NoError(t, kv.Put(ctx, SettingsKey, []byte("{not json")))
	_, _, err := kv.LoadSettings(ctx)
	assert.Error(t, err)
}
