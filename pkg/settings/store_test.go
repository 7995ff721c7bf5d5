package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/config"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	fileStore, err := NewFileStore(filepath.Join(dir, "settings.json"))
	require.NoError(t, err)
	sqliteStore, err := NewSQLiteStore(filepath.Join(dir, "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"sqlite": sqliteStore,
	}
}

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, "observationalMemory")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "observationalMemory", `[{"id":"ab12"}]`))
			require.NoError(t, s.Set(ctx, "observationalMemory", `[]`))

			v, ok, err := s.Get(ctx, "observationalMemory")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[]`, v)
		})
	}
}

func TestStore_ConcurrentSet(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, s.Set(ctx, "k", "v"))
				}()
			}
			wg.Wait()

			v, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v", v)
		})
	}
}

func TestGetOr(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	n, err := GetOr(ctx, s, "limit", 50)
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	require.NoError(t, SetJSON(ctx, s, "limit", 12))
	n, err = GetOr(ctx, s, "limit", 50)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	require.NoError(t, s.Set(ctx, "blob", `not json`))
	str, err := GetOr(ctx, s, "blob", "default")
	require.NoError(t, err)
	assert.Equal(t, "not json", str)

	_, err = GetOr(ctx, s, "blob", []int{})
	assert.Error(t, err)
}

func TestFileStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "a", "1"))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestSQLiteStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", "v1"))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	v, ok, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", v)
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Set(context.Background(), "k", "v"), ErrClosed)
	_, _, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, RedisOptions{Addr: "127.0.0.1:1"})
	assert.Error(t, err)

	_, err = NewRedisStore(ctx, RedisOptions{})
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Settings.Path = filepath.Join(t.TempDir(), "settings.db")

	cfg.Settings.Backend = "memory"
	s, err := Open(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	cfg.Settings.Backend = "sqlite"
	s, err = Open(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	cfg.Settings.Backend = "etcd"
	_, err = Open(ctx, cfg)
	assert.Error(t, err)
}
