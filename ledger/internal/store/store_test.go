package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	_, client := setupTestRedis(t)
	return map[string]Store{
		"file":  fs,
		"redis": NewRedisStore(client, ""),
	}
}

func TestStorePutGet(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			defer s.Close()

			_, ok, err := s.Get(ctx, "inc-1")
			require.NoError(t, err)
			assert.False(t, ok)

			rec := Record{MerkleRoot: "abc", Timestamp: "2025-01-01T00:00:00Z", TxID: "local-1-inc-1"}
			require.NoError(t, s.Put(ctx, "inc-1", rec))

			got, ok, err := s.Get(ctx, "inc-1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, rec, got)

			replaced := Record{MerkleRoot: "def", Timestamp: "t2", TxID: "local-2-inc-1"}
			require.NoError(t, s.Put(ctx, "inc-1", replaced))
			got, _, err = s.Get(ctx, "inc-1")
			require.NoError(t, err)
			assert.Equal(t, replaced, got)

			assert.NoError(t, s.Ping(ctx))
		})
	}
}

func TestFileStoreLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "b", Record{MerkleRoot: "2", TxID: "tx-b"}))
	require.NoError(t, s.Put(ctx, "a", Record{MerkleRoot: "1", TxID: "tx-a"}))

	data, err := os.ReadFile(filepath.Join(dir, AnchorsFile))
	require.NoError(t, err)
	var onDisk map[string]map[string]string
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, "tx-a", onDisk["a"]["tx_id"])
	assert.Equal(t, "2", onDisk["b"]["merkle_root"])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files cleaned up")

	// A second store over the same directory sees the records.
	s2, err := NewFileStore(dir)
	require.NoError(t, err)
	_, ok, err := s2.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStoreConcurrentPuts(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Put(ctx, fmt.Sprintf("inc-%d", i), Record{MerkleRoot: "r"}))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		_, ok, err := s.Get(ctx, fmt.Sprintf("inc-%d", i))
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestFileStoreClosed(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Put(context.Background(), "x", Record{}), ErrClosed)
	_, _, err = s.Get(context.Background(), "x")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRedisStoreUsesHash(t *testing.T) {
	mr, client := setupTestRedis(t)
	s := NewRedisStore(client, "")
	require.NoError(t, s.Put(context.Background(), "inc-1", Record{MerkleRoot: "abc", TxID: "tx"}))

	raw := mr.HGet(DefaultRedisKey, "inc-1")
	assert.JSONEq(t, `{"merkle_root":"abc","timestamp":"","tx_id":"tx"}`, raw)
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, client := setupTestRedis(t)
	s := NewRedisStore(client, "")
	mr.SetError("ERR simulated outage")

	assert.Error(t, s.Put(context.Background(), "inc-1", Record{}))
	_, _, err := s.Get(context.Background(), "inc-1")
	assert.Error(t, err)
	assert.Error(t, s.Ping(context.Background()))
}
