package pagecache

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/yatube/internal/cache"
)

func TestClear_Redis(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	pages := cache.NewRedisFromClient(client, "yatube:page:", time.Minute)
	require.NoError(t, pages.Set(ctx, "GET /", &cache.Entry{Status: 200, Body: []byte("index")}))
	require.NoError(t, client.Set(ctx, "other:key", "keep", 0).Err())

	var out bytes.Buffer
	require.NoError(t, Clear(ctx, pages, &out))
	assert.Equal(t, "Page cache cleared\n", out.String())

	_, ok, err := pages.Get(ctx, "GET /")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, server.Exists("other:key"))
}

func TestClear_Memory(t *testing.T) {
	ctx := context.Background()
	pages := cache.NewMemory(4, time.Minute)
	require.NoError(t, pages.Set(ctx, "GET /", &cache.Entry{Status: 200}))

	var out bytes.Buffer
	require.NoError(t, Clear(ctx, pages, &out))
	assert.Equal(t, 0, pages.Len())
}
