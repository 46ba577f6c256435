package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/yatube/internal/cache"
	"github.com/UkralStul/yatube/internal/config"
	"github.com/UkralStul/yatube/internal/mail"
	"github.com/UkralStul/yatube/internal/search"
	"github.com/UkralStul/yatube/internal/storage"
	"github.com/UkralStul/yatube/internal/storage/gormstore"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Addr:          ":0",
		SecretKey:     "test-secret",
		Storage:       config.StorageMemory,
		PostsPerPage:  10,
		CacheBackend:  config.CacheMemory,
		CacheTTL:      20 * time.Second,
		CacheSize:     16,
		MediaRoot:     filepath.Join(dir, "media"),
		MediaURL:      "/media/",
		SessionTTL:    time.Hour,
		EmailFilePath: filepath.Join(dir, "mail"),
		SiteURL:       "http://localhost:8000",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitialize_MemoryStack(t *testing.T) {
	cfg := testConfig(t)

	a, err := Initialize(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &cache.Memory{}, a.Pages)
	assert.IsType(t, &search.StorageSearcher{}, a.Searcher)
	assert.IsType(t, &mail.FileBackend{}, a.Mailer)

	require.NoError(t, FillWithDemoData(context.Background(), a.Store, a.Auth, discardLogger()))

	rec := httptest.NewRecorder()
	a.Web.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Все счастливые семьи")
}

func TestInitialize_RedisCache(t *testing.T) {
	server := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.CacheBackend = config.CacheRedis
	cfg.RedisAddr = server.Addr()

	a, err := Initialize(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &cache.Redis{}, a.Pages)
}

func TestInitialize_RedisUnavailable(t *testing.T) {
	server := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.CacheBackend = config.CacheRedis
	cfg.RedisAddr = server.Addr()
	server.Close()

	_, err := Initialize(context.Background(), cfg, discardLogger())
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestOpenStorage_SQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage = config.StorageSQLite
	cfg.DatabaseURL = filepath.Join(t.TempDir(), "yatube.db")

	store, err := OpenStorage(cfg)
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &gormstore.Store{}, store)
}

func TestFillWithDemoData(t *testing.T) {
	cfg := testConfig(t)
	a, err := Initialize(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()

	require.NoError(t, FillWithDemoData(ctx, a.Store, a.Auth, discardLogger()))

	_, total, err := a.Store.ListPosts(ctx, storage.PostFilter{}, storage.PaginationArgs{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	follows, err := a.Store.CountFollows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, follows)

	_, err = a.Auth.Authenticate(ctx, "leo", DemoPassword)
	assert.NoError(t, err)
}
