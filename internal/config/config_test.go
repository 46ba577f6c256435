package config_test

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/UkralStul/yatube/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	c := qt.New(t)
	c.Setenv("STORAGE", "")
	c.Setenv("CACHE_BACKEND", "")
	c.Setenv("POSTS_PER_PAGE", "")
	c.Setenv("CACHE_TTL", "")

	cfg, err := config.Load()
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Addr, qt.Equals, ":8000")
	c.Assert(cfg.Storage, qt.Equals, config.StorageMemory)
	c.Assert(cfg.PostsPerPage, qt.Equals, 10)
	c.Assert(cfg.CacheTTL, qt.Equals, 20*time.Second)
	c.Assert(cfg.SessionTTL, qt.Equals, 14*24*time.Hour)
	c.Assert(cfg.CSRFEnabled, qt.IsTrue)
	c.Assert(cfg.MediaURL, qt.Equals, "/media/")
}

func TestLoad_FromEnv(t *testing.T) {
	c := qt.New(t)
	c.Setenv("STORAGE", "Postgres")
	c.Setenv("DATABASE_URL", "postgres://localhost/yatube")
	c.Setenv("POSTS_PER_PAGE", "5")
	c.Setenv("CACHE_BACKEND", "redis")
	c.Setenv("CACHE_TTL", "1m")
	c.Setenv("MEDIA_URL", "/uploads")
	c.Setenv("SITE_URL", "https://yatube.example/")

	cfg, err := config.Load()
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Storage, qt.Equals, config.StoragePostgres)
	c.Assert(cfg.DatabaseURL, qt.Equals, "postgres://localhost/yatube")
	c.Assert(cfg.PostsPerPage, qt.Equals, 5)
	c.Assert(cfg.CacheBackend, qt.Equals, config.CacheRedis)
	c.Assert(cfg.CacheTTL, qt.Equals, time.Minute)
	c.Assert(cfg.MediaURL, qt.Equals, "/uploads/")
	c.Assert(cfg.SiteURL, qt.Equals, "https://yatube.example")
}

func TestLoadWithOverrides(t *testing.T) {
	c := qt.New(t)
	c.Setenv("STORAGE", "sqlite")
	c.Setenv("DATABASE_URL", "")
	c.Setenv("HTTP_ADDR", ":9000")

	_, err := config.Load()
	c.Assert(err, qt.ErrorMatches, "DATABASE_URL must be set for sqlite storage")

	cfg, err := config.LoadWithOverrides(map[string]string{"STORAGE": "memory", "HTTP_ADDR": ""})
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Storage, qt.Equals, config.StorageMemory)
	c.Assert(cfg.Addr, qt.Equals, ":9000")
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Storage:      config.StorageMemory,
			CacheBackend: config.CacheMemory,
			PostsPerPage: 10,
			SecretKey:    "s",
			SessionTTL:   time.Hour,
		}
	}

	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
		errMsg string
	}{
		{
			name:   "sql storage without dsn",
			mutate: func(cfg *config.Config) { cfg.Storage = config.StorageSQLite },
			errMsg: "DATABASE_URL must be set for sqlite storage",
		},
		{
			name:   "unknown storage",
			mutate: func(cfg *config.Config) { cfg.Storage = "mongo" },
			errMsg: `unknown storage "mongo"`,
		},
		{
			name:   "unknown cache",
			mutate: func(cfg *config.Config) { cfg.CacheBackend = "memcached" },
			errMsg: `unknown cache backend "memcached"`,
		},
		{
			name:   "zero page size",
			mutate: func(cfg *config.Config) { cfg.PostsPerPage = 0 },
			errMsg: "POSTS_PER_PAGE must be positive, got 0",
		},
		{
			name:   "empty secret",
			mutate: func(cfg *config.Config) { cfg.SecretKey = "" },
			errMsg: "SECRET_KEY must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			cfg := valid()
			tt.mutate(cfg)
			c.Assert(cfg.Validate(), qt.ErrorMatches, tt.errMsg)
		})
	}

	c := qt.New(t)
	c.Assert(valid().Validate(), qt.IsNil)
}

func TestCSRFKey(t *testing.T) {
	c := qt.New(t)

	cfg := &config.Config{SecretKey: "a"}
	c.Assert(cfg.CSRFKey(), qt.HasLen, 32)
	c.Assert(cfg.CSRFKey(), qt.DeepEquals, (&config.Config{SecretKey: "a"}).CSRFKey())
	c.Assert(cfg.CSRFKey(), qt.Not(qt.DeepEquals), (&config.Config{SecretKey: "b"}).CSRFKey())
}
