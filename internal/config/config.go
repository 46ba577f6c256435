// Package config загружает настройки Yatube из окружения и файла .env.
package config

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageMySQL    = "mysql"
	StorageSQLite   = "sqlite"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config - все настройки приложения.
type Config struct {
	Addr      string
	Debug     bool
	SecretKey string

	Storage     string
	DatabaseURL string

	PostsPerPage int

	CacheBackend  string
	CacheTTL      time.Duration
	CacheSize     int
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MediaRoot     string
	MediaURL      string
	CloudinaryURL string

	ElasticAddr     string
	ElasticUsername string
	ElasticPassword string
	ElasticIndex    string

	SessionTTL    time.Duration
	CSRFEnabled   bool
	SecureCookies bool

	EmailFilePath string
	SiteURL       string
}

var defaults = map[string]any{
	"HTTP_ADDR":              ":8000",
	"DEBUG":                  false,
	"SECRET_KEY":             "insecure-dev-secret-change-me",
	"STORAGE":                StorageMemory,
	"DATABASE_URL":           "",
	"POSTS_PER_PAGE":         10,
	"CACHE_BACKEND":          CacheMemory,
	"CACHE_TTL":              "20s",
	"CACHE_SIZE":             1024,
	"REDIS_ADDR":             "localhost:6379",
	"REDIS_PASSWORD":         "",
	"REDIS_DB":               0,
	"MEDIA_ROOT":             "media",
	"MEDIA_URL":              "/media/",
	"CLOUDINARY_URL":         "",
	"ELASTICSEARCH_ADDR":     "",
	"ELASTICSEARCH_USERNAME": "",
	"ELASTICSEARCH_PASSWORD": "",
	"ELASTICSEARCH_INDEX":    "posts",
	"SESSION_TTL":            "336h",
	"CSRF_ENABLED":           true,
	"SECURE_COOKIES":         false,
	"EMAIL_FILE_PATH":        "sent_emails",
	"SITE_URL":               "http://localhost:8000",
}

// Load читает .env (если он есть), затем переменные окружения.
func Load() (*Config, error) {
	return LoadWithOverrides(nil)
}

// LoadWithOverrides работает как Load, но значения из overrides важнее окружения.
// Пустые строки не переопределяют ничего.
func LoadWithOverrides(overrides map[string]string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	for key, value := range overrides {
		if value != "" {
			v.Set(key, value)
		}
	}

	return FromViper(v)
}

// FromViper собирает Config из уже настроенного экземпляра viper.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Addr:      v.GetString("HTTP_ADDR"),
		Debug:     v.GetBool("DEBUG"),
		SecretKey: v.GetString("SECRET_KEY"),

		Storage:     strings.ToLower(v.GetString("STORAGE")),
		DatabaseURL: v.GetString("DATABASE_URL"),

		PostsPerPage: v.GetInt("POSTS_PER_PAGE"),

		CacheBackend:  strings.ToLower(v.GetString("CACHE_BACKEND")),
		CacheTTL:      v.GetDuration("CACHE_TTL"),
		CacheSize:     v.GetInt("CACHE_SIZE"),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		MediaRoot:     v.GetString("MEDIA_ROOT"),
		MediaURL:      v.GetString("MEDIA_URL"),
		CloudinaryURL: v.GetString("CLOUDINARY_URL"),

		ElasticAddr:     v.GetString("ELASTICSEARCH_ADDR"),
		ElasticUsername: v.GetString("ELASTICSEARCH_USERNAME"),
		ElasticPassword: v.GetString("ELASTICSEARCH_PASSWORD"),
		ElasticIndex:    v.GetString("ELASTICSEARCH_INDEX"),

		SessionTTL:    v.GetDuration("SESSION_TTL"),
		CSRFEnabled:   v.GetBool("CSRF_ENABLED"),
		SecureCookies: v.GetBool("SECURE_COOKIES"),

		EmailFilePath: v.GetString("EMAIL_FILE_PATH"),
		SiteURL:       strings.TrimRight(v.GetString("SITE_URL"), "/"),
	}

	if !strings.HasSuffix(cfg.MediaURL, "/") {
		cfg.MediaURL += "/"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres, StorageMySQL, StorageSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for %s storage", c.Storage)
		}
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}

	switch c.CacheBackend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}

	if c.PostsPerPage < 1 {
		return fmt.Errorf("POSTS_PER_PAGE must be positive, got %d", c.PostsPerPage)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY must not be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

// CSRFKey возвращает 32-байтный ключ для CSRF-токенов, выведенный из SECRET_KEY.
func (c *Config) CSRFKey() []byte {
	sum := sha256.Sum256([]byte("csrf:" + c.SecretKey))
	return sum[:]
}
