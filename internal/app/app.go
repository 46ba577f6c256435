// Package app собирает зависимости Yatube по конфигурации.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gorm.io/gorm/logger"

	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/cache"
	"github.com/UkralStul/yatube/internal/config"
	"github.com/UkralStul/yatube/internal/live"
	"github.com/UkralStul/yatube/internal/mail"
	"github.com/UkralStul/yatube/internal/media"
	"github.com/UkralStul/yatube/internal/search"
	"github.com/UkralStul/yatube/internal/storage"
	"github.com/UkralStul/yatube/internal/storage/gormstore"
	"github.com/UkralStul/yatube/internal/storage/inmemory"
	"github.com/UkralStul/yatube/internal/web"
)

const startupTimeout = 10 * time.Second

// Application - собранное приложение.
type Application struct {
	Config   *config.Config
	Log      *slog.Logger
	Store    storage.Storage
	Auth     *auth.Service
	Pages    cache.PageCache
	Media    media.Storage
	Searcher search.Searcher
	Live     *live.Observer
	Mailer   mail.Mailer
	Web      *web.App

	closers []func() error
}

// NewLogger создает текстовый slog-логгер, в режиме отладки с уровнем Debug.
func NewLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// Initialize подключает хранилище, кэш, медиа, поиск и почту и собирает веб-приложение.
func Initialize(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Application, error) {
	a := &Application{Config: cfg, Log: log}

	store, err := OpenStorage(cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	if a.Pages, err = a.openPageCache(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if a.Media, err = OpenMedia(cfg); err != nil {
		a.Close()
		return nil, err
	}
	if a.Searcher, err = OpenSearcher(ctx, cfg, store, log); err != nil {
		a.Close()
		return nil, err
	}
	if a.Mailer, err = OpenMailer(cfg, log); err != nil {
		a.Close()
		return nil, err
	}

	a.Auth = auth.NewService(store, auth.Options{
		Secret:        []byte(cfg.SecretKey),
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: cfg.SecureCookies,
	}, log)
	a.Live = live.NewObserver(log)
	a.closers = append(a.closers, func() error {
		a.Live.Close()
		return nil
	})

	a.Web, err = web.New(web.Deps{
		Store:    store,
		Auth:     a.Auth,
		Pages:    a.Pages,
		Media:    a.Media,
		Searcher: a.Searcher,
		Live:     a.Live,
		Mailer:   a.Mailer,
		Logger:   log,
	}, web.Options{
		PostsPerPage:  cfg.PostsPerPage,
		MediaURL:      cfg.MediaURL,
		MediaRoot:     cfg.MediaRoot,
		SiteURL:       cfg.SiteURL,
		CSRFKey:       cfg.CSRFKey(),
		CSRFEnabled:   cfg.CSRFEnabled,
		SecureCookies: cfg.SecureCookies,
		Debug:         cfg.Debug,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build web app: %w", err)
	}
	return a, nil
}

// Close освобождает ресурсы в обратном порядке.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Error("close error", "error", err)
		}
	}
	a.closers = nil
}

// OpenStorage открывает хранилище, выбранное в STORAGE.
func OpenStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.Storage == config.StorageMemory {
		return inmemory.New(), nil
	}

	level := logger.Warn
	if cfg.Debug {
		level = logger.Info
	}
	store, err := gormstore.Open(cfg.Storage, cfg.DatabaseURL, level)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage, err)
	}
	return store, nil
}

func (a *Application) openPageCache(ctx context.Context) (cache.PageCache, error) {
	cfg := a.Config
	if cfg.CacheBackend != config.CacheRedis {
		return cache.NewMemory(cfg.CacheSize, cfg.CacheTTL), nil
	}

	r := cache.NewRedis(cache.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.CacheTTL,
	})
	pingCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	a.closers = append(a.closers, r.Close)
	a.Log.Info("page cache backend is redis", "addr", cfg.RedisAddr)
	return r, nil
}

// OpenPageCache возвращает кэш страниц для команд CLI. Вызывающий закрывает его через close.
func OpenPageCache(ctx context.Context, cfg *config.Config) (pages cache.PageCache, closeFn func() error, err error) {
	a := &Application{Config: cfg, Log: slog.Default()}
	pages, err = a.openPageCache(ctx)
	if err != nil {
		return nil, nil, err
	}
	return pages, func() error {
		a.Close()
		return nil
	}, nil
}

// OpenMedia выбирает Cloudinary, если задан CLOUDINARY_URL, иначе локальный каталог.
func OpenMedia(cfg *config.Config) (media.Storage, error) {
	if cfg.CloudinaryURL != "" {
		return media.NewCloudinary(cfg.CloudinaryURL)
	}
	return media.NewFilesystem(cfg.MediaRoot)
}

// OpenSearcher подключает Elasticsearch, если задан ELASTICSEARCH_ADDR, иначе ищет по хранилищу.
func OpenSearcher(ctx context.Context, cfg *config.Config, store storage.Storage, log *slog.Logger) (search.Searcher, error) {
	if cfg.ElasticAddr == "" {
		return search.NewStorageSearcher(store), nil
	}

	es, err := search.NewElastic(search.ElasticOptions{
		Addr:     cfg.ElasticAddr,
		Username: cfg.ElasticUsername,
		Password: cfg.ElasticPassword,
		Index:    cfg.ElasticIndex,
	}, store)
	if err != nil {
		return nil, err
	}
	ensureCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if err := es.EnsureIndex(ensureCtx); err != nil {
		return nil, fmt.Errorf("failed to ensure search index: %w", err)
	}
	log.Info("search backend is elasticsearch", "addr", cfg.ElasticAddr, "index", es.IndexName)
	return es, nil
}

// OpenMailer сохраняет письма в EMAIL_FILE_PATH или, если путь пуст, пишет их в лог.
func OpenMailer(cfg *config.Config, log *slog.Logger) (mail.Mailer, error) {
	if cfg.EmailFilePath == "" {
		return mail.NewLogBackend(log), nil
	}
	return mail.NewFileBackend(cfg.EmailFilePath, log)
}
