// Package web - HTML-интерфейс блога: маршруты, обработчики и шаблоны.
package web

import (
	"errors"
	"html/template"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/cache"
	"github.com/UkralStul/yatube/internal/live"
	"github.com/UkralStul/yatube/internal/mail"
	"github.com/UkralStul/yatube/internal/media"
	"github.com/UkralStul/yatube/internal/search"
	"github.com/UkralStul/yatube/internal/storage"
)

const (
	defaultPostsPerPage = 10
	defaultCacheTTL     = 20 * time.Second
	loginURL            = "/auth/login/"
)

// Options - настройки HTML-интерфейса.
type Options struct {
	PostsPerPage  int
	MediaURL      string
	MediaRoot     string // каталог для раздачи /media/, пустой - не раздавать
	SiteURL       string // для абсолютных ссылок в письмах
	CSRFKey       []byte
	CSRFEnabled   bool
	SecureCookies bool
	Debug         bool
}

// Deps - зависимости приложения.
type Deps struct {
	Store    storage.Storage
	Auth     *auth.Service
	Pages    cache.PageCache
	Media    media.Storage
	Searcher search.Searcher
	Live     *live.Observer
	Mailer   mail.Mailer
	Logger   *slog.Logger
}

// App держит зависимости, общие для всех обработчиков.
type App struct {
	store    storage.Storage
	auth     *auth.Service
	pages    cache.PageCache
	media    media.Storage
	searcher search.Searcher
	live     *live.Observer
	mailer   mail.Mailer
	log      *slog.Logger

	opts      Options
	templates map[string]*template.Template
	routes    chi.Routes
	now       func() time.Time
}

func New(deps Deps, opts Options) (*App, error) {
	if deps.Store == nil {
		return nil, errors.New("web: storage is required")
	}
	if deps.Auth == nil {
		return nil, errors.New("web: auth service is required")
	}
	if deps.Media == nil {
		return nil, errors.New("web: media storage is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Pages == nil {
		deps.Pages = cache.NewMemory(1024, defaultCacheTTL)
	}
	if deps.Searcher == nil {
		deps.Searcher = search.NewStorageSearcher(deps.Store)
	}
	if deps.Live == nil {
		deps.Live = live.NewObserver(deps.Logger)
	}
	if deps.Mailer == nil {
		deps.Mailer = mail.NewLogBackend(deps.Logger)
	}
	if opts.PostsPerPage <= 0 {
		opts.PostsPerPage = defaultPostsPerPage
	}
	if opts.MediaURL == "" {
		opts.MediaURL = "/media/"
	}

	app := &App{
		store:    deps.Store,
		auth:     deps.Auth,
		pages:    deps.Pages,
		media:    deps.Media,
		searcher: deps.Searcher,
		live:     deps.Live,
		mailer:   deps.Mailer,
		log:      deps.Logger,
		opts:     opts,
		now:      time.Now,
	}

	templates, err := app.parseTemplates()
	if err != nil {
		return nil, err
	}
	app.templates = templates
	return app, nil
}

// Pages возвращает кэш страниц, например для сброса из CLI или тестов.
func (app *App) Pages() cache.PageCache { return app.pages }
