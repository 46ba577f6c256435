package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"

	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/cache"
	"github.com/UkralStul/yatube/internal/dataloader"
)

// CSRFFieldName - имя скрытого поля формы с CSRF-токеном.
const CSRFFieldName = "csrfmiddlewaretoken"

// Routes собирает роутер со всеми страницами блога.
func (app *App) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(app.recoverPanic)
	if app.opts.CSRFEnabled {
		router.Use(csrf.Protect(app.opts.CSRFKey,
			csrf.FieldName(CSRFFieldName),
			csrf.CookieName("csrftoken"),
			csrf.Path("/"),
			csrf.Secure(app.opts.SecureCookies),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.ErrorHandler(http.HandlerFunc(app.csrfFailure)),
		))
	}
	router.Use(app.auth.Middleware)
	router.Use(func(next http.Handler) http.Handler {
		return dataloader.Middleware(app.store, next)
	})

	router.NotFound(app.notFound)
	router.MethodNotAllowed(app.methodNotAllowed)

	requireLogin := auth.RequireLogin(loginURL)

	// === Posts ===
	router.With(cache.Middleware(app.pages, cache.KeyByURLAndCookie(auth.SessionCookieName), app.log)).
		Get("/", app.index)
	router.Get("/group/{slug}/", app.groupPosts)
	router.Get("/profile/{username}/", app.profile)
	router.Get("/posts/{post_id}/", app.postDetail)
	router.Get("/posts/{post_id}/comments/live", app.liveComments)
	router.Get("/search/", app.search)

	router.Group(func(r chi.Router) {
		r.Use(requireLogin)
		r.Get("/create/", app.postCreate)
		r.Post("/create/", app.postCreate)
		r.Get("/posts/{post_id}/edit/", app.postEdit)
		r.Post("/posts/{post_id}/edit/", app.postEdit)
		r.Post("/posts/{post_id}/comment/", app.addComment)
		r.Get("/follow/", app.followIndex)
		r.Get("/profile/{username}/follow/", app.profileFollow)
		r.Get("/profile/{username}/unfollow/", app.profileUnfollow)
	})

	// === About ===
	router.Get("/about/author/", app.staticPage("about/author.html"))
	router.Get("/about/tech/", app.staticPage("about/tech.html"))

	// === Auth ===
	router.Route("/auth", func(r chi.Router) {
		r.Get("/signup/", app.signup)
		r.Post("/signup/", app.signup)
		r.Get("/login/", app.login)
		r.Post("/login/", app.login)
		r.Get("/logout/", app.logout)
		r.Post("/logout/", app.logout)
		r.With(requireLogin).Get("/password_change/", app.passwordChange)
		r.With(requireLogin).Post("/password_change/", app.passwordChange)
		r.With(requireLogin).Get("/password_change/done/", app.staticPage("users/password_change_done.html"))
		r.Get("/password_reset/", app.passwordReset)
		r.Post("/password_reset/", app.passwordReset)
		r.Get("/password_reset/done/", app.staticPage("users/password_reset_done.html"))
		r.Get("/reset/{uidb64}/{token}/", app.passwordResetConfirm)
		r.Post("/reset/{uidb64}/{token}/", app.passwordResetConfirm)
		r.Get("/reset/done/", app.staticPage("users/password_reset_complete.html"))
	})

	// === Media ===
	if app.opts.MediaRoot != "" && strings.HasPrefix(app.opts.MediaURL, "/") {
		prefix := strings.TrimRight(app.opts.MediaURL, "/")
		fileServer := http.StripPrefix(prefix, http.FileServer(http.Dir(app.opts.MediaRoot)))
		router.Get(prefix+"/*", func(w http.ResponseWriter, r *http.Request) {
			// Каталоги не листаются.
			if strings.HasSuffix(r.URL.Path, "/") {
				app.forbidden(w, r)
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	}

	app.routes = router
	return router
}

func (app *App) staticPage(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app.render(w, r, http.StatusOK, page, nil)
	}
}
