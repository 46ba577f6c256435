package web

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
)

func (app *App) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.log.Error("internal server error",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
		"stack", string(debug.Stack()),
	)
	app.errorPage(w, r, http.StatusInternalServerError, "core/500.html", nil)
}

func (app *App) clientError(w http.ResponseWriter, status int) {
	http.Error(w, http.StatusText(status), status)
}

// notFound отдает страницу 404. Для адреса без завершающего слэша,
// который существует со слэшем, делает постоянный редирект.
func (app *App) notFound(w http.ResponseWriter, r *http.Request) {
	if path := r.URL.Path; (r.Method == http.MethodGet || r.Method == http.MethodHead) &&
		!strings.HasSuffix(path, "/") && app.routes != nil {
		if app.routes.Match(chi.NewRouteContext(), r.Method, path+"/") {
			target := path + "/"
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusMovedPermanently)
			return
		}
	}
	app.errorPage(w, r, http.StatusNotFound, "core/404.html", &HTMLData{RequestPath: r.URL.Path})
}

func (app *App) forbidden(w http.ResponseWriter, r *http.Request) {
	app.errorPage(w, r, http.StatusForbidden, "core/403.html", nil)
}

func (app *App) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	app.clientError(w, http.StatusMethodNotAllowed)
}

func (app *App) csrfFailure(w http.ResponseWriter, r *http.Request) {
	app.log.Warn("csrf check failed", "path", r.URL.Path, "reason", csrf.FailureReason(r))
	app.errorPage(w, r, http.StatusForbidden, "core/403csrf.html", nil)
}

// errorPage рендерит страницу ошибки, а если не вышло - отдает простой текст.
func (app *App) errorPage(w http.ResponseWriter, r *http.Request, status int, page string, data *HTMLData) {
	if err := app.execute(w, r, status, page, data); err != nil {
		app.log.Error("failed to render error page", "page", page, "error", err)
		app.clientError(w, status)
	}
}

// recoverPanic превращает панику обработчика в страницу 500.
func (app *App) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				w.Header().Set("Connection", "close")
				app.serverError(w, r, fmt.Errorf("panic: %v", rvr))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
