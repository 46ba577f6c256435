package cache

import (
	"bytes"
	"log/slog"
	"net/http"
)

// KeyFunc строит ключ кэша для запроса.
type KeyFunc func(r *http.Request) string

// KeyByURLAndCookie учитывает адрес и cookie сессии: у каждого пользователя своя копия.
func KeyByURLAndCookie(cookieName string) KeyFunc {
	return func(r *http.Request) string {
		key := r.Method + " " + r.URL.RequestURI()
		if c, err := r.Cookie(cookieName); err == nil {
			key += " " + c.Value
		}
		return key
	}
}

type recorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

// Middleware отдает GET-страницы из кэша и сохраняет успешные ответы.
func Middleware(c PageCache, key KeyFunc, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			k := key(r)
			entry, ok, err := c.Get(r.Context(), k)
			if err != nil {
				log.Warn("page cache get failed", "key", k, "error", err)
			}
			if ok {
				entry.Write(w)
				return
			}

			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.status != http.StatusOK || r.Method != http.MethodGet {
				return
			}
			err = c.Set(r.Context(), k, &Entry{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.buf.Bytes(),
			})
			if err != nil {
				log.Warn("page cache set failed", "key", k, "error", err)
			}
		})
	}
}
