package web

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/cache"
	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/live"
	"github.com/UkralStul/yatube/internal/mail"
	"github.com/UkralStul/yatube/internal/media"
	"github.com/UkralStul/yatube/internal/storage"
	"github.com/UkralStul/yatube/internal/storage/inmemory"
)

// smallGIF - картинка 2x1 в формате GIF.
var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

type mailRecorder struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *mailRecorder) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

type testApp struct {
	app     *App
	handler http.Handler
	store   *inmemory.Store
	auth    *auth.Service
	pages   *cache.Memory
	live    *live.Observer
	mail    *mailRecorder
	media   *media.Filesystem
}

func newTestApp(t *testing.T, configure ...func(*Options)) *testApp {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := inmemory.New()
	files, err := media.NewFilesystem(t.TempDir())
	require.NoError(t, err)

	ta := &testApp{
		store: store,
		auth:  auth.NewService(store, auth.Options{Secret: []byte("test-secret")}, log),
		pages: cache.NewMemory(16, time.Minute),
		live:  live.NewObserver(log),
		mail:  &mailRecorder{},
		media: files,
	}
	opts := Options{
		PostsPerPage: 10,
		MediaURL:     "/media/",
		MediaRoot:    files.Root(),
		SiteURL:      "http://testserver",
		CSRFKey:      []byte("0123456789abcdef0123456789abcdef"),
	}
	for _, fn := range configure {
		fn(&opts)
	}

	ta.app, err = New(Deps{
		Store:  store,
		Auth:   ta.auth,
		Pages:  ta.pages,
		Media:  files,
		Live:   ta.live,
		Mailer: ta.mail,
		Logger: log,
	}, opts)
	require.NoError(t, err)
	ta.handler = ta.app.Routes()
	return ta
}

func (ta *testApp) createUser(t *testing.T, username string) *domain.User {
	t.Helper()
	user, err := ta.store.CreateUser(context.Background(), &domain.User{Username: username, PasswordHash: "x"})
	require.NoError(t, err)
	return user
}

func (ta *testApp) createPost(t *testing.T, author *domain.User, text string, group *domain.Group) *domain.Post {
	t.Helper()
	post := &domain.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		post.GroupID = &group.ID
	}
	created, err := ta.store.CreatePost(context.Background(), post)
	require.NoError(t, err)
	return created
}

func (ta *testApp) countPosts(t *testing.T) int {
	t.Helper()
	_, total, err := ta.store.ListPosts(context.Background(), storage.PostFilter{}, storage.PaginationArgs{Limit: 1})
	require.NoError(t, err)
	return total
}

// sessionCookie логинит пользователя и возвращает cookie его сессии.
func (ta *testApp) sessionCookie(t *testing.T, user *domain.User) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, ta.auth.Login(context.Background(), rec, user))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func (ta *testApp) do(t *testing.T, req *http.Request, user *domain.User) *httptest.ResponseRecorder {
	t.Helper()
	if user != nil {
		req.AddCookie(ta.sessionCookie(t, user))
	}
	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	return rec
}

func (ta *testApp) get(t *testing.T, target string, user *domain.User) *httptest.ResponseRecorder {
	t.Helper()
	return ta.do(t, httptest.NewRequest(http.MethodGet, target, nil), user)
}

func (ta *testApp) postForm(t *testing.T, target string, values url.Values, user *domain.User) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return ta.do(t, req, user)
}

func multipartRequest(t *testing.T, target string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "small.gif")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func countCards(body string) int {
	return strings.Count(body, `<article class="post"`)
}
