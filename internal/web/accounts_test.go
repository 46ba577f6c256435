package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/domain"
)

func sessionFrom(rec *http.Response) *http.Cookie {
	for _, c := range rec.Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestSignupThenLogin(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.postForm(t, "/auth/signup/", url.Values{
		"first_name": {"Лев"},
		"last_name":  {"Толстой"},
		"username":   {"leo"},
		"email":      {"leo@example.com"},
		"password1":  {"war-and-peace"},
		"password2":  {"war-and-peace"},
	}, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	user, err := ta.store.GetUserByUsername(context.Background(), "leo")
	require.NoError(t, err)
	assert.Equal(t, "Лев Толстой", user.FullName())

	rec = ta.postForm(t, "/auth/login/", url.Values{
		"username": {"leo"},
		"password": {"war-and-peace"},
		"next":     {"/create/"},
	}, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/create/", rec.Header().Get("Location"))
	cookie := sessionFrom(rec.Result())
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	// С полученной cookie страница создания поста открывается
	req := httptest.NewRequest(http.MethodGet, "/create/", nil)
	req.AddCookie(cookie)
	rec = ta.do(t, req, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Пользователь: leo")
}

func TestSignup_Invalid(t *testing.T) {
	ta := newTestApp(t)
	ta.createUser(t, "leo")

	rec := ta.postForm(t, "/auth/signup/", url.Values{
		"username":  {"leo"},
		"password1": {"12345678"},
		"password2": {"12345678"},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Пользователь с таким именем уже существует.")
	assert.Contains(t, body, "Введённый пароль состоит только из цифр.")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ta := newTestApp(t)
	_, err := ta.auth.Register(context.Background(), &domain.User{Username: "leo"}, "war-and-peace")
	require.NoError(t, err)

	rec := ta.postForm(t, "/auth/login/", url.Values{"username": {"leo"}, "password": {"wrong-password"}}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Пожалуйста, введите правильные имя пользователя и пароль.")
	assert.Nil(t, sessionFrom(rec.Result()))
}

func TestLogin_UnsafeNextFallsBackToIndex(t *testing.T) {
	ta := newTestApp(t)
	_, err := ta.auth.Register(context.Background(), &domain.User{Username: "leo"}, "war-and-peace")
	require.NoError(t, err)

	rec := ta.postForm(t, "/auth/login/?next=https://evil.example/", url.Values{"username": {"leo"}, "password": {"war-and-peace"}}, nil)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestLoginPage_KeepsNext(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.get(t, "/auth/login/?next=/create/", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="next" value="/create/"`)
}

func TestLogout(t *testing.T) {
	ta := newTestApp(t)
	user := ta.createUser(t, "leo")
	cookie := ta.sessionCookie(t, user)

	req := httptest.NewRequest(http.MethodGet, "/auth/logout/", nil)
	req.AddCookie(cookie)
	rec := ta.do(t, req, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Вы вышли из своей учётной записи.")
	assert.NotContains(t, rec.Body.String(), "Пользователь: leo")

	_, err := ta.store.GetSession(context.Background(), cookie.Value)
	assert.Error(t, err)
}

func TestPasswordChange(t *testing.T) {
	ta := newTestApp(t)
	user, err := ta.auth.Register(context.Background(), &domain.User{Username: "leo"}, "war-and-peace")
	require.NoError(t, err)

	rec := ta.postForm(t, "/auth/password_change/", url.Values{
		"old_password":  {"wrong-password"},
		"new_password1": {"anna-karenina"},
		"new_password2": {"anna-karenina"},
	}, user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ваш старый пароль введен неправильно.")

	rec = ta.postForm(t, "/auth/password_change/", url.Values{
		"old_password":  {"war-and-peace"},
		"new_password1": {"anna-karenina"},
		"new_password2": {"anna-karenina"},
	}, user)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/password_change/done/", rec.Header().Get("Location"))

	_, err = ta.auth.Authenticate(context.Background(), "leo", "anna-karenina")
	assert.NoError(t, err)
}

func TestPasswordChange_EndsOtherSessions(t *testing.T) {
	ta := newTestApp(t)
	user, err := ta.auth.Register(context.Background(), &domain.User{Username: "leo"}, "war-and-peace")
	require.NoError(t, err)
	current := ta.sessionCookie(t, user)
	other := ta.sessionCookie(t, user)

	req := httptest.NewRequest(http.MethodPost, "/auth/password_change/", strings.NewReader(url.Values{
		"old_password":  {"war-and-peace"},
		"new_password1": {"anna-karenina"},
		"new_password2": {"anna-karenina"},
	}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(current)
	rec := ta.do(t, req, nil)
	require.Equal(t, http.StatusFound, rec.Code)

	renewed := sessionFrom(rec.Result())
	require.NotNil(t, renewed)
	assert.NotEqual(t, current.Value, renewed.Value)

	for _, c := range []*http.Cookie{current, other} {
		req := httptest.NewRequest(http.MethodGet, "/auth/password_change/", nil)
		req.AddCookie(c)
		rec := ta.do(t, req, nil)
		assert.Equal(t, http.StatusFound, rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/password_change/", nil)
	req.AddCookie(renewed)
	rec = ta.do(t, req, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPasswordReset(t *testing.T) {
	ta := newTestApp(t)
	user, err := ta.auth.Register(context.Background(), &domain.User{Username: "leo", Email: "leo@example.com"}, "war-and-peace")
	require.NoError(t, err)
	stolen := ta.sessionCookie(t, user)

	rec := ta.postForm(t, "/auth/password_reset/", url.Values{"email": {"leo@example.com"}}, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/password_reset/done/", rec.Header().Get("Location"))

	require.Len(t, ta.mail.sent, 1)
	msg := ta.mail.sent[0]
	assert.Equal(t, []string{"leo@example.com"}, msg.To)
	assert.Contains(t, msg.Body, "leo")

	var link string
	for _, field := range strings.Fields(msg.Body) {
		if strings.HasPrefix(field, "http://testserver/auth/reset/") {
			link = strings.TrimPrefix(field, "http://testserver")
		}
	}
	require.NotEmpty(t, link)

	rec = ta.get(t, link, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Введите новый пароль")

	rec = ta.postForm(t, link, url.Values{
		"new_password1": {"anna-karenina"},
		"new_password2": {"anna-karenina"},
	}, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/reset/done/", rec.Header().Get("Location"))

	_, err = ta.auth.Authenticate(context.Background(), "leo", "anna-karenina")
	require.NoError(t, err)

	// Сессии, открытые до сброса, больше не действуют
	req := httptest.NewRequest(http.MethodGet, "/follow/", nil)
	req.AddCookie(stolen)
	rec = ta.do(t, req, nil)
	assert.Equal(t, http.StatusFound, rec.Code)

	// Ссылка одноразовая: после смены пароля токен недействителен
	rec = ta.get(t, link, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reset-invalid")
}

func TestPasswordReset_UnknownEmail(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.postForm(t, "/auth/password_reset/", url.Values{"email": {"nobody@example.com"}}, nil)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/password_reset/done/", rec.Header().Get("Location"))
	assert.Empty(t, ta.mail.sent)
}

func TestCSRF_RejectsPostWithoutToken(t *testing.T) {
	ta := newTestApp(t, func(o *Options) { o.CSRFEnabled = true })

	rec := ta.postForm(t, "/auth/login/", url.Values{"username": {"leo"}, "password": {"x"}}, nil)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Custom CSRF check error. 403")
}

func TestCSRF_FormContainsToken(t *testing.T) {
	ta := newTestApp(t, func(o *Options) { o.CSRFEnabled = true })

	rec := ta.get(t, "/auth/login/", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="`+CSRFFieldName+`"`)
}
