package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/go-extras/go-kit/must"
	"github.com/gorilla/csrf"

	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/forms"
	"github.com/UkralStul/yatube/internal/media"
	"github.com/UkralStul/yatube/internal/paginator"
)

//go:embed templates
var embedded embed.FS

var templateFS = must.Must(fs.Sub(embedded, "templates"))

var resetEmail = texttemplate.Must(texttemplate.ParseFS(templateFS, "users/password_reset_email.txt"))

// HTMLData - данные для всех шаблонов. Каждая страница использует свою часть полей.
type HTMLData struct {
	Path        string
	Year        int
	CurrentUser *domain.User
	CSRFField   template.HTML

	Page          *paginator.Page[*domain.Post]
	CommentCounts map[uint]int
	Query         string

	Group      *domain.Group
	Author     *domain.User
	PostsCount int
	Following  bool
	ShowFollow bool

	Post        *domain.Post
	Comments    []*domain.Comment
	CommentForm *forms.CommentForm

	Groups   []*domain.Group
	PostForm *forms.PostForm
	IsEdit   bool

	Form       any
	Next       string
	ResetValid bool

	RequestPath string
}

// postCard - данные одной карточки поста в списке.
type postCard struct {
	Post           *domain.Post
	Comments       int
	ShowAuthorLink bool
	ShowGroupLink  bool
}

var monthsGenitive = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

func formatDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), monthsGenitive[t.Month()-1], t.Year())
}

// truncateWords оставляет первые n слов и добавляет многоточие, если текст длиннее.
func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ") + " …"
}

// linebreaksbr экранирует текст и заменяет переводы строк на <br>.
func linebreaksbr(s string) template.HTML {
	escaped := template.HTMLEscapeString(strings.ReplaceAll(s, "\r\n", "\n"))
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

// pageURL строит ссылку на страницу выдачи, сохраняя поисковый запрос.
func pageURL(number int, query string) string {
	v := url.Values{}
	if query != "" {
		v.Set("q", query)
	}
	v.Set("page", strconv.Itoa(number))
	return "?" + v.Encode()
}

func (app *App) funcs() template.FuncMap {
	return template.FuncMap{
		"date":          formatDate,
		"truncateWords": truncateWords,
		"linebreaksbr":  linebreaksbr,
		"pageURL":       pageURL,
		"mediaURL": func(stored string) string {
			return media.URL(app.opts.MediaURL, stored)
		},
		"card": func(data *HTMLData, post *domain.Post) postCard {
			return postCard{
				Post:           post,
				Comments:       data.CommentCounts[post.ID],
				ShowAuthorLink: data.Author == nil,
				ShowGroupLink:  data.Group == nil,
			}
		},
	}
}

// parseTemplates собирает для каждой страницы набор из base.html, includes и самой страницы.
func (app *App) parseTemplates() (map[string]*template.Template, error) {
	pages, err := fs.Glob(templateFS, "*/*.html")
	if err != nil {
		return nil, err
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		if strings.HasPrefix(page, "includes/") {
			continue
		}
		ts, err := template.New(page).Funcs(app.funcs()).ParseFS(templateFS, "base.html", "includes/*.html", page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		templates[page] = ts
	}
	return templates, nil
}

// execute рендерит страницу в буфер и только потом пишет ответ.
func (app *App) execute(w http.ResponseWriter, r *http.Request, status int, page string, data *HTMLData) error {
	ts, ok := app.templates[page]
	if !ok {
		return fmt.Errorf("template %s does not exist", page)
	}
	if data == nil {
		data = &HTMLData{}
	}

	data.Path = r.URL.Path
	data.Year = app.now().Year()
	if data.CurrentUser == nil {
		data.CurrentUser = auth.UserFrom(r.Context())
	}
	data.CSRFField = csrf.TemplateField(r)

	buf := new(bytes.Buffer)
	if err := ts.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

func (app *App) render(w http.ResponseWriter, r *http.Request, status int, page string, data *HTMLData) {
	if err := app.execute(w, r, status, page, data); err != nil {
		app.serverError(w, r, err)
	}
}
