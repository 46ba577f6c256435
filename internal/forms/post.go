package forms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/media"
	"github.com/UkralStul/yatube/internal/storage"
)

// MaxUploadSize ограничивает размер тела запроса формы.
const MaxUploadSize = 10 << 20

// Upload - загруженный файл, уже прочитанный в память.
type Upload struct {
	Filename string
	Ext      string // расширение по фактическому формату картинки
	Data     []byte
}

// GroupGetter ищет группу по id.
type GroupGetter interface {
	GetGroupByID(ctx context.Context, id uint) (*domain.Group, error)
}

// PostForm - форма создания и редактирования поста.
type PostForm struct {
	Text       string
	Group      string // сырое значение select, пустое - без группы
	GroupID    *uint
	Image      *Upload
	ClearImage bool

	Errors Errors
}

// NewPostForm возвращает форму, заполненную данными существующего поста.
func NewPostForm(post *domain.Post) *PostForm {
	f := &PostForm{Errors: Errors{}}
	if post == nil {
		return f
	}
	f.Text = post.Text
	if post.GroupID != nil {
		f.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
		id := *post.GroupID
		f.GroupID = &id
	}
	return f
}

// ParsePostForm читает поля text, group, image и image-clear из запроса.
func ParsePostForm(r *http.Request) (*PostForm, error) {
	if err := parse(r); err != nil {
		return nil, fmt.Errorf("failed to parse post form: %w", err)
	}

	f := &PostForm{
		Text:       strings.TrimSpace(r.PostFormValue("text")),
		Group:      strings.TrimSpace(r.PostFormValue("group")),
		ClearImage: r.PostFormValue("image-clear") != "",
		Errors:     Errors{},
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		return nil, fmt.Errorf("failed to read image: %w", err)
	default:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		if len(data) > 0 {
			f.Image = &Upload{Filename: header.Filename, Data: data}
		}
	}
	return f, nil
}

// Validate проверяет форму. Группа должна существовать, картинка - быть gif, png или jpeg.
func (f *PostForm) Validate(ctx context.Context, groups GroupGetter) (bool, error) {
	required(f.Errors, "text", f.Text)

	if f.Group != "" {
		id, err := strconv.ParseUint(f.Group, 10, 64)
		if err != nil {
			f.Errors.Add("group", "Выберите корректный вариант.")
		} else {
			_, err := groups.GetGroupByID(ctx, uint(id))
			switch {
			case errors.Is(err, storage.ErrNotFound):
				f.Errors.Add("group", "Выберите корректный вариант.")
			case err != nil:
				return false, fmt.Errorf("failed to check group %d: %w", id, err)
			default:
				gid := uint(id)
				f.GroupID = &gid
			}
		}
	} else {
		f.GroupID = nil
	}

	if f.Image != nil {
		ext, err := media.DetectImage(f.Image.Data)
		if err != nil {
			f.Errors.Add("image", "Загрузите правильное изображение. Файл, который вы загрузили, поврежден или не является изображением.")
		} else {
			f.Image.Ext = ext
		}
	}

	return f.Errors.Valid(), nil
}

// CommentForm - форма комментария.
type CommentForm struct {
	Text   string
	Errors Errors
}

func NewCommentForm() *CommentForm {
	return &CommentForm{Errors: Errors{}}
}

func ParseCommentForm(r *http.Request) (*CommentForm, error) {
	if err := parse(r); err != nil {
		return nil, fmt.Errorf("failed to parse comment form: %w", err)
	}
	return &CommentForm{Text: strings.TrimSpace(r.PostFormValue("text")), Errors: Errors{}}, nil
}

func (f *CommentForm) Validate() bool {
	required(f.Errors, "text", f.Text)
	return f.Errors.Valid()
}
