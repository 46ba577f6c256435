// Package media хранит загруженные картинки постов.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/google/uuid"
)

// ErrNotImage - файл не является картинкой поддерживаемого формата.
var ErrNotImage = errors.New("file is not a supported image")

// PostsDir - каталог картинок постов.
const PostsDir = "posts"

var extensions = map[string]string{
	"gif":  ".gif",
	"png":  ".png",
	"jpeg": ".jpg",
}

// Storage сохраняет и удаляет файлы.
type Storage interface {
	// Save сохраняет data под именем name и возвращает имя для поля Post.Image.
	Save(ctx context.Context, name string, data []byte) (string, error)
	Delete(ctx context.Context, stored string) error
}

// DetectImage возвращает расширение файла по фактическому формату картинки.
func DetectImage(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	ext, ok := extensions[format]
	if !ok {
		return "", fmt.Errorf("%w: format %q", ErrNotImage, format)
	}
	return ext, nil
}

// NewName генерирует уникальное имя вида posts/<uuid><ext>.
func NewName(ext string) string {
	return PostsDir + "/" + uuid.NewString() + ext
}

// SaveImage проверяет картинку и сохраняет ее под новым именем.
func SaveImage(ctx context.Context, s Storage, data []byte) (string, error) {
	ext, err := DetectImage(data)
	if err != nil {
		return "", err
	}
	return s.Save(ctx, NewName(ext), data)
}

// URL возвращает адрес картинки. Абсолютные адреса (Cloudinary) не меняются.
func URL(baseURL, stored string) string {
	if stored == "" {
		return ""
	}
	if strings.HasPrefix(stored, "http://") || strings.HasPrefix(stored, "https://") {
		return stored
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(stored, "/")
}
