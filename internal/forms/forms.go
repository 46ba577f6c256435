// Package forms разбирает и проверяет данные HTML-форм блога.
package forms

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrTooLarge - тело запроса превышает MaxUploadSize.
var ErrTooLarge = errors.New("request body too large")

// NonField - ключ для ошибок, не относящихся к конкретному полю.
const NonField = "__all__"

const msgRequired = "Обязательное поле."

// Errors хранит ошибки по именам полей.
type Errors map[string][]string

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Get возвращает первую ошибку поля или пустую строку.
func (e Errors) Get(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (e Errors) Has(field string) bool { return len(e[field]) > 0 }

func (e Errors) Valid() bool { return len(e) == 0 }

// parse разбирает тело запроса не длиннее MaxUploadSize.
func parse(r *http.Request) error {
	if r.Body != nil {
		r.Body = http.MaxBytesReader(nil, r.Body, MaxUploadSize)
	}

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(MaxUploadSize)
	} else {
		err = r.ParseForm()
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, tooLarge.Limit)
	}
	return err
}

func required(errs Errors, field, value string) {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, msgRequired)
	}
}
