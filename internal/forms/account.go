package forms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
)

const (
	usernameMaxLength = 150
	passwordMinLength = 8
)

var usernameRe = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// UserGetter ищет пользователя по имени.
type UserGetter interface {
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// NormalizeUsername приводит имя к форме NFKC, как при регистрации.
func NormalizeUsername(username string) string {
	return norm.NFKC.String(strings.TrimSpace(username))
}

func validateUsername(errs Errors, username string) {
	switch {
	case username == "":
		errs.Add("username", msgRequired)
	case utf8.RuneCountInString(username) > usernameMaxLength:
		errs.Add("username", fmt.Sprintf("Убедитесь, что это значение содержит не более %d символов.", usernameMaxLength))
	case !usernameRe.MatchString(username):
		errs.Add("username", "Введите правильное имя пользователя. Оно может содержать только буквы, цифры и знаки @/./+/-/_.")
	}
}

// validatePassword проверяет пару паролей: совпадение, длину и не только цифры.
func validatePassword(errs Errors, field1, field2, password1, password2 string) {
	if password1 == "" {
		errs.Add(field1, msgRequired)
	}
	if password2 == "" {
		errs.Add(field2, msgRequired)
	}
	if password1 == "" || password2 == "" {
		return
	}
	if password1 != password2 {
		errs.Add(field2, "Введенные пароли не совпадают.")
		return
	}
	if utf8.RuneCountInString(password2) < passwordMinLength {
		errs.Add(field2, fmt.Sprintf("Введённый пароль слишком короткий. Он должен содержать как минимум %d символов.", passwordMinLength))
	}
	if isNumeric(password2) {
		errs.Add(field2, "Введённый пароль состоит только из цифр.")
	}
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func validateEmail(errs Errors, email string, isRequired bool) {
	if email == "" {
		if isRequired {
			errs.Add("email", msgRequired)
		}
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		errs.Add("email", "Введите правильный адрес электронной почты.")
	}
}

// === Signup ===

// SignupForm - форма регистрации.
type SignupForm struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password1 string
	Password2 string

	Errors Errors
}

func NewSignupForm() *SignupForm { return &SignupForm{Errors: Errors{}} }

func ParseSignupForm(r *http.Request) (*SignupForm, error) {
	if err := parse(r); err != nil {
		return nil, fmt.Errorf("failed to parse signup form: %w", err)
	}
	return &SignupForm{
		FirstName: strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:  strings.TrimSpace(r.PostFormValue("last_name")),
		Username:  NormalizeUsername(r.PostFormValue("username")),
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		Password1: r.PostFormValue("password1"),
		Password2: r.PostFormValue("password2"),
		Errors:    Errors{},
	}, nil
}

// Validate проверяет поля и уникальность имени пользователя.
func (f *SignupForm) Validate(ctx context.Context, users UserGetter) (bool, error) {
	validateUsername(f.Errors, f.Username)
	if !f.Errors.Has("username") {
		_, err := users.GetUserByUsername(ctx, f.Username)
		switch {
		case err == nil:
			f.Errors.Add("username", "Пользователь с таким именем уже существует.")
		case !errors.Is(err, storage.ErrNotFound):
			return false, fmt.Errorf("failed to check username: %w", err)
		}
	}
	validateEmail(f.Errors, f.Email, false)
	validatePassword(f.Errors, "password1", "password2", f.Password1, f.Password2)
	return f.Errors.Valid(), nil
}

// === Login ===

// LoginForm - форма входа. Проверку пароля делает auth.Service.
type LoginForm struct {
	Username string
	Password string

	Errors Errors
}

func NewLoginForm() *LoginForm { return &LoginForm{Errors: Errors{}} }

func ParseLoginForm(r *http.Request) (*LoginForm, error) {
	if err := parse(r); err != nil {
		return nil, fmt.Errorf("failed to parse login form: %w", err)
	}
	return &LoginForm{
		Username: NormalizeUsername(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
		Errors:   Errors{},
	}, nil
}

func (f *LoginForm) Validate() bool {
	required(f.Errors, "username", f.Username)
	if f.Password == "" {
		f.Errors.Add("password", msgRequired)
	}
	return f.Errors.Valid()
}

// InvalidCredentials добавляет общую ошибку неверного логина.
func (f *LoginForm) InvalidCredentials() {
	f.Errors.Add(NonField, "Пожалуйста, введите правильные имя пользователя и пароль. Оба поля могут быть чувствительны к регистру.")
}

// === Password change ===

type PasswordChangeForm struct {
	OldPassword  string
	NewPassword1 string
	NewPassword2 string

	Errors Errors
}

func NewPasswordChangeForm() *PasswordChangeForm { return &PasswordChangeForm{Errors: Errors{}} }

func ParsePasswordChangeForm(r *http.Request) (*PasswordChangeForm, error) {
	if err := parse(r); err != nil {
		return nil, fmt.Errorf("failed to parse password change form: %w", err)
	}
	return &PasswordChangeForm{
		OldPassword:  r.PostFormValue("old_password"),
		NewPassword1: r.PostFormValue("new_password1"),
		NewPassword2: r.PostFormValue("new_password2"),
		Errors:       Errors{},
	}, nil
}

func (f *PasswordChangeForm) Validate() bool {
	if f.OldPassword == "" {
		f.Errors.Add("old_password", msgRequired)
	}
	validatePassword(f.Errors, "new_password1", "new_password2", f.NewPassword1, f.NewPassword2)
	return f.Errors.Valid()
}

// WrongOldPassword отмечает неверный текущий пароль.
func (f *PasswordChangeForm) WrongOldPassword() {
	f.Errors.Add("old_password", "Ваш старый пароль введен неправильно. Пожалуйста, введите его снова.")
}

// === Password reset ===

type PasswordResetForm struct {
	Email string

	Errors Errors
}

func NewPasswordResetForm() *PasswordResetForm { return &PasswordResetForm{Errors: Errors{}} }

func ParsePasswordResetForm(r *http.Request) (*PasswordResetForm, error) {
	if err := parse(r); err != nil {
		return nil, fmt.Errorf("failed to parse password reset form: %w", err)
	}
	return &PasswordResetForm{Email: strings.TrimSpace(r.PostFormValue("email")), Errors: Errors{}}, nil
}

func (f *PasswordResetForm) Validate() bool {
	validateEmail(f.Errors, f.Email, true)
	return f.Errors.Valid()
}

// SetPasswordForm - новый пароль по ссылке сброса.
type SetPasswordForm struct {
	NewPassword1 string
	NewPassword2 string

	Errors Errors
}

func NewSetPasswordForm() *SetPasswordForm { return &SetPasswordForm{Errors: Errors{}} }

func ParseSetPasswordForm(r *http.Request) (*SetPasswordForm, error) {
	if err := parse(r); err != nil {
		return nil, fmt.Errorf("failed to parse set password form: %w", err)
	}
	return &SetPasswordForm{
		NewPassword1: r.PostFormValue("new_password1"),
		NewPassword2: r.PostFormValue("new_password2"),
		Errors:       Errors{},
	}, nil
}

func (f *SetPasswordForm) Validate() bool {
	validatePassword(f.Errors, "new_password1", "new_password2", f.NewPassword1, f.NewPassword2)
	return f.Errors.Valid()
}
