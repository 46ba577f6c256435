package web

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/forms"
	"github.com/UkralStul/yatube/internal/mail"
)

// === Signup & login ===

func (app *App) signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		app.render(w, r, http.StatusOK, "users/signup.html", &HTMLData{Form: forms.NewSignupForm()})
		return
	}

	form, err := forms.ParseSignupForm(r)
	if err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}
	valid, err := form.Validate(r.Context(), app.store)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if !valid {
		app.render(w, r, http.StatusOK, "users/signup.html", &HTMLData{Form: form})
		return
	}

	_, err = app.auth.Register(r.Context(), &domain.User{
		Username:  form.Username,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
	}, form.Password1)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (app *App) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		app.render(w, r, http.StatusOK, "users/login.html", &HTMLData{
			Form: forms.NewLoginForm(),
			Next: r.URL.Query().Get("next"),
		})
		return
	}

	form, err := forms.ParseLoginForm(r)
	if err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}
	next := r.PostFormValue("next")
	if next == "" {
		next = r.URL.Query().Get("next")
	}

	if form.Validate() {
		user, err := app.auth.Authenticate(r.Context(), form.Username, form.Password)
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			form.InvalidCredentials()
		case err != nil:
			app.serverError(w, r, err)
			return
		default:
			if err := app.auth.Login(r.Context(), w, user); err != nil {
				app.serverError(w, r, err)
				return
			}
			http.Redirect(w, r, auth.SafeNext(next, "/"), http.StatusFound)
			return
		}
	}
	app.render(w, r, http.StatusOK, "users/login.html", &HTMLData{Form: form, Next: next})
}

func (app *App) logout(w http.ResponseWriter, r *http.Request) {
	if err := app.auth.Logout(r.Context(), w, r); err != nil {
		app.serverError(w, r, err)
		return
	}
	// Страница выхода рендерится уже для анонима
	r = r.WithContext(auth.WithUser(r.Context(), nil))
	app.render(w, r, http.StatusOK, "users/logged_out.html", &HTMLData{})
}

// === Password change ===

func (app *App) passwordChange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		app.render(w, r, http.StatusOK, "users/password_change_form.html", &HTMLData{Form: forms.NewPasswordChangeForm()})
		return
	}

	form, err := forms.ParsePasswordChangeForm(r)
	if err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}
	if form.Validate() {
		user := auth.UserFrom(r.Context())
		err := app.auth.ChangePassword(r.Context(), user, form.OldPassword, form.NewPassword1)
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			form.WrongOldPassword()
		case err != nil:
			app.serverError(w, r, err)
			return
		default:
			// Смена пароля завершает все сессии, текущий браузер входит заново.
			if err := app.auth.Login(r.Context(), w, user); err != nil {
				app.serverError(w, r, err)
				return
			}
			http.Redirect(w, r, "/auth/password_change/done/", http.StatusFound)
			return
		}
	}
	app.render(w, r, http.StatusOK, "users/password_change_form.html", &HTMLData{Form: form})
}

// === Password reset ===

func (app *App) passwordReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		app.render(w, r, http.StatusOK, "users/password_reset_form.html", &HTMLData{Form: forms.NewPasswordResetForm()})
		return
	}

	form, err := forms.ParsePasswordResetForm(r)
	if err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}
	if !form.Validate() {
		app.render(w, r, http.StatusOK, "users/password_reset_form.html", &HTMLData{Form: form})
		return
	}

	links, err := app.auth.ResetLinks(r.Context(), form.Email)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	for _, link := range links {
		if err := app.sendResetEmail(r, link); err != nil {
			app.serverError(w, r, err)
			return
		}
	}
	http.Redirect(w, r, "/auth/password_reset/done/", http.StatusFound)
}

func (app *App) sendResetEmail(r *http.Request, link auth.ResetLink) error {
	var body bytes.Buffer
	err := resetEmail.Execute(&body, map[string]string{
		"ResetURL": app.siteURL(r) + "/auth/reset/" + link.UID + "/" + link.Token + "/",
		"Username": link.User.Username,
	})
	if err != nil {
		return err
	}
	return app.mailer.Send(r.Context(), mail.Message{
		From:    mail.DefaultFrom,
		To:      []string{link.User.Email},
		Subject: "Восстановление пароля на Yatube",
		Body:    body.String(),
	})
}

// siteURL возвращает адрес сайта из настроек или из заголовков запроса.
func (app *App) siteURL(r *http.Request) string {
	if app.opts.SiteURL != "" {
		return app.opts.SiteURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (app *App) passwordResetConfirm(w http.ResponseWriter, r *http.Request) {
	user, err := app.auth.ResetUser(r.Context(), chi.URLParam(r, "uidb64"), chi.URLParam(r, "token"))
	if errors.Is(err, auth.ErrInvalidToken) {
		app.render(w, r, http.StatusOK, "users/password_reset_confirm.html", &HTMLData{
			Form:       forms.NewSetPasswordForm(),
			ResetValid: false,
		})
		return
	}
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	if r.Method != http.MethodPost {
		app.render(w, r, http.StatusOK, "users/password_reset_confirm.html", &HTMLData{
			Form:       forms.NewSetPasswordForm(),
			ResetValid: true,
		})
		return
	}

	form, err := forms.ParseSetPasswordForm(r)
	if err != nil {
		app.clientError(w, http.StatusBadRequest)
		return
	}
	if !form.Validate() {
		app.render(w, r, http.StatusOK, "users/password_reset_confirm.html", &HTMLData{Form: form, ResetValid: true})
		return
	}
	if err := app.auth.SetPassword(r.Context(), user, form.NewPassword1); err != nil {
		app.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/auth/reset/done/", http.StatusFound)
}
