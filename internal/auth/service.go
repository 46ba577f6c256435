// Package auth отвечает за пароли, серверные сессии и ссылки сброса пароля.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// SessionCookieName - имя cookie с токеном сессии.
const SessionCookieName = "sessionid"

// DefaultResetTimeout - срок жизни ссылки сброса пароля.
const DefaultResetTimeout = 3 * 24 * time.Hour

// Store - часть хранилища, нужная подсистеме авторизации.
type Store interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id uint) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUsersByEmail(ctx context.Context, email string) ([]*domain.User, error)
	SetUserPassword(ctx context.Context, userID uint, passwordHash string) error

	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteUserSessions(ctx context.Context, userID uint) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

// Options - настройки сервиса.
type Options struct {
	Secret        []byte
	SessionTTL    time.Duration
	ResetTimeout  time.Duration
	SecureCookies bool
}

// Service объединяет регистрацию, вход и сессии.
type Service struct {
	store Store
	opts  Options
	log   *slog.Logger
	now   func() time.Time
}

func NewService(store Store, opts Options, log *slog.Logger) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 14 * 24 * time.Hour
	}
	if opts.ResetTimeout <= 0 {
		opts.ResetTimeout = DefaultResetTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store: store,
		opts:  opts,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// HashPassword возвращает bcrypt-хэш пароля.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword сравнивает пароль с хэшем.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// === Users ===

// Register создает пользователя с заданным паролем.
func (s *Service) Register(ctx context.Context, user *domain.User, password string) (*domain.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	created, err := s.store.CreateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to register user %q: %w", user.Username, err)
	}
	s.log.Info("user registered", "user_id", created.ID, "username", created.Username)
	return created, nil
}

// Authenticate проверяет имя и пароль.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		// Хэшируем впустую, чтобы время ответа не выдавало существование пользователя
		_, _ = HashPassword(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %q: %w", username, err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ChangePassword меняет пароль после проверки старого.
func (s *Service) ChangePassword(ctx context.Context, user *domain.User, oldPassword, newPassword string) error {
	if !CheckPassword(user.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}
	return s.SetPassword(ctx, user, newPassword)
}

// SetPassword устанавливает новый пароль без проверки старого и завершает
// все сессии пользователя.
func (s *Service) SetPassword(ctx context.Context, user *domain.User, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.SetUserPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to set password for user %d: %w", user.ID, err)
	}
	user.PasswordHash = hash
	if err := s.store.DeleteUserSessions(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete sessions of user %d: %w", user.ID, err)
	}
	s.log.Info("password changed", "user_id", user.ID)
	return nil
}

// === Sessions ===

// Login создает сессию и выставляет cookie.
func (s *Service) Login(ctx context.Context, w http.ResponseWriter, user *domain.User) error {
	session := &domain.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.opts.SessionTTL),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   int(s.opts.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	s.log.Info("user logged in", "user_id", user.ID)
	return nil
}

// Logout удаляет сессию запроса и очищает cookie.
func (s *Service) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if token := sessionToken(r); token != "" {
		if err := s.store.DeleteSession(ctx, token); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// UserFromRequest возвращает пользователя по cookie сессии или nil для анонима.
func (s *Service) UserFromRequest(r *http.Request) (*domain.User, error) {
	token := sessionToken(r)
	if token == "" {
		return nil, nil
	}

	ctx := r.Context()
	session, err := s.store.GetSession(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.Expired(s.now()) {
		_ = s.store.DeleteSession(ctx, token)
		return nil, nil
	}

	user, err := s.store.GetUserByID(ctx, session.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}
	return user, nil
}

func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// CleanupSessions удаляет просроченные сессии.
func (s *Service) CleanupSessions(ctx context.Context) (int, error) {
	removed, err := s.store.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return removed, nil
}

// StartCleanup чистит сессии сразу и затем раз в interval, пока жив ctx.
func (s *Service) StartCleanup(ctx context.Context, interval time.Duration) {
	run := func(kind string) {
		removed, err := s.CleanupSessions(ctx)
		if err != nil {
			s.log.Error("session cleanup failed", "kind", kind, "error", err)
			return
		}
		s.log.Debug("session cleanup completed", "kind", kind, "removed", removed)
	}

	go func() {
		run("initial")

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run("scheduled")
			}
		}
	}()
}
