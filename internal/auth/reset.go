package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
)

const resetTokenSalt = "yatube.auth.password-reset"

// EncodeUID кодирует id пользователя для ссылки сброса.
func EncodeUID(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

func DecodeUID(uidb64 string) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uidb64)
	if err != nil {
		return 0, fmt.Errorf("failed to decode uid: %w", err)
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse uid: %w", err)
	}
	return uint(id), nil
}

// MakeResetToken создает токен вида "<время base36>-<hmac>".
// Токен перестает действовать после смены пароля.
func (s *Service) MakeResetToken(user *domain.User) string {
	return s.resetToken(user, s.now().Unix())
}

func (s *Service) resetToken(user *domain.User, ts int64) string {
	tsb36 := strconv.FormatInt(ts, 36)
	mac := hmac.New(sha256.New, s.opts.Secret)
	fmt.Fprintf(mac, "%s|%d|%s|%s", resetTokenSalt, user.ID, user.PasswordHash, tsb36)
	return tsb36 + "-" + hex.EncodeToString(mac.Sum(nil))[:32]
}

// CheckResetToken проверяет подпись и срок жизни токена.
func (s *Service) CheckResetToken(user *domain.User, token string) bool {
	tsb36, _, ok := strings.Cut(token, "-")
	if !ok {
		return false
	}
	ts, err := strconv.ParseInt(tsb36, 36, 64)
	if err != nil {
		return false
	}
	if !hmac.Equal([]byte(s.resetToken(user, ts)), []byte(token)) {
		return false
	}
	age := s.now().Sub(time.Unix(ts, 0))
	return age >= 0 && age <= s.opts.ResetTimeout
}

// ResetUser находит пользователя по uidb64 и проверяет токен.
func (s *Service) ResetUser(ctx context.Context, uidb64, token string) (*domain.User, error) {
	id, err := DecodeUID(uidb64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.store.GetUserByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	if !s.CheckResetToken(user, token) {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// ResetLink - данные письма сброса для одного пользователя.
type ResetLink struct {
	User  *domain.User
	UID   string
	Token string
}

// ResetLinks готовит ссылки сброса для всех пользователей с этим email.
func (s *Service) ResetLinks(ctx context.Context, email string) ([]ResetLink, error) {
	users, err := s.store.GetUsersByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find users by email: %w", err)
	}
	links := make([]ResetLink, 0, len(users))
	for _, u := range users {
		links = append(links, ResetLink{User: u, UID: EncodeUID(u.ID), Token: s.MakeResetToken(u)})
	}
	return links, nil
}
