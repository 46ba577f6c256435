package storage

import (
	"context"
	"errors"
	"time"

	"github.com/UkralStul/yatube/internal/domain"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrConflict   = errors.New("record already exists")
	ErrSelfFollow = errors.New("user cannot follow themselves")
)

// PaginationArgs - аргументы для пагинации.
type PaginationArgs struct {
	Limit  int
	Offset int
}

// PostFilter сужает выборку постов. Пустой фильтр означает все посты.
type PostFilter struct {
	AuthorID   *uint
	GroupID    *uint
	FollowerID *uint  // только посты авторов, на которых подписан пользователь
	Query      string // подстрока текста, без учёта регистра
	IDs        []uint
}

// Storage определяет контракт для хранилищ.
type Storage interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id uint) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUsersByEmail(ctx context.Context, email string) ([]*domain.User, error)
	SetUserPassword(ctx context.Context, userID uint, passwordHash string) error

	CreateGroup(ctx context.Context, group *domain.Group) (*domain.Group, error)
	GetGroupByID(ctx context.Context, id uint) (*domain.Group, error)
	GetGroupBySlug(ctx context.Context, slug string) (*domain.Group, error)
	ListGroups(ctx context.Context) ([]*domain.Group, error)
	// DeleteGroup удаляет группу, посты группы остаются без группы.
	DeleteGroup(ctx context.Context, id uint) error

	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	// UpdatePost меняет текст, группу и картинку. Автор и дата публикации не меняются.
	UpdatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	DeletePost(ctx context.Context, id uint) error
	GetPostByID(ctx context.Context, id uint) (*domain.Post, error)
	// ListPosts возвращает страницу постов от новых к старым и общее число подходящих постов.
	ListPosts(ctx context.Context, filter PostFilter, args PaginationArgs) ([]*domain.Post, int, error)

	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	GetCommentsByPostID(ctx context.Context, postID uint) ([]*domain.Comment, error)

	// Метод для Dataloader'а
	CountCommentsByPostIDs(ctx context.Context, postIDs []uint) (map[uint]int, error)

	// CreateFollow идемпотентна: повторная подписка возвращает created == false.
	CreateFollow(ctx context.Context, userID, authorID uint) (created bool, err error)
	DeleteFollow(ctx context.Context, userID, authorID uint) error
	IsFollowing(ctx context.Context, userID, authorID uint) (bool, error)
	CountFollows(ctx context.Context) (int, error)

	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteUserSessions(ctx context.Context, userID uint) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)

	Close() error
}
