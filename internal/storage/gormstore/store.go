package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
)

// Store реализует интерфейс Storage поверх GORM (PostgreSQL, MySQL или SQLite).
type Store struct {
	db *gorm.DB
}

// Open подключается к базе выбранного драйвера и выполняет миграцию схемы.
// Для MySQL в DSN нужен parseTime=true.
func Open(driver, dsn string, level logger.LogLevel) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if driver == "sqlite" {
		// SQLite не любит конкурентную запись из нескольких соединений
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
	}

	return New(db)
}

// New оборачивает готовое подключение и выполняет миграцию схемы.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Group{},
		&domain.Post{},
		&domain.Comment{},
		&domain.Follow{},
		&domain.Session{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate приводит ошибки GORM к ошибкам пакета storage.
func translate(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, storage.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func exists(tx *gorm.DB, model any, query string, args ...any) (bool, error) {
	var n int64
	if err := tx.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	tx := s.db.WithContext(ctx)
	taken, err := exists(tx, &domain.User{}, "username = ?", user.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("username %q: %w", user.Username, storage.ErrConflict)
	}

	created := *user
	created.ID = 0
	if err := tx.Create(&created).Error; err != nil {
		return nil, translate(err, "create user %q", user.Username)
	}
	return &created, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, "user with id %d", id)
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err, "user %q", username)
	}
	return &user, nil
}

func (s *Store) GetUsersByEmail(ctx context.Context, email string) ([]*domain.User, error) {
	users := make([]*domain.User, 0)
	err := s.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		Order("id").
		Find(&users).Error
	return users, err
}

func (s *Store) SetUserPassword(ctx context.Context, userID uint, passwordHash string) error {
	res := s.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Update("password_hash", passwordHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with id %d: %w", userID, storage.ErrNotFound)
	}
	return nil
}

// === Group Methods ===

func (s *Store) CreateGroup(ctx context.Context, group *domain.Group) (*domain.Group, error) {
	tx := s.db.WithContext(ctx)
	taken, err := exists(tx, &domain.Group{}, "slug = ?", group.Slug)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("group slug %q: %w", group.Slug, storage.ErrConflict)
	}

	created := *group
	created.ID = 0
	if err := tx.Create(&created).Error; err != nil {
		return nil, translate(err, "create group %q", group.Slug)
	}
	return &created, nil
}

func (s *Store) GetGroupByID(ctx context.Context, id uint) (*domain.Group, error) {
	var group domain.Group
	if err := s.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, translate(err, "group with id %d", id)
	}
	return &group, nil
}

func (s *Store) GetGroupBySlug(ctx context.Context, slug string) (*domain.Group, error) {
	var group domain.Group
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
		return nil, translate(err, "group %q", slug)
	}
	return &group, nil
}

func (s *Store) ListGroups(ctx context.Context) ([]*domain.Group, error) {
	groups := make([]*domain.Group, 0)
	err := s.db.WithContext(ctx).Order("title").Find(&groups).Error
	return groups, err
}

func (s *Store) DeleteGroup(ctx context.Context, id uint) error {
	// Посты группы не удаляются, у них просто обнуляется group_id
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group domain.Group
		if err := tx.First(&group, id).Error; err != nil {
			return translate(err, "group with id %d", id)
		}
		if err := tx.Model(&domain.Post{}).Where("group_id = ?", id).Update("group_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&group).Error
	})
}

// === Post Methods ===

func (s *Store) checkPostRefs(tx *gorm.DB, post *domain.Post) error {
	if post.GroupID == nil {
		return nil
	}
	ok, err := exists(tx, &domain.Group{}, "id = ?", *post.GroupID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("group with id %d: %w", *post.GroupID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	created := domain.Post{
		Text:     post.Text,
		AuthorID: post.AuthorID,
		GroupID:  post.GroupID,
		Image:    post.Image,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(tx, &domain.User{}, "id = ?", post.AuthorID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("author with id %d: %w", post.AuthorID, storage.ErrNotFound)
		}
		if err := s.checkPostRefs(tx, post); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(&created).Error
	})
	if err != nil {
		return nil, err
	}
	// GORM заполнит ID и PubDate после создания, автора и группу подгружаем отдельно
	return s.GetPostByID(ctx, created.ID)
}

func (s *Store) UpdatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Post
		if err := tx.First(&existing, post.ID).Error; err != nil {
			return translate(err, "post with id %d", post.ID)
		}
		if err := s.checkPostRefs(tx, post); err != nil {
			return err
		}
		return tx.Model(&existing).
			Omit(clause.Associations).
			Select("Text", "GroupID", "Image").
			Updates(domain.Post{Text: post.Text, GroupID: post.GroupID, Image: post.Image}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetPostByID(ctx, post.ID)
}

func (s *Store) DeletePost(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("post with id %d: %w", id, storage.ErrNotFound)
		}
		return nil
	})
}

func (s *Store) GetPostByID(ctx context.Context, id uint) (*domain.Post, error) {
	var post domain.Post
	err := s.db.WithContext(ctx).Preload("Author").Preload("Group").First(&post, id).Error
	if err != nil {
		return nil, translate(err, "post with id %d", id)
	}
	return &post, nil
}

func (s *Store) ListPosts(ctx context.Context, filter storage.PostFilter, args storage.PaginationArgs) ([]*domain.Post, int, error) {
	posts := make([]*domain.Post, 0)
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return posts, 0, nil
	}

	query := s.db.WithContext(ctx).Model(&domain.Post{})
	if filter.AuthorID != nil {
		query = query.Where("posts.author_id = ?", *filter.AuthorID)
	}
	if filter.GroupID != nil {
		query = query.Where("posts.group_id = ?", *filter.GroupID)
	}
	if filter.FollowerID != nil {
		followed := s.db.Model(&domain.Follow{}).Select("author_id").Where("user_id = ?", *filter.FollowerID)
		query = query.Where("posts.author_id IN (?)", followed)
	}
	if filter.Query != "" {
		query = query.Where("LOWER(posts.text) LIKE ?", "%"+strings.ToLower(filter.Query)+"%")
	}
	if filter.IDs != nil {
		query = query.Where("posts.id IN ?", filter.IDs)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := query.Preload("Author").Preload("Group").Order("posts.pub_date DESC, posts.id DESC").Offset(args.Offset)
	if args.Limit > 0 {
		page = page.Limit(args.Limit)
	}
	if err := page.Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, int(total), nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	created := domain.Comment{PostID: comment.PostID, AuthorID: comment.AuthorID, Text: comment.Text}

	// Проверяем существование поста и автора в одной транзакции с вставкой
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(tx, &domain.Post{}, "id = ?", comment.PostID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("post with id %d: %w", comment.PostID, storage.ErrNotFound)
		}
		ok, err = exists(tx, &domain.User{}, "id = ?", comment.AuthorID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("author with id %d: %w", comment.AuthorID, storage.ErrNotFound)
		}
		return tx.Omit(clause.Associations).Create(&created).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Preload("Author").First(&created, created.ID).Error; err != nil {
		return nil, translate(err, "comment with id %d", created.ID)
	}
	return &created, nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID uint) ([]*domain.Comment, error) {
	comments := make([]*domain.Comment, 0)
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

// === Dataloader Method ===

func (s *Store) CountCommentsByPostIDs(ctx context.Context, postIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		PostID uint
		N      int
	}
	// Считаем комментарии для всех постов страницы одним запросом
	err := s.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Select("post_id, COUNT(*) AS n").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, id := range postIDs {
		counts[id] = 0
	}
	for _, r := range rows {
		counts[r.PostID] = r.N
	}
	return counts, nil
}

// === Follow Methods ===

func (s *Store) CreateFollow(ctx context.Context, userID, authorID uint) (bool, error) {
	if userID == authorID {
		return false, storage.ErrSelfFollow
	}

	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.User{}).Where("id IN ?", []uint{userID, authorID}).Count(&n).Error; err != nil {
			return err
		}
		if n != 2 {
			return fmt.Errorf("follow %d -> %d: %w", userID, authorID, storage.ErrNotFound)
		}

		already, err := exists(tx, &domain.Follow{}, "user_id = ? AND author_id = ?", userID, authorID)
		if err != nil || already {
			return err
		}
		if err := tx.Create(&domain.Follow{UserID: userID, AuthorID: authorID}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil
			}
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (s *Store) DeleteFollow(ctx context.Context, userID, authorID uint) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&domain.Follow{}).Error
}

func (s *Store) IsFollowing(ctx context.Context, userID, authorID uint) (bool, error) {
	return exists(s.db.WithContext(ctx), &domain.Follow{}, "user_id = ? AND author_id = ?", userID, authorID)
}

func (s *Store) CountFollows(ctx context.Context) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.Follow{}).Count(&n).Error
	return int(n), err
}

// === Session Methods ===

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return translate(err, "create session")
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	var session domain.Session
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&session).Error; err != nil {
		return nil, translate(err, "session")
	}
	return &session, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("token = ?", token).Delete(&domain.Session{}).Error
}

func (s *Store) DeleteUserSessions(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.Session{}).Error
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Session{})
	return int(res.RowsAffected), res.Error
}
