package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
)

// DemoPassword - пароль демо-пользователей в режиме memory.
const DemoPassword = "yatube-demo"

// FillWithDemoData заполняет пустое хранилище данными для ручной проверки.
func FillWithDemoData(ctx context.Context, store storage.Storage, authSvc *auth.Service, log *slog.Logger) error {
	// 1. Пользователи. Оба входят с паролем DemoPassword.
	leo, err := authSvc.Register(ctx, &domain.User{Username: "leo", FirstName: "Лев", LastName: "Толстой", Email: "leo@example.com"}, DemoPassword)
	if err != nil {
		return fmt.Errorf("demo data: failed to create user leo: %w", err)
	}
	anna, err := authSvc.Register(ctx, &domain.User{Username: "anna", FirstName: "Анна", Email: "anna@example.com"}, DemoPassword)
	if err != nil {
		return fmt.Errorf("demo data: failed to create user anna: %w", err)
	}

	// 2. Группа и посты в ней.
	group, err := store.CreateGroup(ctx, &domain.Group{
		Title:       "Русская литература",
		Slug:        "literature",
		Description: "Обсуждаем классику и современную прозу.",
	})
	if err != nil {
		return fmt.Errorf("demo data: failed to create group: %w", err)
	}

	post, err := store.CreatePost(ctx, &domain.Post{
		Text:     "Все счастливые семьи похожи друг на друга, каждая несчастливая семья несчастлива по-своему.",
		AuthorID: leo.ID,
		GroupID:  &group.ID,
	})
	if err != nil {
		return fmt.Errorf("demo data: failed to create post: %w", err)
	}
	if _, err := store.CreatePost(ctx, &domain.Post{
		Text:     "Пост без группы. Его видно на главной и в профиле автора.",
		AuthorID: anna.ID,
	}); err != nil {
		return fmt.Errorf("demo data: failed to create second post: %w", err)
	}

	// 3. Комментарий и подписка.
	if _, err := store.CreateComment(ctx, &domain.Comment{
		PostID:   post.ID,
		AuthorID: anna.ID,
		Text:     "Отличное начало романа!",
	}); err != nil {
		return fmt.Errorf("demo data: failed to create comment: %w", err)
	}
	if _, err := store.CreateFollow(ctx, anna.ID, leo.ID); err != nil {
		return fmt.Errorf("demo data: failed to create follow: %w", err)
	}

	log.Info("demo data filled", "users", []string{leo.Username, anna.Username}, "group", group.Slug, "post_id", post.ID)
	return nil
}
