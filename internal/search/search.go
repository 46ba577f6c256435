// Package search ищет посты по тексту.
package search

import (
	"context"
	"strings"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
)

// Searcher ищет посты и поддерживает индекс в актуальном состоянии.
type Searcher interface {
	Search(ctx context.Context, query string, args storage.PaginationArgs) ([]*domain.Post, int, error)
	Index(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, postID uint) error
}

// StorageSearcher ищет подстроку прямо в хранилище, отдельный индекс не нужен.
type StorageSearcher struct {
	store storage.Storage
}

func NewStorageSearcher(store storage.Storage) *StorageSearcher {
	return &StorageSearcher{store: store}
}

func (s *StorageSearcher) Search(ctx context.Context, query string, args storage.PaginationArgs) ([]*domain.Post, int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*domain.Post{}, 0, nil
	}
	return s.store.ListPosts(ctx, storage.PostFilter{Query: query}, args)
}

func (s *StorageSearcher) Index(ctx context.Context, post *domain.Post) error { return nil }

func (s *StorageSearcher) Delete(ctx context.Context, postID uint) error { return nil }
