package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/UkralStul/yatube/internal/storage"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	CommentCountByPostID *dataloader.Loader
}

// NewLoaders создаёт лоадеры поверх хранилища.
func NewLoaders(store storage.Storage) *Loaders {
	// Батч-функция: один запрос к хранилищу на все посты страницы
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		postIDs := make([]uint, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseUint(k.String(), 10, 64)
			if err != nil {
				return failAll(keys, fmt.Errorf("bad post id key %q: %w", k.String(), err))
			}
			postIDs[i] = uint(id)
		}

		counts, err := store.CountCommentsByPostIDs(ctx, postIDs)
		if err != nil {
			return failAll(keys, err)
		}

		// Результаты в том же порядке, что и ключи
		results := make([]*dataloader.Result, len(keys))
		for i, id := range postIDs {
			results[i] = &dataloader.Result{Data: counts[id]}
		}
		return results
	}

	return &Loaders{
		CommentCountByPostID: dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond)),
	}
}

func failAll(keys dataloader.Keys, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, len(keys))
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.Storage, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), key, NewLoaders(store))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// For извлекает лоадеры из контекста. Вне middleware возвращает nil.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(key).(*Loaders)
	return loaders
}

// CommentCounts возвращает число комментариев для каждого поста из ids.
func (l *Loaders) CommentCounts(ctx context.Context, ids []uint) (map[uint]int, error) {
	if len(ids) == 0 {
		return map[uint]int{}, nil
	}
	keys := make(dataloader.Keys, len(ids))
	for i, id := range ids {
		keys[i] = dataloader.StringKey(strconv.FormatUint(uint64(id), 10))
	}

	values, errs := l.CommentCountByPostID.LoadMany(ctx, keys)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	counts := make(map[uint]int, len(ids))
	for i, id := range ids {
		if n, ok := values[i].(int); ok {
			counts[id] = n
		}
	}
	return counts, nil
}
