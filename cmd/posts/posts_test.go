package posts

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/media"
	"github.com/UkralStul/yatube/internal/search"
	"github.com/UkralStul/yatube/internal/storage"
	"github.com/UkralStul/yatube/internal/storage/inmemory"
)

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := inmemory.New()
	files, err := media.NewFilesystem(t.TempDir())
	require.NoError(t, err)

	author, err := store.CreateUser(ctx, &domain.User{Username: "leo", PasswordHash: "x"})
	require.NoError(t, err)
	image, err := files.Save(ctx, "posts/cover.gif", []byte("GIF89a"))
	require.NoError(t, err)
	post, err := store.CreatePost(ctx, &domain.Post{Text: "Пост с картинкой", AuthorID: author.ID, Image: image})
	require.NoError(t, err)
	_, err = store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: author.ID, Text: "Коммент"})
	require.NoError(t, err)

	deps := Deps{
		Store:    store,
		Media:    files,
		Searcher: search.NewStorageSearcher(store),
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	var out bytes.Buffer
	require.NoError(t, Delete(ctx, deps, &out, post.ID))
	assert.Contains(t, out.String(), "Deleted post")

	_, err = store.GetPostByID(ctx, post.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	comments, err := store.GetCommentsByPostID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	_, err = os.Stat(filepath.Join(files.Root(), image))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorContains(t, Delete(ctx, deps, &out, post.ID), "not found")
}
