package groups

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
	"github.com/UkralStul/yatube/internal/storage/inmemory"
)

func TestCreateListDelete(t *testing.T) {
	ctx := context.Background()
	store := inmemory.New()
	var out bytes.Buffer

	require.NoError(t, Create(ctx, store, &out, &domain.Group{Title: " Коты ", Slug: "cats", Description: "Всё о котах"}))
	assert.Contains(t, out.String(), `Created group "Коты"`)
	assert.Contains(t, out.String(), "/group/cats/")

	out.Reset()
	require.NoError(t, List(ctx, store, &out))
	assert.Contains(t, out.String(), "SLUG")
	assert.Contains(t, out.String(), "cats")
	assert.Contains(t, out.String(), "Коты")

	out.Reset()
	require.NoError(t, Delete(ctx, store, &out, "cats"))
	_, err := store.GetGroupBySlug(ctx, "cats")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	out.Reset()
	require.NoError(t, List(ctx, store, &out))
	assert.Equal(t, "No groups.\n", out.String())
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	store := inmemory.New()
	var out bytes.Buffer

	assert.ErrorContains(t, Create(ctx, store, &out, &domain.Group{Slug: "cats"}), "--title is required")
	assert.ErrorContains(t, Create(ctx, store, &out, &domain.Group{Title: "Коты"}), "--slug is required")
	assert.ErrorContains(t, Create(ctx, store, &out, &domain.Group{Title: "Коты", Slug: "коты"}), "may contain only")

	require.NoError(t, Create(ctx, store, &out, &domain.Group{Title: "Коты", Slug: "cats"}))
	assert.ErrorContains(t, Create(ctx, store, &out, &domain.Group{Title: "Другие", Slug: "cats"}), `group with slug "cats" already exists`)
}

func TestDelete_KeepsPosts(t *testing.T) {
	ctx := context.Background()
	store := inmemory.New()
	var out bytes.Buffer

	require.NoError(t, Create(ctx, store, &out, &domain.Group{Title: "Коты", Slug: "cats"}))
	group, err := store.GetGroupBySlug(ctx, "cats")
	require.NoError(t, err)
	author, err := store.CreateUser(ctx, &domain.User{Username: "leo", PasswordHash: "x"})
	require.NoError(t, err)
	post, err := store.CreatePost(ctx, &domain.Post{Text: "Пост", AuthorID: author.ID, GroupID: &group.ID})
	require.NoError(t, err)

	require.NoError(t, Delete(ctx, store, &out, "cats"))

	got, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, got.GroupID)
}

func TestDelete_Unknown(t *testing.T) {
	var out bytes.Buffer
	err := Delete(context.Background(), inmemory.New(), &out, "nope")
	assert.ErrorContains(t, err, `group with slug "nope" not found`)
	assert.ErrorContains(t, Delete(context.Background(), inmemory.New(), &out, ""), "--slug is required")
}
