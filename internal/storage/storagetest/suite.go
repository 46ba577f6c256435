// Package storagetest содержит общий набор тестов для реализаций storage.Storage.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
)

// Factory создает пустое хранилище для одного теста.
type Factory func(t *testing.T) storage.Storage

// Run прогоняет все проверки контракта Storage.
func Run(t *testing.T, newStore Factory) {
	tests := map[string]func(t *testing.T, s storage.Storage){
		"Users":                testUsers,
		"Groups":               testGroups,
		"CreateAndGetPost":     testCreateAndGetPost,
		"UpdatePostKeepsOwner": testUpdatePostKeepsOwner,
		"DeletePost":           testDeletePost,
		"Pagination":           testPagination,
		"Filters":              testFilters,
		"DeleteGroupKeepsPost": testDeleteGroupKeepsPosts,
		"Comments":             testComments,
		"Follows":              testFollows,
		"Sessions":             testSessions,
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			fn(t, s)
		})
	}
}

func mustUser(t *testing.T, s storage.Storage, username string) *domain.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), &domain.User{Username: username, Email: username + "@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	return u
}

func mustGroup(t *testing.T, s storage.Storage, slug string) *domain.Group {
	t.Helper()
	g, err := s.CreateGroup(context.Background(), &domain.Group{Title: "Группа " + slug, Slug: slug, Description: "Описание"})
	require.NoError(t, err)
	return g
}

func mustPost(t *testing.T, s storage.Storage, author *domain.User, group *domain.Group, text string) *domain.Post {
	t.Helper()
	p := &domain.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		p.GroupID = &group.ID
	}
	created, err := s.CreatePost(context.Background(), p)
	require.NoError(t, err)
	return created
}

func testUsers(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	u := mustUser(t, s, "auth")
	assert.NotZero(t, u.ID)
	assert.False(t, u.DateJoined.IsZero())

	_, err := s.CreateUser(ctx, &domain.User{Username: "auth", PasswordHash: "x"})
	assert.ErrorIs(t, err, storage.ErrConflict)

	byName, err := s.GetUserByUsername(ctx, "auth")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	byEmail, err := s.GetUsersByEmail(ctx, "AUTH@example.com")
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, u.ID, byEmail[0].ID)

	require.NoError(t, s.SetUserPassword(ctx, u.ID, "new-hash"))
	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", byID.PasswordHash)

	assert.ErrorIs(t, s.SetUserPassword(ctx, 9999, "x"), storage.ErrNotFound)
}

func testGroups(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	g := mustGroup(t, s, "cats")

	_, err := s.CreateGroup(ctx, &domain.Group{Title: "dup", Slug: "cats"})
	assert.ErrorIs(t, err, storage.ErrConflict)

	bySlug, err := s.GetGroupBySlug(ctx, "cats")
	require.NoError(t, err)
	assert.Equal(t, g.ID, bySlug.ID)
	assert.Equal(t, g.Title, bySlug.Title)

	_, err = s.GetGroupBySlug(ctx, "dogs")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	mustGroup(t, s, "birds")
	groups, err := s.ListGroups(ctx)
	require.NoError(t, err)
	assert.Len(t, groups, 2)
}

func testCreateAndGetPost(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	author := mustUser(t, s, "auth")
	group := mustGroup(t, s, "test-slug")
	post := mustPost(t, s, author, group, "Тестовый пост")

	retrieved, err := s.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Тестовый пост", retrieved.Text)
	require.NotNil(t, retrieved.Author)
	assert.Equal(t, "auth", retrieved.Author.Username)
	require.NotNil(t, retrieved.Group)
	assert.Equal(t, "test-slug", retrieved.Group.Slug)
	assert.False(t, retrieved.PubDate.IsZero())

	_, err = s.GetPostByID(ctx, 424242)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	missingGroup := uint(777)
	_, err = s.CreatePost(ctx, &domain.Post{Text: "x", AuthorID: author.ID, GroupID: &missingGroup})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testUpdatePostKeepsOwner(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	author := mustUser(t, s, "auth")
	other := mustUser(t, s, "other")
	group := mustGroup(t, s, "g")
	post := mustPost(t, s, author, nil, "before")

	updated, err := s.UpdatePost(ctx, &domain.Post{
		ID:       post.ID,
		Text:     "after",
		AuthorID: other.ID,
		GroupID:  &group.ID,
		Image:    "posts/a.gif",
	})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Text)
	assert.Equal(t, author.ID, updated.AuthorID)
	assert.Equal(t, "posts/a.gif", updated.Image)
	require.NotNil(t, updated.GroupID)
	assert.Equal(t, group.ID, *updated.GroupID)
	assert.WithinDuration(t, post.PubDate, updated.PubDate, time.Second)

	_, err = s.UpdatePost(ctx, &domain.Post{ID: 999999, Text: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testDeletePost(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	author := mustUser(t, s, "auth")
	post := mustPost(t, s, author, nil, "to delete")
	_, err := s.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: author.ID, Text: "c"})
	require.NoError(t, err)

	require.NoError(t, s.DeletePost(ctx, post.ID))
	_, err = s.GetPostByID(ctx, post.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.DeletePost(ctx, post.ID), storage.ErrNotFound)
}

func testPagination(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	author := mustUser(t, s, "auth")
	for i := 0; i < 13; i++ {
		mustPost(t, s, author, nil, fmt.Sprintf("Пост #%d", i))
	}

	first, total, err := s.ListPosts(ctx, storage.PostFilter{}, storage.PaginationArgs{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 13, total)
	require.Len(t, first, 10)
	assert.Equal(t, "Пост #12", first[0].Text)

	second, _, err := s.ListPosts(ctx, storage.PostFilter{}, storage.PaginationArgs{Limit: 10, Offset: 10})
	require.NoError(t, err)
	require.Len(t, second, 3)
	assert.Equal(t, "Пост #0", second[2].Text)

	empty, _, err := s.ListPosts(ctx, storage.PostFilter{}, storage.PaginationArgs{Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testFilters(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	carol := mustUser(t, s, "carol")
	group := mustGroup(t, s, "g1")
	other := mustGroup(t, s, "g2")

	p1 := mustPost(t, s, alice, group, "Alice in group")
	mustPost(t, s, alice, other, "Alice elsewhere")
	p3 := mustPost(t, s, bob, nil, "Bob says HELLO")

	byGroup, total, err := s.ListPosts(ctx, storage.PostFilter{GroupID: &group.ID}, storage.PaginationArgs{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, p1.ID, byGroup[0].ID)

	_, total, err = s.ListPosts(ctx, storage.PostFilter{AuthorID: &alice.ID}, storage.PaginationArgs{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	byQuery, _, err := s.ListPosts(ctx, storage.PostFilter{Query: "hello"}, storage.PaginationArgs{Limit: 10})
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	assert.Equal(t, p3.ID, byQuery[0].ID)

	byIDs, _, err := s.ListPosts(ctx, storage.PostFilter{IDs: []uint{p1.ID, p3.ID}}, storage.PaginationArgs{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, byIDs, 2)

	feed, total, err := s.ListPosts(ctx, storage.PostFilter{FollowerID: &carol.ID}, storage.PaginationArgs{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, feed)

	_, err = s.CreateFollow(ctx, carol.ID, bob.ID)
	require.NoError(t, err)
	feed, total, err = s.ListPosts(ctx, storage.PostFilter{FollowerID: &carol.ID}, storage.PaginationArgs{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, p3.ID, feed[0].ID)
}

func testDeleteGroupKeepsPosts(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	author := mustUser(t, s, "auth")
	group := mustGroup(t, s, "doomed")
	post := mustPost(t, s, author, group, "survivor")

	require.NoError(t, s.DeleteGroup(ctx, group.ID))

	got, err := s.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, got.GroupID)
	assert.Nil(t, got.Group)
	assert.ErrorIs(t, s.DeleteGroup(ctx, group.ID), storage.ErrNotFound)
}

func testComments(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	author := mustUser(t, s, "auth")
	reader := mustUser(t, s, "reader")
	post := mustPost(t, s, author, nil, "post")
	lonely := mustPost(t, s, author, nil, "no comments")

	first, err := s.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: reader.ID, Text: "First comment!"})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	_, err = s.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: author.ID, Text: "Second"})
	require.NoError(t, err)

	comments, err := s.GetCommentsByPostID(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "First comment!", comments[0].Text)
	require.NotNil(t, comments[0].Author)
	assert.Equal(t, "reader", comments[0].Author.Username)

	_, err = s.CreateComment(ctx, &domain.Comment{PostID: 31337, AuthorID: reader.ID, Text: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	counts, err := s.CountCommentsByPostIDs(ctx, []uint{post.ID, lonely.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, counts[post.ID])
	assert.Equal(t, 0, counts[lonely.ID])
}

func testFollows(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	follower := mustUser(t, s, "follower")
	author := mustUser(t, s, "author")

	before, err := s.CountFollows(ctx)
	require.NoError(t, err)

	created, err := s.CreateFollow(ctx, follower.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateFollow(ctx, follower.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, created)

	after, err := s.CountFollows(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	ok, err := s.IsFollowing(ctx, follower.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsFollowing(ctx, author.ID, follower.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.CreateFollow(ctx, author.ID, author.ID)
	assert.ErrorIs(t, err, storage.ErrSelfFollow)

	require.NoError(t, s.DeleteFollow(ctx, follower.ID, author.ID))
	require.NoError(t, s.DeleteFollow(ctx, follower.ID, author.ID))
	after, err = s.CountFollows(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func testSessions(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	u := mustUser(t, s, "auth")
	now := time.Now().UTC()

	require.NoError(t, s.CreateSession(ctx, &domain.Session{Token: "live", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.CreateSession(ctx, &domain.Session{Token: "stale", UserID: u.ID, ExpiresAt: now.Add(-time.Hour)}))

	got, err := s.GetSession(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)

	removed, err := s.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = s.GetSession(ctx, "stale")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.DeleteSession(ctx, "live"))
	_, err = s.GetSession(ctx, "live")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.CreateSession(ctx, &domain.Session{Token: "a", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.DeleteUserSessions(ctx, u.ID))
	_, err = s.GetSession(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
