package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/dataloader"
	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/forms"
	"github.com/UkralStul/yatube/internal/media"
	"github.com/UkralStul/yatube/internal/paginator"
	"github.com/UkralStul/yatube/internal/storage"
)

func postURL(id uint) string { return fmt.Sprintf("/posts/%d/", id) }

func profileURL(username string) string { return "/profile/" + username + "/" }

// postsPage загружает страницу ?page= по фильтру и число комментариев к ее постам.
func (app *App) postsPage(r *http.Request, filter storage.PostFilter) (*paginator.Page[*domain.Post], map[uint]int, error) {
	ctx := r.Context()
	number := paginator.ParseNumber(r.URL.Query().Get("page"))
	page, err := paginator.Fetch(number, app.opts.PostsPerPage, func(args storage.PaginationArgs) ([]*domain.Post, int, error) {
		return app.store.ListPosts(ctx, filter, args)
	})
	if err != nil {
		return nil, nil, err
	}
	counts, err := app.commentCounts(ctx, page.Items)
	if err != nil {
		return nil, nil, err
	}
	return page, counts, nil
}

func (app *App) commentCounts(ctx context.Context, posts []*domain.Post) (map[uint]int, error) {
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	if loaders := dataloader.For(ctx); loaders != nil {
		return loaders.CommentCounts(ctx, ids)
	}
	return app.store.CountCommentsByPostIDs(ctx, ids)
}

// loadPost находит пост по {post_id}. Если поста нет, уже отдан ответ 404.
func (app *App) loadPost(w http.ResponseWriter, r *http.Request) (*domain.Post, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "post_id"), 10, 64)
	if err != nil {
		app.notFound(w, r)
		return nil, false
	}
	post, err := app.store.GetPostByID(r.Context(), uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		app.notFound(w, r)
		return nil, false
	}
	if err != nil {
		app.serverError(w, r, err)
		return nil, false
	}
	return post, true
}

// loadAuthor находит пользователя по {username}.
func (app *App) loadAuthor(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	author, err := app.store.GetUserByUsername(r.Context(), chi.URLParam(r, "username"))
	if errors.Is(err, storage.ErrNotFound) {
		app.notFound(w, r)
		return nil, false
	}
	if err != nil {
		app.serverError(w, r, err)
		return nil, false
	}
	return author, true
}

func (app *App) countAuthorPosts(ctx context.Context, authorID uint) (int, error) {
	_, total, err := app.store.ListPosts(ctx, storage.PostFilter{AuthorID: &authorID}, storage.PaginationArgs{Limit: 1})
	return total, err
}

// === Lists ===

func (app *App) index(w http.ResponseWriter, r *http.Request) {
	page, counts, err := app.postsPage(r, storage.PostFilter{})
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "posts/index.html", &HTMLData{Page: page, CommentCounts: counts})
}

func (app *App) groupPosts(w http.ResponseWriter, r *http.Request) {
	group, err := app.store.GetGroupBySlug(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, storage.ErrNotFound) {
		app.notFound(w, r)
		return
	}
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	page, counts, err := app.postsPage(r, storage.PostFilter{GroupID: &group.ID})
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "posts/group_list.html", &HTMLData{
		Group:         group,
		Page:          page,
		CommentCounts: counts,
	})
}

func (app *App) profile(w http.ResponseWriter, r *http.Request) {
	author, ok := app.loadAuthor(w, r)
	if !ok {
		return
	}

	page, counts, err := app.postsPage(r, storage.PostFilter{AuthorID: &author.ID})
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	data := &HTMLData{
		Author:        author,
		Page:          page,
		CommentCounts: counts,
		PostsCount:    page.TotalCount,
	}
	if viewer := auth.UserFrom(r.Context()); viewer != nil && viewer.ID != author.ID {
		following, err := app.store.IsFollowing(r.Context(), viewer.ID, author.ID)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		data.ShowFollow = true
		data.Following = following
	}
	app.render(w, r, http.StatusOK, "posts/profile.html", data)
}

func (app *App) followIndex(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	page, counts, err := app.postsPage(r, storage.PostFilter{FollowerID: &user.ID})
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "posts/follow.html", &HTMLData{Page: page, CommentCounts: counts})
}

func (app *App) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	data := &HTMLData{Query: query}
	if query != "" {
		ctx := r.Context()
		number := paginator.ParseNumber(r.URL.Query().Get("page"))
		page, err := paginator.Fetch(number, app.opts.PostsPerPage, func(args storage.PaginationArgs) ([]*domain.Post, int, error) {
			return app.searcher.Search(ctx, query, args)
		})
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		counts, err := app.commentCounts(ctx, page.Items)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		data.Page = page
		data.CommentCounts = counts
	}
	app.render(w, r, http.StatusOK, "posts/search.html", data)
}

// === Post ===

func (app *App) postDetail(w http.ResponseWriter, r *http.Request) {
	post, ok := app.loadPost(w, r)
	if !ok {
		return
	}
	app.renderPostDetail(w, r, http.StatusOK, post, forms.NewCommentForm())
}

func (app *App) renderPostDetail(w http.ResponseWriter, r *http.Request, status int, post *domain.Post, form *forms.CommentForm) {
	ctx := r.Context()
	postsCount, err := app.countAuthorPosts(ctx, post.AuthorID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	comments, err := app.store.GetCommentsByPostID(ctx, post.ID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.render(w, r, status, "posts/post_detail.html", &HTMLData{
		Post:        post,
		PostsCount:  postsCount,
		Comments:    comments,
		CommentForm: form,
	})
}

func (app *App) renderPostForm(w http.ResponseWriter, r *http.Request, form *forms.PostForm, post *domain.Post) {
	groups, err := app.store.ListGroups(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "posts/create_post.html", &HTMLData{
		PostForm: form,
		Groups:   groups,
		Post:     post,
		IsEdit:   post != nil,
	})
}

func (app *App) postCreate(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	if r.Method != http.MethodPost {
		app.renderPostForm(w, r, forms.NewPostForm(nil), nil)
		return
	}

	form, err := forms.ParsePostForm(r)
	if err != nil {
		app.badForm(w, "post", err)
		return
	}
	valid, err := form.Validate(r.Context(), app.store)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if !valid {
		app.renderPostForm(w, r, form, nil)
		return
	}

	post := &domain.Post{Text: form.Text, AuthorID: user.ID, GroupID: form.GroupID}
	if form.Image != nil {
		post.Image, err = app.media.Save(r.Context(), media.NewName(form.Image.Ext), form.Image.Data)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
	}

	created, err := app.store.CreatePost(r.Context(), post)
	if err != nil {
		app.discardImage(r.Context(), post.Image)
		app.serverError(w, r, err)
		return
	}
	app.log.Info("post created", "post_id", created.ID, "author", user.Username)
	app.indexPost(r.Context(), created.ID)

	http.Redirect(w, r, profileURL(user.Username), http.StatusFound)
}

func (app *App) postEdit(w http.ResponseWriter, r *http.Request) {
	post, ok := app.loadPost(w, r)
	if !ok {
		return
	}
	user := auth.UserFrom(r.Context())
	if post.AuthorID != user.ID {
		http.Redirect(w, r, postURL(post.ID), http.StatusFound)
		return
	}

	if r.Method != http.MethodPost {
		app.renderPostForm(w, r, forms.NewPostForm(post), post)
		return
	}

	form, err := forms.ParsePostForm(r)
	if err != nil {
		app.badForm(w, "post", err)
		return
	}
	valid, err := form.Validate(r.Context(), app.store)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if !valid {
		app.renderPostForm(w, r, form, post)
		return
	}

	oldImage := post.Image
	post.Text = form.Text
	post.GroupID = form.GroupID
	post.Group = nil
	switch {
	case form.Image != nil:
		post.Image, err = app.media.Save(r.Context(), media.NewName(form.Image.Ext), form.Image.Data)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
	case form.ClearImage:
		post.Image = ""
	}

	updated, err := app.store.UpdatePost(r.Context(), post)
	if err != nil {
		if post.Image != oldImage {
			app.discardImage(r.Context(), post.Image)
		}
		app.serverError(w, r, err)
		return
	}
	if oldImage != updated.Image {
		app.discardImage(r.Context(), oldImage)
	}
	app.log.Info("post updated", "post_id", updated.ID)
	app.indexPost(r.Context(), updated.ID)

	http.Redirect(w, r, postURL(updated.ID), http.StatusFound)
}

// discardImage удаляет картинку, которая больше не привязана к посту.
func (app *App) discardImage(ctx context.Context, image string) {
	if image == "" {
		return
	}
	if err := app.media.Delete(ctx, image); err != nil {
		app.log.Warn("failed to delete image", "image", image, "error", err)
	}
}

// badForm отвечает на тело формы, которое не удалось разобрать.
func (app *App) badForm(w http.ResponseWriter, form string, err error) {
	app.log.Warn("bad form", "form", form, "error", err)
	if errors.Is(err, forms.ErrTooLarge) {
		app.clientError(w, http.StatusRequestEntityTooLarge)
		return
	}
	app.clientError(w, http.StatusBadRequest)
}

// indexPost обновляет пост в поисковом индексе. Ошибка индекса не ломает запрос.
func (app *App) indexPost(ctx context.Context, id uint) {
	post, err := app.store.GetPostByID(ctx, id)
	if err == nil {
		err = app.searcher.Index(ctx, post)
	}
	if err != nil {
		app.log.Warn("failed to index post", "post_id", id, "error", err)
	}
}

// === Comments ===

func (app *App) addComment(w http.ResponseWriter, r *http.Request) {
	post, ok := app.loadPost(w, r)
	if !ok {
		return
	}
	user := auth.UserFrom(r.Context())

	form, err := forms.ParseCommentForm(r)
	if err != nil {
		app.log.Warn("bad comment form", "error", err)
		http.Redirect(w, r, postURL(post.ID), http.StatusFound)
		return
	}
	if form.Validate() {
		comment, err := app.store.CreateComment(r.Context(), &domain.Comment{
			PostID:   post.ID,
			AuthorID: user.ID,
			Text:     form.Text,
		})
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		if comment.Author == nil {
			comment.Author = user
		}
		app.live.Publish(comment)
	}
	http.Redirect(w, r, postURL(post.ID), http.StatusFound)
}

func (app *App) liveComments(w http.ResponseWriter, r *http.Request) {
	post, ok := app.loadPost(w, r)
	if !ok {
		return
	}
	app.live.Serve(w, r, post.ID)
}

// === Follow ===

func (app *App) profileFollow(w http.ResponseWriter, r *http.Request) {
	author, ok := app.loadAuthor(w, r)
	if !ok {
		return
	}
	user := auth.UserFrom(r.Context())
	if user.ID != author.ID {
		created, err := app.store.CreateFollow(r.Context(), user.ID, author.ID)
		if err != nil && !errors.Is(err, storage.ErrSelfFollow) {
			app.serverError(w, r, err)
			return
		}
		if created {
			app.log.Info("follow created", "user", user.Username, "author", author.Username)
		}
	}
	http.Redirect(w, r, profileURL(author.Username), http.StatusFound)
}

func (app *App) profileUnfollow(w http.ResponseWriter, r *http.Request) {
	author, ok := app.loadAuthor(w, r)
	if !ok {
		return
	}
	user := auth.UserFrom(r.Context())
	if err := app.store.DeleteFollow(r.Context(), user.ID, author.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		app.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, profileURL(author.Username), http.StatusFound)
}
