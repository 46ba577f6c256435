package inmemory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
)

type followKey struct {
	userID   uint
	authorID uint
}

// Store реализует интерфейс Storage в памяти.
// Наружу отдаются только копии записей, как при чтении из базы.
type Store struct {
	mu       sync.RWMutex
	seq      uint
	users    map[uint]*domain.User
	groups   map[uint]*domain.Group
	posts    map[uint]*domain.Post
	comments map[uint]*domain.Comment
	follows  map[followKey]*domain.Follow
	sessions map[string]*domain.Session

	commentsByPost map[uint][]uint // map[postID][]commentID

	now func() time.Time
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		users:          make(map[uint]*domain.User),
		groups:         make(map[uint]*domain.Group),
		posts:          make(map[uint]*domain.Post),
		comments:       make(map[uint]*domain.Comment),
		follows:        make(map[followKey]*domain.Follow),
		sessions:       make(map[string]*domain.Session),
		commentsByPost: make(map[uint][]uint),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) nextID() uint {
	s.seq++
	return s.seq
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return nil, fmt.Errorf("username %q: %w", user.Username, storage.ErrConflict)
		}
	}

	stored := *user
	stored.ID = s.nextID()
	stored.DateJoined = s.now()
	s.users[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uint) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %d: %w", id, storage.ErrNotFound)
	}
	out := *u
	return &out, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, storage.ErrNotFound)
}

func (s *Store) GetUsersByEmail(ctx context.Context, email string) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*domain.User, 0)
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			out := *u
			users = append(users, &out)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *Store) SetUserPassword(ctx context.Context, userID uint, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user with id %d: %w", userID, storage.ErrNotFound)
	}
	u.PasswordHash = passwordHash
	return nil
}

// === Group Methods ===

func (s *Store) CreateGroup(ctx context.Context, group *domain.Group) (*domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.groups {
		if g.Slug == group.Slug {
			return nil, fmt.Errorf("group slug %q: %w", group.Slug, storage.ErrConflict)
		}
	}

	stored := *group
	stored.ID = s.nextID()
	s.groups[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *Store) GetGroupByID(ctx context.Context, id uint) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, fmt.Errorf("group with id %d: %w", id, storage.ErrNotFound)
	}
	out := *g
	return &out, nil
}

func (s *Store) GetGroupBySlug(ctx context.Context, slug string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.groups {
		if g.Slug == slug {
			out := *g
			return &out, nil
		}
	}
	return nil, fmt.Errorf("group %q: %w", slug, storage.ErrNotFound)
}

func (s *Store) ListGroups(ctx context.Context) ([]*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]*domain.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out := *g
		groups = append(groups, &out)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Title < groups[j].Title })
	return groups, nil
}

func (s *Store) DeleteGroup(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return fmt.Errorf("group with id %d: %w", id, storage.ErrNotFound)
	}
	for _, p := range s.posts {
		if p.GroupID != nil && *p.GroupID == id {
			p.GroupID = nil
		}
	}
	delete(s.groups, id)
	return nil
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[post.AuthorID]; !ok {
		return nil, fmt.Errorf("author with id %d: %w", post.AuthorID, storage.ErrNotFound)
	}
	if post.GroupID != nil {
		if _, ok := s.groups[*post.GroupID]; !ok {
			return nil, fmt.Errorf("group with id %d: %w", *post.GroupID, storage.ErrNotFound)
		}
	}

	stored := domain.Post{
		ID:       s.nextID(),
		Text:     post.Text,
		PubDate:  s.now(),
		AuthorID: post.AuthorID,
		GroupID:  copyID(post.GroupID),
		Image:    post.Image,
	}
	s.posts[stored.ID] = &stored
	return s.hydratePost(&stored), nil
}

func (s *Store) UpdatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.posts[post.ID]
	if !ok {
		return nil, fmt.Errorf("post with id %d: %w", post.ID, storage.ErrNotFound)
	}
	if post.GroupID != nil {
		if _, ok := s.groups[*post.GroupID]; !ok {
			return nil, fmt.Errorf("group with id %d: %w", *post.GroupID, storage.ErrNotFound)
		}
	}

	stored.Text = post.Text
	stored.GroupID = copyID(post.GroupID)
	stored.Image = post.Image
	return s.hydratePost(stored), nil
}

func (s *Store) DeletePost(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return fmt.Errorf("post with id %d: %w", id, storage.ErrNotFound)
	}
	for _, cID := range s.commentsByPost[id] {
		delete(s.comments, cID)
	}
	delete(s.commentsByPost, id)
	delete(s.posts, id)
	return nil
}

func (s *Store) GetPostByID(ctx context.Context, id uint) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post with id %d: %w", id, storage.ErrNotFound)
	}
	return s.hydratePost(post), nil
}

func (s *Store) ListPosts(ctx context.Context, filter storage.PostFilter, args storage.PaginationArgs) ([]*domain.Post, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if s.matches(p, filter) {
			matched = append(matched, p)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].PubDate.Equal(matched[j].PubDate) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].PubDate.After(matched[j].PubDate)
	})

	total := len(matched)
	start := args.Offset
	if start >= total {
		return []*domain.Post{}, total, nil
	}
	end := total
	if args.Limit > 0 && start+args.Limit < total {
		end = start + args.Limit
	}

	page := make([]*domain.Post, 0, end-start)
	for _, p := range matched[start:end] {
		page = append(page, s.hydratePost(p))
	}
	return page, total, nil
}

func (s *Store) matches(p *domain.Post, f storage.PostFilter) bool {
	if f.AuthorID != nil && p.AuthorID != *f.AuthorID {
		return false
	}
	if f.GroupID != nil && (p.GroupID == nil || *p.GroupID != *f.GroupID) {
		return false
	}
	if f.FollowerID != nil {
		if _, ok := s.follows[followKey{userID: *f.FollowerID, authorID: p.AuthorID}]; !ok {
			return false
		}
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(p.Text), strings.ToLower(f.Query)) {
		return false
	}
	if f.IDs != nil && !slices.Contains(f.IDs, p.ID) {
		return false
	}
	return true
}

// hydratePost возвращает копию поста с подгруженными автором и группой.
// Вызывается под блокировкой.
func (s *Store) hydratePost(p *domain.Post) *domain.Post {
	out := *p
	out.GroupID = copyID(p.GroupID)
	if u, ok := s.users[p.AuthorID]; ok {
		author := *u
		out.Author = &author
	}
	out.Group = nil
	if p.GroupID != nil {
		if g, ok := s.groups[*p.GroupID]; ok {
			group := *g
			out.Group = &group
		}
	}
	return &out
}

func copyID(id *uint) *uint {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[comment.PostID]; !ok {
		return nil, fmt.Errorf("post with id %d: %w", comment.PostID, storage.ErrNotFound)
	}
	author, ok := s.users[comment.AuthorID]
	if !ok {
		return nil, fmt.Errorf("author with id %d: %w", comment.AuthorID, storage.ErrNotFound)
	}

	stored := domain.Comment{
		ID:       s.nextID(),
		PostID:   comment.PostID,
		AuthorID: comment.AuthorID,
		Text:     comment.Text,
		Created:  s.now(),
	}
	s.comments[stored.ID] = &stored
	s.commentsByPost[stored.PostID] = append(s.commentsByPost[stored.PostID], stored.ID)

	out := stored
	a := *author
	out.Author = &a
	return &out, nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID uint) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.commentsByPost[postID]
	comments := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		c, ok := s.comments[id]
		if !ok {
			continue
		}
		out := *c
		if u, ok := s.users[c.AuthorID]; ok {
			a := *u
			out.Author = &a
		}
		comments = append(comments, &out)
	}
	// Сортируем по времени создания, чтобы порядок совпадал с SQL-хранилищем
	sort.SliceStable(comments, func(i, j int) bool {
		if comments[i].Created.Equal(comments[j].Created) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].Created.Before(comments[j].Created)
	})
	return comments, nil
}

// === Dataloader Methods ===

func (s *Store) CountCommentsByPostIDs(ctx context.Context, postIDs []uint) (map[uint]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[uint]int, len(postIDs))
	for _, id := range postIDs {
		counts[id] = len(s.commentsByPost[id])
	}
	return counts, nil
}

// === Follow Methods ===

func (s *Store) CreateFollow(ctx context.Context, userID, authorID uint) (bool, error) {
	if userID == authorID {
		return false, storage.ErrSelfFollow
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return false, fmt.Errorf("user with id %d: %w", userID, storage.ErrNotFound)
	}
	if _, ok := s.users[authorID]; !ok {
		return false, fmt.Errorf("author with id %d: %w", authorID, storage.ErrNotFound)
	}

	key := followKey{userID: userID, authorID: authorID}
	if _, ok := s.follows[key]; ok {
		return false, nil
	}
	s.follows[key] = &domain.Follow{ID: s.nextID(), UserID: userID, AuthorID: authorID, Created: s.now()}
	return true, nil
}

func (s *Store) DeleteFollow(ctx context.Context, userID, authorID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.follows, followKey{userID: userID, authorID: authorID})
	return nil
}

func (s *Store) IsFollowing(ctx context.Context, userID, authorID uint) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.follows[followKey{userID: userID, authorID: authorID}]
	return ok, nil
}

func (s *Store) CountFollows(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.follows), nil
}

// === Session Methods ===

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.Token]; ok {
		return fmt.Errorf("session: %w", storage.ErrConflict)
	}
	stored := *session
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	s.sessions[stored.Token] = &stored
	return nil
}

func (s *Store) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil, fmt.Errorf("session: %w", storage.ErrNotFound)
	}
	out := *session
	return &out, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	return nil
}

func (s *Store) DeleteUserSessions(ctx context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, token)
		}
	}
	return nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed, nil
}
