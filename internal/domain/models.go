package domain

import "time"

// User представляет зарегистрированного пользователя.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"type:varchar(150);not null;uniqueIndex"`
	FirstName    string    `json:"firstName" gorm:"type:varchar(150)"`
	LastName     string    `json:"lastName" gorm:"type:varchar(150)"`
	Email        string    `json:"email" gorm:"type:varchar(254);index"`
	PasswordHash string    `json:"-" gorm:"type:varchar(128);not null"`
	IsStaff      bool      `json:"isStaff" gorm:"not null;default:false"`
	DateJoined   time.Time `json:"dateJoined" gorm:"not null;autoCreateTime"`
}

// FullName возвращает имя и фамилию, а если они не заданы, то username.
func (u *User) FullName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}

func (u *User) String() string { return u.Username }

// Group - тематическое сообщество, к которому можно отнести пост.
type Group struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Title       string `json:"title" gorm:"type:varchar(200);not null"`
	Slug        string `json:"slug" gorm:"type:varchar(200);not null;uniqueIndex"`
	Description string `json:"description" gorm:"type:text"`
}

func (g *Group) String() string { return g.Title }

// Post представляет запись в блоге.
type Post struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	Text     string    `json:"text" gorm:"type:text;not null"`
	PubDate  time.Time `json:"pubDate" gorm:"not null;autoCreateTime;index"`
	AuthorID uint      `json:"authorId" gorm:"not null;index"`
	Author   *User     `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	GroupID  *uint     `json:"groupId,omitempty" gorm:"index"`
	Group    *Group    `json:"group,omitempty" gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL"`
	Image    string    `json:"image,omitempty" gorm:"type:varchar(255)"`
}

// postTitleLength - сколько символов текста попадает в строковое представление поста.
const postTitleLength = 15

func (p *Post) String() string {
	runes := []rune(p.Text)
	if len(runes) > postTitleLength {
		runes = runes[:postTitleLength]
	}
	return string(runes)
}

// Comment представляет комментарий к посту.
type Comment struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	PostID   uint      `json:"postId" gorm:"not null;index"`
	AuthorID uint      `json:"authorId" gorm:"not null;index"`
	Author   *User     `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Text     string    `json:"text" gorm:"type:text;not null"`
	Created  time.Time `json:"created" gorm:"not null;autoCreateTime;index"`
}

func (c *Comment) String() string {
	runes := []rune(c.Text)
	if len(runes) > postTitleLength {
		runes = runes[:postTitleLength]
	}
	return string(runes)
}

// Follow - подписка пользователя UserID на автора AuthorID.
type Follow struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	UserID   uint      `json:"userId" gorm:"not null;uniqueIndex:idx_follow_user_author"`
	AuthorID uint      `json:"authorId" gorm:"not null;uniqueIndex:idx_follow_user_author;index"`
	Created  time.Time `json:"created" gorm:"not null;autoCreateTime"`
}

// Session хранит серверную сессию авторизованного пользователя.
type Session struct {
	Token     string    `gorm:"type:varchar(64);primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
