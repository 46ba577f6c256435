package live

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/UkralStul/yatube/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Message - комментарий в том виде, в каком он уходит в браузер.
type Message struct {
	ID      uint      `json:"id"`
	PostID  uint      `json:"post_id"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	Created time.Time `json:"created"`
}

func NewMessage(c *domain.Comment) Message {
	m := Message{ID: c.ID, PostID: c.PostID, Text: c.Text, Created: c.Created}
	if c.Author != nil {
		m.Author = c.Author.Username
	}
	return m
}

// Serve переводит соединение в websocket и транслирует новые комментарии поста.
func (o *Observer) Serve(w http.ResponseWriter, r *http.Request, postID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		o.log.Warn("websocket upgrade failed", "post_id", postID, "error", err)
		return
	}

	ctx, cancel := context.WithCancel(o.ctx)
	comments := o.Subscribe(ctx, postID)
	o.log.Debug("live subscriber connected", "post_id", postID)

	go o.readPump(conn, cancel)
	o.writePump(ctx, conn, comments)
	cancel()
	o.log.Debug("live subscriber disconnected", "post_id", postID)
}

// readPump читает служебные кадры, отмена ctx означает закрытие соединения клиентом.
func (o *Observer) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (o *Observer) writePump(ctx context.Context, conn *websocket.Conn, comments <-chan *domain.Comment) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case c := <-comments:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(NewMessage(c)); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
