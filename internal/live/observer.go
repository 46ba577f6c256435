// Package live рассылает новые комментарии открытым страницам постов.
package live

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/UkralStul/yatube/internal/domain"
)

// Observer хранит каналы для подписчиков на комментарии.
type Observer struct {
	mu sync.RWMutex
	//   map[postID] map[subscriberID] channel
	subs map[uint]map[string]chan *domain.Comment
	log  *slog.Logger

	// ctx живет до Close, от него наследуются контексты websocket-соединений.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewObserver(log *slog.Logger) *Observer {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Observer{
		subs:   make(map[uint]map[string]chan *domain.Comment),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Close закрывает все открытые трансляции. Новые соединения после Close сразу закрываются.
func (o *Observer) Close() {
	o.cancel()
}

// Subscribe подписывает на комментарии поста до отмены ctx.
func (o *Observer) Subscribe(ctx context.Context, postID uint) <-chan *domain.Comment {
	ch := make(chan *domain.Comment, 1)
	subID := uuid.NewString()

	o.mu.Lock()
	if o.subs[postID] == nil {
		o.subs[postID] = make(map[string]chan *domain.Comment)
	}
	o.subs[postID][subID] = ch
	o.mu.Unlock()

	// Горутина для очистки при отключении клиента
	go func() {
		<-ctx.Done()
		o.mu.Lock()
		if postSubs, ok := o.subs[postID]; ok {
			delete(postSubs, subID)
			if len(postSubs) == 0 {
				delete(o.subs, postID)
			}
		}
		o.mu.Unlock()
	}()

	return ch
}

// Publish отправляет комментарий всем подписчикам поста.
// Медленный подписчик пропускает сообщение, отправитель не блокируется.
func (o *Observer) Publish(c *domain.Comment) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for subID, ch := range o.subs[c.PostID] {
		select {
		case ch <- c:
		default:
			o.log.Debug("live subscriber is lagging, comment dropped", "post_id", c.PostID, "subscriber", subID)
		}
	}
}

// Subscribers возвращает число подписчиков поста.
func (o *Observer) Subscribers(postID uint) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs[postID])
}
