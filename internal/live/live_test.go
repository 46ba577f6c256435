package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/yatube/internal/domain"
)

func TestObserver_PublishToSubscribers(t *testing.T) {
	o := NewObserver(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := o.Subscribe(ctx, 1)
	second := o.Subscribe(ctx, 1)
	other := o.Subscribe(ctx, 2)
	assert.Equal(t, 2, o.Subscribers(1))

	comment := &domain.Comment{ID: 10, PostID: 1, Text: "hi"}
	o.Publish(comment)

	assert.Equal(t, comment, <-first)
	assert.Equal(t, comment, <-second)
	select {
	case c := <-other:
		t.Fatalf("unexpected comment for another post: %v", c)
	default:
	}
}

func TestObserver_SlowSubscriberDoesNotBlock(t *testing.T) {
	o := NewObserver(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := o.Subscribe(ctx, 1)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			o.Publish(&domain.Comment{ID: uint(i), PostID: 1})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Len(t, ch, 1)
}

func TestObserver_UnsubscribeOnCancel(t *testing.T) {
	o := NewObserver(nil)
	ctx, cancel := context.WithCancel(context.Background())

	o.Subscribe(ctx, 1)
	require.Equal(t, 1, o.Subscribers(1))

	cancel()
	assert.Eventually(t, func() bool { return o.Subscribers(1) == 0 }, time.Second, 5*time.Millisecond)
}

func TestServe_StreamsComments(t *testing.T) {
	o := NewObserver(nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.Serve(w, r, 7)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return o.Subscribers(7) == 1 }, time.Second, 5*time.Millisecond)

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	o.Publish(&domain.Comment{ID: 3, PostID: 7, Text: "Живой комментарий", Created: created, Author: &domain.User{Username: "leo"}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, Message{ID: 3, PostID: 7, Author: "leo", Text: "Живой комментарий", Created: created}, msg)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return o.Subscribers(7) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServe_CloseEndsStreams(t *testing.T) {
	o := NewObserver(nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.Serve(w, r, 7)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return o.Subscribers(7) == 1 }, time.Second, 5*time.Millisecond)

	o.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
	assert.Eventually(t, func() bool { return o.Subscribers(7) == 0 }, 2*time.Second, 10*time.Millisecond)
}
