// Package cache кэширует готовые HTML-страницы целиком.
package cache

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Entry - сохраненный ответ.
type Entry struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// PageCache хранит ответы по ключу до истечения TTL.
type PageCache interface {
	Get(ctx context.Context, key string) (*Entry, bool, error)
	Set(ctx context.Context, key string, entry *Entry) error
	Clear(ctx context.Context) error
}

// === Memory ===

// Memory - локальный LRU-кэш с временем жизни записей.
type Memory struct {
	lru *expirable.LRU[string, *Entry]
}

func NewMemory(size int, ttl time.Duration) *Memory {
	return &Memory{lru: expirable.NewLRU[string, *Entry](size, nil, ttl)}
}

func (m *Memory) Get(ctx context.Context, key string) (*Entry, bool, error) {
	entry, ok := m.lru.Get(key)
	return entry, ok, nil
}

func (m *Memory) Set(ctx context.Context, key string, entry *Entry) error {
	m.lru.Add(key, entry)
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.lru.Purge()
	return nil
}

// Len возвращает число живых записей.
func (m *Memory) Len() int { return m.lru.Len() }

// Write отдает сохраненный ответ клиенту.
func (e *Entry) Write(w http.ResponseWriter) {
	if e.ContentType != "" {
		w.Header().Set("Content-Type", e.ContentType)
	}
	w.WriteHeader(e.Status)
	_, _ = w.Write(e.Body)
}
