package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
)

const searchTimeout = 10 * time.Second

// ElasticOptions - параметры подключения к Elasticsearch.
type ElasticOptions struct {
	Addr     string
	Username string
	Password string
	Index    string
}

// Elastic ищет по индексу Elasticsearch, а сами посты берет из хранилища.
type Elastic struct {
	Client    *elasticsearch.Client
	IndexName string
	store     storage.Storage
}

type postDocument struct {
	ID      uint      `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	Group   string    `json:"group,omitempty"`
	PubDate time.Time `json:"pub_date"`
}

func NewElastic(opts ElasticOptions, store storage.Storage) (*Elastic, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{opts.Addr},
	}
	if opts.Username != "" {
		cfg.Username = opts.Username
		cfg.Password = opts.Password
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	index := opts.Index
	if index == "" {
		index = "posts"
	}
	return &Elastic{Client: client, IndexName: index, store: store}, nil
}

// EnsureIndex создает индекс с маппингом, если его еще нет.
func (e *Elastic) EnsureIndex(ctx context.Context) error {
	res, err := e.Client.Indices.Exists([]string{e.IndexName}, e.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":       map[string]string{"type": "long"},
				"text":     map[string]string{"type": "text"},
				"author":   map[string]string{"type": "keyword"},
				"group":    map[string]string{"type": "keyword"},
				"pub_date": map[string]string{"type": "date"},
			},
		},
	}
	b, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	createRes, err := e.Client.Indices.Create(e.IndexName,
		e.Client.Indices.Create.WithContext(ctx),
		e.Client.Indices.Create.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}
	return nil
}

func (e *Elastic) Index(ctx context.Context, post *domain.Post) error {
	doc := postDocument{ID: post.ID, Text: post.Text, PubDate: post.PubDate}
	if post.Author != nil {
		doc.Author = post.Author.Username
	}
	if post.Group != nil {
		doc.Group = post.Group.Slug
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      e.IndexName,
		DocumentID: strconv.FormatUint(uint64(post.ID), 10),
		Body:       bytes.NewReader(b),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, e.Client)
	if err != nil {
		return fmt.Errorf("failed to index post %d: %w", post.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index error: %s", res.String())
	}
	return nil
}

func (e *Elastic) Delete(ctx context.Context, postID uint) error {
	req := esapi.DeleteRequest{
		Index:      e.IndexName,
		DocumentID: strconv.FormatUint(uint64(postID), 10),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, e.Client)
	if err != nil {
		return fmt.Errorf("failed to delete post %d from index: %w", postID, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete error: %s", res.String())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search находит id постов в индексе и загружает их из хранилища.
func (e *Elastic) Search(ctx context.Context, query string, args storage.PaginationArgs) ([]*domain.Post, int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*domain.Post{}, 0, nil
	}

	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"text", "author", "group"},
			},
		},
		"sort": []any{
			map[string]string{"pub_date": "desc"},
			map[string]string{"id": "desc"},
		},
		"from":    args.Offset,
		"size":    args.Limit,
		"_source": false,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}

	res, err := e.Client.Search(
		e.Client.Search.WithContext(ctx),
		e.Client.Search.WithIndex(e.IndexName),
		e.Client.Search.WithBody(bytes.NewReader(b)),
		e.Client.Search.WithTrackTotalHits(true),
		e.Client.Search.WithTimeout(searchTimeout),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search posts: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("search error: %s", res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]uint, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		id, err := strconv.ParseUint(h.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	if len(ids) == 0 {
		return []*domain.Post{}, parsed.Hits.Total.Value, nil
	}

	posts, _, err := e.store.ListPosts(ctx, storage.PostFilter{IDs: ids}, storage.PaginationArgs{Limit: len(ids)})
	if err != nil {
		return nil, 0, err
	}
	return posts, parsed.Hits.Total.Value, nil
}

// Reindex заново индексирует все посты хранилища.
func (e *Elastic) Reindex(ctx context.Context, batch int) (int, error) {
	if batch <= 0 {
		batch = 100
	}
	indexed := 0
	for offset := 0; ; offset += batch {
		posts, total, err := e.store.ListPosts(ctx, storage.PostFilter{}, storage.PaginationArgs{Limit: batch, Offset: offset})
		if err != nil {
			return indexed, err
		}
		for _, p := range posts {
			if err := e.Index(ctx, p); err != nil {
				return indexed, err
			}
			indexed++
		}
		if offset+batch >= total || len(posts) == 0 {
			return indexed, nil
		}
	}
}
