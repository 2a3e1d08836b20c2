// Package storetest provides an in-memory store for tests.
package storetest

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/sysjosh/digestd/internal/model"
	"github.com/sysjosh/digestd/internal/store"
)

// Memory is a store.Backend keeping everything in memory. The exported error fields inject failures.
type Memory struct {
	lock        sync.Mutex
	articles    []model.Article
	subscribers []model.Subscriber
	nextID      int

	ListArticlesErr    error
	ListSubscribersErr error
	CreateErrs         map[string]error // by article URL
	UpdateErrs         map[string]error // by article ID

	CreateCalls int
	UpdateCalls int
	Closed      bool
}

var _ store.Backend = &Memory{}

func NewMemory() *Memory {
	return &Memory{
		CreateErrs: make(map[string]error),
		UpdateErrs: make(map[string]error),
	}
}

// AddArticle stores the article bypassing the uniqueness checks and failure injection.
func (m *Memory) AddArticle(article model.Article) model.Article {
	m.lock.Lock()
	defer m.lock.Unlock()

	if article.ID == "" {
		article.ID = m.newID()
	}
	m.articles = append(m.articles, article)
	return article
}

func (m *Memory) AddSubscriber(subscriber model.Subscriber) model.Subscriber {
	m.lock.Lock()
	defer m.lock.Unlock()

	if subscriber.ID == "" {
		subscriber.ID = m.newID()
	}
	m.subscribers = append(m.subscribers, subscriber)
	return subscriber
}

func (m *Memory) Articles() []model.Article {
	m.lock.Lock()
	defer m.lock.Unlock()
	return slices.Clone(m.articles)
}

func (m *Memory) ListArticles(
	ctx context.Context, filter store.ArticleFilter, cursor string, pageSize int,
) (store.Page[model.Article], error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.ListArticlesErr != nil {
		return store.Page[model.Article]{}, m.ListArticlesErr
	}

	var matched []model.Article
	for _, article := range m.articles {
		if selected, ok := filter.Selected.Get(); !ok || article.Selected == selected {
			matched = append(matched, article)
		}
	}

	return paginate(matched, cursor, pageSize)
}

func (m *Memory) CreateArticle(ctx context.Context, article model.Article) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.CreateCalls++
	if err := m.CreateErrs[article.URL]; err != nil {
		return "", err
	}
	if slices.ContainsFunc(m.articles, func(stored model.Article) bool { return stored.URL == article.URL }) {
		return "", store.ErrAlreadyExists
	}

	article.ID = m.newID()
	m.articles = append(m.articles, article)
	return article.ID, nil
}

func (m *Memory) SetSelected(ctx context.Context, id string, selected bool) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.UpdateCalls++
	if err := m.UpdateErrs[id]; err != nil {
		return err
	}

	index := slices.IndexFunc(m.articles, func(article model.Article) bool { return article.ID == id })
	if index < 0 {
		return fmt.Errorf("article %s is not found", id)
	}
	m.articles[index].Selected = selected
	return nil
}

func (m *Memory) ListSubscribers(
	ctx context.Context, status model.SubscriberStatus, cursor string, pageSize int,
) (store.Page[model.Subscriber], error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.ListSubscribersErr != nil {
		return store.Page[model.Subscriber]{}, m.ListSubscribersErr
	}

	var matched []model.Subscriber
	for _, subscriber := range m.subscribers {
		if subscriber.Status == status {
			matched = append(matched, subscriber)
		}
	}

	return paginate(matched, cursor, pageSize)
}

func (m *Memory) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.Closed = true
	return nil
}

func (m *Memory) newID() string {
	m.nextID++
	return strconv.Itoa(m.nextID)
}

func paginate[T any](items []T, cursor string, pageSize int) (store.Page[T], error) {
	offset := 0
	if cursor != "" {
		var err error
		if offset, err = strconv.Atoi(cursor); err != nil || offset < 0 || offset > len(items) {
			return store.Page[T]{}, fmt.Errorf("invalid cursor: %q", cursor)
		}
	}

	end := min(offset+pageSize, len(items))
	page := store.Page[T]{Items: slices.Clone(items[offset:end])}
	if end < len(items) {
		page.HasMore = true
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}
