// Package store defines the article and subscriber store used by both pipelines.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/mo"

	"github.com/sysjosh/digestd/internal/model"
)

const PageSize = 100

// ErrAlreadyExists is returned by CreateArticle when an article with the same URL is already stored.
var ErrAlreadyExists = errors.New("the article already exists")

// Page is one page of a cursor-paginated listing. An empty cursor requests the first page.
type Page[T any] struct {
	Items      []T
	HasMore    bool
	NextCursor string
}

type ArticleFilter struct {
	Selected mo.Option[bool]
}

type Articles interface {
	ListArticles(ctx context.Context, filter ArticleFilter, cursor string, pageSize int) (Page[model.Article], error)
	CreateArticle(ctx context.Context, article model.Article) (string, error)
	SetSelected(ctx context.Context, id string, selected bool) error
}

type Subscribers interface {
	ListSubscribers(ctx context.Context, status model.SubscriberStatus, cursor string, pageSize int) (Page[model.Subscriber], error)
}

type Backend interface {
	Articles
	Subscribers
	Close() error
}

func CollectArticles(ctx context.Context, articles Articles, filter ArticleFilter) ([]model.Article, error) {
	return collect(ctx, func(ctx context.Context, cursor string) (Page[model.Article], error) {
		return articles.ListArticles(ctx, filter, cursor, PageSize)
	})
}

func CollectSubscribers(
	ctx context.Context, subscribers Subscribers, status model.SubscriberStatus,
) ([]model.Subscriber, error) {
	return collect(ctx, func(ctx context.Context, cursor string) (Page[model.Subscriber], error) {
		return subscribers.ListSubscribers(ctx, status, cursor, PageSize)
	})
}

func collect[T any](ctx context.Context, list func(ctx context.Context, cursor string) (Page[T], error)) ([]T, error) {
	var (
		items  []T
		cursor string
	)

	for pageNum := 1; ; pageNum++ {
		page, err := list(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to list page #%d: %w", pageNum, err)
		}

		items = append(items, page.Items...)
		if !page.HasMore {
			return items, nil
		}

		if page.NextCursor == "" || page.NextCursor == cursor {
			return nil, fmt.Errorf("got an invalid cursor for page #%d: %q", pageNum+1, page.NextCursor)
		}
		cursor = page.NextCursor
	}
}
