package ingest

import (
	"context"
	"errors"
	"time"

	logging "github.com/KonishchevDmitry/go-easy-logging"
	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/sysjosh/digestd/internal/metrics"
	"github.com/sysjosh/digestd/internal/model"
	"github.com/sysjosh/digestd/internal/store"
	"github.com/sysjosh/digestd/internal/util"
)

const DefaultInsertDelay = 350 * time.Millisecond

type Result struct {
	Added   int
	Skipped int
	Failed  int
}

type Options struct {
	// Sources provide the source name -> category mapping.
	Sources     []model.FeedSource
	InsertDelay time.Duration
	DryRun      bool
}

type Ingester struct {
	articles   store.Articles
	metrics    *metrics.Metrics
	categories map[string]string
	delay      time.Duration
	dryRun     bool
	now        func() time.Time
}

func NewIngester(articles store.Articles, metrics *metrics.Metrics, options Options) *Ingester {
	categories := lo.SliceToMap(
		lo.Filter(options.Sources, func(source model.FeedSource, _ int) bool {
			return source.Category != ""
		}),
		func(source model.FeedSource) (string, string) {
			return source.Name, source.Category
		})

	return &Ingester{
		articles:   articles,
		metrics:    metrics,
		categories: categories,
		delay:      options.InsertDelay,
		dryRun:     options.DryRun,
		now:        time.Now,
	}
}

// Ingest stores the items which are missing in the index. A failure to store an item is logged and counted;
// only context cancellation stops the batch.
func (i *Ingester) Ingest(ctx context.Context, index Index, items []model.FeedItem) (Result, error) {
	var (
		result  Result
		created int
	)
	defer func() {
		i.metrics.Articles(metrics.ArticlesAdded, result.Added)
		i.metrics.Articles(metrics.ArticlesSkipped, result.Skipped)
		i.metrics.Articles(metrics.ArticlesFailed, result.Failed)
	}()

	for _, item := range items {
		if index.Contains(item.Link) {
			logging.L(ctx).Debugf("Skipping %s: it's already stored.", item.Link)
			result.Skipped++
			continue
		}

		article := i.newArticle(item)

		if i.dryRun {
			logging.L(ctx).Infof("Would add %q (%s) from %q.", article.Title, article.URL, item.Source)
			index.Add(item.Link)
			result.Added++
			continue
		}

		if created != 0 {
			if err := sleep(ctx, i.delay); err != nil {
				return result, err
			}
		}
		created++

		id, err := i.articles.CreateArticle(ctx, article)
		if errors.Is(err, store.ErrAlreadyExists) {
			logging.L(ctx).Debugf("Skipping %s: it's already stored.", item.Link)
			index.Add(item.Link)
			result.Skipped++
			continue
		} else if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			if util.IsTemporaryError(err) {
				logging.L(ctx).Warnf("Failed to add %s: %s.", item.Link, err)
			} else {
				logging.L(ctx).Errorf("Failed to add %s: %s.", item.Link, err)
			}
			result.Failed++
			continue
		}

		logging.L(ctx).Infof("Added %q (%s) as %s.", article.Title, article.URL, id)
		index.Add(item.Link)
		result.Added++
	}

	return result, nil
}

func (i *Ingester) newArticle(item model.FeedItem) model.Article {
	return model.Article{
		Title:    item.Title,
		URL:      item.Link,
		Category: mo.EmptyableToOption(i.categories[item.Source]),
		AddedAt:  i.now().UTC(),
		Selected: false,
	}
}

func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
