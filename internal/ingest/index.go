package ingest

import (
	"context"
	"fmt"

	logging "github.com/KonishchevDmitry/go-easy-logging"

	"github.com/sysjosh/digestd/internal/store"
)

// Index is the set of article URLs known to the store.
type Index map[string]struct{}

// BuildIndex loads the URLs of all stored articles. Any failure is returned: a partial index would
// let duplicates through.
func BuildIndex(ctx context.Context, articles store.Articles) (Index, error) {
	records, err := store.CollectArticles(ctx, articles, store.ArticleFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to build the deduplication index: %w", err)
	}

	index := make(Index, len(records))
	for _, article := range records {
		index.Add(article.URL)
	}

	logging.L(ctx).Debugf("Deduplication index contains %d URLs.", len(index))
	return index, nil
}

func (i Index) Contains(url string) bool {
	_, ok := i[url]
	return ok
}

func (i Index) Add(url string) {
	i[url] = struct{}{}
}
