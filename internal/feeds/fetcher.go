// Package feeds pulls the configured RSS/Atom feeds and turns their entries into feed items.
package feeds

import (
	"context"
	"net/url"

	logging "github.com/KonishchevDmitry/go-easy-logging"
	"github.com/mmcdole/gofeed"

	"github.com/sysjosh/digestd/internal/metrics"
	"github.com/sysjosh/digestd/internal/model"
	"github.com/sysjosh/digestd/internal/util"
	"github.com/sysjosh/digestd/pkg/fetch"
)

type Fetcher struct {
	limit   int
	metrics *metrics.Metrics
	options []fetch.Option
}

// NewFetcher creates a fetcher which takes at most limit entries from each feed. Zero limit means no limit.
func NewFetcher(limit int, metrics *metrics.Metrics, options ...fetch.Option) *Fetcher {
	return &Fetcher{
		limit:   limit,
		metrics: metrics,
		options: options,
	}
}

// FetchAll fetches the sources in order. A failed source is logged and skipped.
func (f *Fetcher) FetchAll(ctx context.Context, sources []model.FeedSource) []model.FeedItem {
	var items []model.FeedItem

	for _, source := range sources {
		sourceItems, err := f.Fetch(ctx, source)
		if err != nil {
			if util.IsTemporaryError(err) {
				logging.L(ctx).Warnf("Failed to fetch %q feed: %s.", source.Name, err)
				f.metrics.FeedStatus(source.Name, metrics.FeedStatusUnavailable)
			} else {
				logging.L(ctx).Errorf("Failed to fetch %q feed: %s.", source.Name, err)
				f.metrics.FeedStatus(source.Name, metrics.FeedStatusError)
			}
			continue
		}

		f.metrics.FeedStatus(source.Name, metrics.FeedStatusSuccess)
		items = append(items, sourceItems...)
	}

	return items
}

func (f *Fetcher) Fetch(ctx context.Context, source model.FeedSource) ([]model.FeedItem, error) {
	feedURL, err := url.Parse(source.URL)
	if err != nil {
		return nil, err
	}

	logging.L(ctx).Infof("Fetching %q feed...", source.Name)

	ctx = fetch.WithContext(ctx, f.metrics.FetchDuration(metrics.FetchKindFeed))
	feed, err := fetch.Feed(ctx, feedURL, f.options...)
	if err != nil {
		return nil, err
	}

	entries := feed.Items
	if f.limit > 0 && len(entries) > f.limit {
		entries = entries[:f.limit]
	}

	items := make([]model.FeedItem, 0, len(entries))
	for _, entry := range entries {
		item, ok := model.NewFeedItem(entry.Title, entryLink(entry), source.Name)
		if !ok {
			logging.L(ctx).Debugf("Skipping %q entry of %q feed: it has no link.", entry.Title, source.Name)
			continue
		}
		items = append(items, item)
	}

	logging.L(ctx).Infof("Got %d items from %q feed.", len(items), source.Name)
	return items, nil
}

func entryLink(entry *gofeed.Item) string {
	if entry.Link != "" {
		return entry.Link
	}
	for _, link := range entry.Links {
		if link != "" {
			return link
		}
	}
	return ""
}
