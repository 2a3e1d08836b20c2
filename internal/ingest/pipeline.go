package ingest

import (
	"context"
	"time"

	logging "github.com/KonishchevDmitry/go-easy-logging"

	"github.com/sysjosh/digestd/internal/feeds"
	"github.com/sysjosh/digestd/internal/metrics"
	"github.com/sysjosh/digestd/internal/model"
	"github.com/sysjosh/digestd/internal/store"
)

// Pipeline is one ingestion run: fetch all feeds, deduplicate against the store, store the new items.
type Pipeline struct {
	sources  []model.FeedSource
	fetcher  *feeds.Fetcher
	articles store.Articles
	ingester *Ingester
	metrics  *metrics.Metrics
}

func NewPipeline(
	sources []model.FeedSource, fetcher *feeds.Fetcher, articles store.Articles, ingester *Ingester,
	metrics *metrics.Metrics,
) *Pipeline {
	return &Pipeline{
		sources:  sources,
		fetcher:  fetcher,
		articles: articles,
		ingester: ingester,
		metrics:  metrics,
	}
}

func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	startTime := time.Now()
	logging.L(ctx).Infof("Starting ingestion of %d feeds...", len(p.sources))

	items := p.fetcher.FetchAll(ctx, p.sources)
	if len(items) == 0 {
		logging.L(ctx).Infof("No feed items to ingest.")
		p.metrics.RunFinished(metrics.PipelineIngest, startTime)
		return Result{}, nil
	}

	index, err := BuildIndex(ctx, p.articles)
	if err != nil {
		return Result{}, err
	}

	result, err := p.ingester.Ingest(ctx, index, items)
	if err != nil {
		return result, err
	}

	logging.L(ctx).Infof(
		"Ingestion finished: %d added, %d skipped, %d failed.", result.Added, result.Skipped, result.Failed)
	p.metrics.RunFinished(metrics.PipelineIngest, startTime)

	return result, nil
}
