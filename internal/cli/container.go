package cli

import (
	"context"
	"fmt"

	logging "github.com/KonishchevDmitry/go-easy-logging"
	"github.com/samber/do/v2"
	"github.com/samber/mo"
	"github.com/samber/oops"

	"github.com/sysjosh/digestd/internal/config"
	"github.com/sysjosh/digestd/internal/digest"
	"github.com/sysjosh/digestd/internal/dispatch"
	"github.com/sysjosh/digestd/internal/feeds"
	"github.com/sysjosh/digestd/internal/ingest"
	"github.com/sysjosh/digestd/internal/metrics"
	"github.com/sysjosh/digestd/internal/scheduler"
	"github.com/sysjosh/digestd/internal/server"
	"github.com/sysjosh/digestd/internal/store"
	"github.com/sysjosh/digestd/internal/store/notion"
	"github.com/sysjosh/digestd/internal/store/sqlstore"
	"github.com/sysjosh/digestd/pkg/fetch"
)

type containerOptions struct {
	dryRun bool
}

// container wires the components. Each component is constructed on first use.
type container struct {
	injector do.Injector
	backend  mo.Option[store.Backend]
}

func newContainer(ctx context.Context, cfg *config.Config, options containerOptions) *container {
	c := &container{injector: do.New()}
	i := c.injector

	do.ProvideValue(i, cfg)
	do.ProvideValue(i, metrics.New())

	do.Provide(i, func(i do.Injector) (store.Backend, error) {
		backend, err := openBackend(ctx, cfg)
		if err != nil {
			return nil, oops.With("backend", cfg.Store.Backend).Wrap(err)
		}
		c.backend = mo.Some(backend)
		return backend, nil
	})

	do.Provide(i, func(i do.Injector) (*feeds.Fetcher, error) {
		return feeds.NewFetcher(
			cfg.Ingest.ItemLimit, do.MustInvoke[*metrics.Metrics](i),
			fetch.Timeout(cfg.Ingest.FeedTimeout), fetch.UserAgent(cfg.Ingest.UserAgent),
		), nil
	})

	do.Provide(i, func(i do.Injector) (*ingest.Ingester, error) {
		backend, err := do.Invoke[store.Backend](i)
		if err != nil {
			return nil, err
		}
		return ingest.NewIngester(backend, do.MustInvoke[*metrics.Metrics](i), ingest.Options{
			Sources:     cfg.Sources,
			InsertDelay: cfg.Ingest.InsertDelay,
			DryRun:      options.dryRun,
		}), nil
	})

	do.Provide(i, func(i do.Injector) (*ingest.Pipeline, error) {
		backend, err := do.Invoke[store.Backend](i)
		if err != nil {
			return nil, err
		}
		ingester, err := do.Invoke[*ingest.Ingester](i)
		if err != nil {
			return nil, err
		}
		return ingest.NewPipeline(
			cfg.Sources, do.MustInvoke[*feeds.Fetcher](i), backend, ingester, do.MustInvoke[*metrics.Metrics](i),
		), nil
	})

	do.Provide(i, func(i do.Injector) (*digest.Composer, error) {
		if err := cfg.ValidateDigest(); err != nil {
			return nil, err
		}
		baseURL, err := cfg.BaseURL()
		if err != nil {
			return nil, err
		}

		options := digest.Options{
			Title:        cfg.Digest.Title,
			Intro:        cfg.Digest.Intro,
			BaseURL:      baseURL,
			RequireImage: cfg.Digest.RequireImage,
		}
		if cfg.Digest.PreviewImages {
			options.Images = digest.NewPreviewer(
				cfg.Digest.ImageCacheTTL, do.MustInvoke[*metrics.Metrics](i),
				fetch.Timeout(cfg.Digest.ImageTimeout), fetch.UserAgent(cfg.Ingest.UserAgent),
			)
		}

		return digest.NewComposer(options)
	})

	do.Provide(i, func(i do.Injector) (dispatch.Mailer, error) {
		return dispatch.NewSMTPMailer(dispatch.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			FromName: cfg.SMTP.FromName,
			Timeout:  cfg.SMTP.Timeout,
		}), nil
	})

	do.Provide(i, func(i do.Injector) (*dispatch.Dispatcher, error) {
		backend, err := do.Invoke[store.Backend](i)
		if err != nil {
			return nil, err
		}
		composer, err := do.Invoke[*digest.Composer](i)
		if err != nil {
			return nil, err
		}
		return dispatch.NewDispatcher(
			backend, backend, composer, do.MustInvoke[dispatch.Mailer](i), cfg.Digest.Subject,
			do.MustInvoke[*metrics.Metrics](i),
		), nil
	})

	do.Provide(i, func(i do.Injector) (*scheduler.Scheduler, error) {
		pipeline, err := do.Invoke[*ingest.Pipeline](i)
		if err != nil {
			return nil, err
		}
		return scheduler.New("ingestion", cfg.Ingest.Interval, func(ctx context.Context) error {
			_, err := pipeline.Run(ctx)
			return err
		}), nil
	})

	do.Provide(i, func(i do.Injector) (*server.Server, error) {
		ingestion, err := do.Invoke[*scheduler.Scheduler](i)
		if err != nil {
			return nil, err
		}
		return server.New(ctx, ingestion, c.preview, do.MustInvoke[*metrics.Metrics](i))
	})

	return c
}

func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.Store.Backend {
	case config.BackendNotion:
		return notion.New(notion.Config{
			APIURL:                cfg.Store.Notion.APIURL,
			Token:                 cfg.Store.Notion.Token,
			ArticlesDatabaseID:    cfg.Store.Notion.ArticlesDatabaseID,
			SubscribersDatabaseID: cfg.Store.Notion.SubscribersDatabaseID,
			Timeout:               cfg.Store.Timeout,
		})
	case config.BackendSQLite:
		return sqlstore.OpenSQLite(ctx, cfg.Store.SQLite.Path)
	case config.BackendPostgres:
		return sqlstore.OpenPostgres(ctx, cfg.Store.Postgres.DSN)
	default:
		return nil, fmt.Errorf("unsupported store backend: %q", cfg.Store.Backend)
	}
}

// preview renders the digest of the currently selected articles.
func (c *container) preview(ctx context.Context, token string) (string, error) {
	backend, err := do.Invoke[store.Backend](c.injector)
	if err != nil {
		return "", err
	}
	composer, err := do.Invoke[*digest.Composer](c.injector)
	if err != nil {
		return "", err
	}

	articles, err := store.CollectArticles(ctx, backend, store.ArticleFilter{Selected: mo.Some(true)})
	if err != nil {
		return "", fmt.Errorf("failed to get selected articles: %w", err)
	}
	logging.L(ctx).Infof("Rendering digest preview of %d selected articles...", len(articles))

	return composer.Compose(ctx, articles, token)
}

// pushMetrics pushes the metrics of a one-shot run to Pushgateway if it's configured.
func (c *container) pushMetrics(ctx context.Context, job string) {
	cfg := do.MustInvoke[*config.Config](c.injector)
	if cfg.Metrics.PushgatewayURL == "" {
		return
	}

	if err := do.MustInvoke[*metrics.Metrics](c.injector).Push(ctx, cfg.Metrics.PushgatewayURL, job); err != nil {
		logging.L(ctx).Errorf("Failed to push metrics to %s: %s.", cfg.Metrics.PushgatewayURL, err)
	}
}

func (c *container) close(ctx context.Context) {
	if backend, ok := c.backend.Get(); ok {
		if err := backend.Close(); err != nil {
			logging.L(ctx).Errorf("Failed to close the store: %s.", err)
		}
	}
}
