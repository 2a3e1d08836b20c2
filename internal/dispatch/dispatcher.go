// Package dispatch sends the digest of the selected articles to all active subscribers.
package dispatch

import (
	"context"
	"fmt"
	"time"

	logging "github.com/KonishchevDmitry/go-easy-logging"
	"github.com/samber/mo"

	"github.com/sysjosh/digestd/internal/digest"
	"github.com/sysjosh/digestd/internal/metrics"
	"github.com/sysjosh/digestd/internal/model"
	"github.com/sysjosh/digestd/internal/store"
)

type Report struct {
	Articles    int
	Subscribers int
	Sent        int
	Failed      int
	Skipped     int
	Reset       int
	ResetFailed int
}

type Dispatcher struct {
	articles    store.Articles
	subscribers store.Subscribers
	composer    *digest.Composer
	mailer      Mailer
	subject     string
	metrics     *metrics.Metrics
}

func NewDispatcher(
	articles store.Articles, subscribers store.Subscribers, composer *digest.Composer, mailer Mailer,
	subject string, metrics *metrics.Metrics,
) *Dispatcher {
	return &Dispatcher{
		articles:    articles,
		subscribers: subscribers,
		composer:    composer,
		mailer:      mailer,
		subject:     subject,
		metrics:     metrics,
	}
}

// Run sends the digest to every active subscriber and then clears the selection. The selection is cleared
// even if some sends have failed. Nothing is sent or cleared when there are no selected articles or no
// active subscribers.
func (d *Dispatcher) Run(ctx context.Context) (Report, error) {
	var report Report
	startTime := time.Now()

	articles, err := store.CollectArticles(ctx, d.articles, store.ArticleFilter{Selected: mo.Some(true)})
	if err != nil {
		return report, fmt.Errorf("failed to get selected articles: %w", err)
	}
	report.Articles = len(articles)

	if len(articles) == 0 {
		logging.L(ctx).Infof("There are no selected articles. Nothing to send.")
		return report, nil
	}

	subscribers, err := store.CollectSubscribers(ctx, d.subscribers, model.SubscriberStatusActive)
	if err != nil {
		return report, fmt.Errorf("failed to get active subscribers: %w", err)
	}
	report.Subscribers = len(subscribers)

	if len(subscribers) == 0 {
		logging.L(ctx).Infof("There are no active subscribers. Nothing to send.")
		return report, nil
	}

	logging.L(ctx).Infof("Sending %d articles to %d subscribers...", len(articles), len(subscribers))

	content := d.composer.Build(ctx, articles)
	if content.Empty() {
		logging.L(ctx).Warnf("The digest is empty: none of %d selected articles can be included.", len(articles))
	} else {
		d.send(ctx, content, subscribers, &report)
	}

	d.reset(ctx, articles, &report)

	logging.L(ctx).Infof(
		"Digest dispatch finished: %d sent, %d failed, %d skipped, %d articles reset (%d failed).",
		report.Sent, report.Failed, report.Skipped, report.Reset, report.ResetFailed)

	d.metrics.Digests(metrics.DigestsSent, report.Sent)
	d.metrics.Digests(metrics.DigestsFailed, report.Failed)
	d.metrics.Digests(metrics.DigestsSkipped, report.Skipped)
	d.metrics.Articles(metrics.ArticlesReset, report.Reset)
	d.metrics.RunFinished(metrics.PipelineDigest, startTime)

	return report, nil
}

func (d *Dispatcher) send(ctx context.Context, content *digest.Digest, subscribers []model.Subscriber, report *Report) {
	for _, subscriber := range subscribers {
		if subscriber.Email == "" {
			logging.L(ctx).Debugf("Skipping subscriber %s: it has no e-mail.", subscriber.ID)
			report.Skipped++
			continue
		}

		html, err := d.composer.Render(content, subscriber.UnsubscribeToken)
		if err != nil {
			logging.L(ctx).Errorf("Failed to compose the digest for %s: %s.", subscriber.Email, err)
			report.Failed++
			continue
		}

		if err := d.mailer.Send(ctx, Message{
			To:      subscriber.Email,
			Subject: d.subject,
			HTML:    html,
		}); err != nil {
			logging.L(ctx).Errorf("Failed to send the digest to %s: %s.", subscriber.Email, err)
			report.Failed++
			continue
		}

		logging.L(ctx).Infof("Sent the digest to %s.", subscriber.Email)
		report.Sent++
	}
}

func (d *Dispatcher) reset(ctx context.Context, articles []model.Article, report *Report) {
	for _, article := range articles {
		if err := d.articles.SetSelected(ctx, article.ID, false); err != nil {
			logging.L(ctx).Errorf("Failed to reset selection of %s (%s): %s.", article.ID, article.URL, err)
			report.ResetFailed++
			continue
		}
		report.Reset++
	}
}
