package digest

import (
	"context"
	"net/url"
	"time"

	logging "github.com/KonishchevDmitry/go-easy-logging"
	"github.com/samber/mo"

	"github.com/sysjosh/digestd/internal/metrics"
	"github.com/sysjosh/digestd/pkg/cache"
	"github.com/sysjosh/digestd/pkg/fetch"
	"github.com/sysjosh/digestd/pkg/query"
	urlutil "github.com/sysjosh/digestd/pkg/url"
)

const (
	DefaultImageTimeout  = 5 * time.Second
	DefaultImageCacheTTL = 6 * time.Hour
	imageCacheSize       = 10000
)

// Previewer looks up og:image of article pages. Lookup results, including misses, are cached.
type Previewer struct {
	cache   *cache.Cache[mo.Option[string]]
	metrics *metrics.Metrics
	options []fetch.Option
}

var _ ImageSource = &Previewer{}

func NewPreviewer(cacheTTL time.Duration, metrics *metrics.Metrics, options ...fetch.Option) *Previewer {
	return &Previewer{
		cache:   cache.New[mo.Option[string]](cacheTTL, imageCacheSize),
		metrics: metrics,
		options: options,
	}
}

func (p *Previewer) Image(ctx context.Context, pageURL string) mo.Option[string] {
	parsedURL, err := urlutil.ParseHTTP(pageURL)
	if err != nil {
		logging.L(ctx).Debugf("Can't get preview image for %q: %s.", pageURL, err)
		return mo.None[string]()
	}

	ctx = fetch.WithContext(ctx, p.metrics.FetchDuration(metrics.FetchKindPage))
	image, _ := p.cache.Cached(ctx, parsedURL, p.fetchImage)
	return image
}

func (p *Previewer) fetchImage(ctx context.Context, pageURL *url.URL) (mo.Option[string], error) {
	doc, err := fetch.HTML(ctx, pageURL, p.options...)
	if err != nil {
		logging.L(ctx).Debugf("Can't get preview image for %s: %s.", pageURL, err)
		return mo.None[string](), nil
	}

	content, ok := query.Meta(doc.Selection, "og:image")
	if !ok {
		logging.L(ctx).Debugf("%s has no preview image.", pageURL)
		return mo.None[string](), nil
	}

	imageURL, err := urlutil.Resolve(pageURL, content)
	if err != nil {
		logging.L(ctx).Debugf("%s has an invalid preview image: %s.", pageURL, err)
		return mo.None[string](), nil
	}

	return mo.Some(imageURL.String()), nil
}
