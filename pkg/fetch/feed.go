package fetch

import (
	"context"
	"io"
	"net/url"

	"github.com/mmcdole/gofeed"
)

// Feed fetches and parses an RSS, Atom or JSON feed. Content-Type is ignored: feeds are served with all sorts of
// media types, so the format is detected from the body.
func Feed(ctx context.Context, url *url.URL, options ...Option) (*gofeed.Feed, error) {
	return fetch(ctx, url, nil, func(body io.Reader) (*gofeed.Feed, error) {
		return gofeed.NewParser().Parse(body)
	}, options...)
}
