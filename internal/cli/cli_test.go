package cli

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/samber/do/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/sysjosh/digestd/internal/config"
	"github.com/sysjosh/digestd/internal/ingest"
	"github.com/sysjosh/digestd/internal/model"
	"github.com/sysjosh/digestd/internal/store"
	"github.com/sysjosh/digestd/pkg/test/testutil"
)

func newTestConfig(t *testing.T, feedURL string) *config.Config {
	return &config.Config{
		Store: config.StoreConfig{
			Backend: config.BackendSQLite,
			SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "digestd.db")},
		},
		Digest: config.DigestConfig{
			Title:   "Test Weekly",
			Subject: "Test Weekly",
			Intro:   "Hello!",
			BaseURL: "https://weekly.example.com",
		},
		Ingest: config.IngestConfig{
			ItemLimit:   10,
			FeedTimeout: 5 * time.Second,
			UserAgent:   "digestd-test",
			Interval:    time.Hour,
		},
		Sources: []model.FeedSource{{Name: "Go Blog", URL: feedURL, Category: "Go"}},
	}
}

func newFeedServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = fmt.Fprint(w, heredoc.Doc(`
			<?xml version="1.0" encoding="UTF-8"?>
			<rss version="2.0">
			<channel>
				<title>The Go Blog</title>
				<item><title>Go 1.26 is released</title><link>https://go.dev/blog/go1.26</link></item>
				<item><title>Range over functions</title><link>https://go.dev/blog/range-functions</link></item>
			</channel>
			</rss>
		`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestIngestAndPreview(t *testing.T) {
	t.Parallel()

	ctx := testutil.Context(t)
	cfg := newTestConfig(t, newFeedServer(t).URL)

	c := newContainer(ctx, cfg, containerOptions{})
	defer c.close(ctx)

	pipeline, err := do.Invoke[*ingest.Pipeline](c.injector)
	require.NoError(t, err)

	result, err := pipeline.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, ingest.Result{Added: 2}, result)

	// The second run finds nothing new
	result, err = pipeline.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, ingest.Result{Skipped: 2}, result)

	backend := do.MustInvoke[store.Backend](c.injector)
	articles, err := store.CollectArticles(ctx, backend, store.ArticleFilter{})
	require.NoError(t, err)
	require.Len(t, articles, 2)

	for _, article := range articles {
		require.Equal(t, "Go", article.Category.OrEmpty())
		if article.URL == "https://go.dev/blog/go1.26" {
			require.NoError(t, backend.SetSelected(ctx, article.ID, true))
		}
	}

	html, err := c.preview(ctx, "secret-token")
	require.NoError(t, err)
	require.Contains(t, html, "Go 1.26 is released")
	require.NotContains(t, html, "Range over functions")
	require.Contains(t, html, "https://weekly.example.com/unsubscribe?token=secret-token")
}

func TestDryRun(t *testing.T) {
	t.Parallel()

	ctx := testutil.Context(t)
	cfg := newTestConfig(t, newFeedServer(t).URL)

	c := newContainer(ctx, cfg, containerOptions{dryRun: true})
	defer c.close(ctx)

	result, err := do.MustInvoke[*ingest.Pipeline](c.injector).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, result.Added)

	articles, err := store.CollectArticles(ctx, do.MustInvoke[store.Backend](c.injector), store.ArticleFilter{})
	require.NoError(t, err)
	require.Empty(t, articles)
}

func TestPreviewWithoutBaseURL(t *testing.T) {
	t.Parallel()

	ctx := testutil.Context(t)
	cfg := newTestConfig(t, "https://go.dev/blog/feed.atom")
	cfg.Digest.BaseURL = ""

	c := newContainer(ctx, cfg, containerOptions{})
	defer c.close(ctx)

	_, err := c.preview(ctx, "")
	require.ErrorContains(t, err, "NEXT_PUBLIC_BASE_URL")
}

func TestLogger(t *testing.T) {
	t.Parallel()

	logger, err := newLogger(config.LogConfig{Level: "warn"}, false)
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = newLogger(config.LogConfig{Level: "warn"}, true)
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger(config.LogConfig{Level: "loud"}, false)
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	var output bytes.Buffer
	cmd := newVersionCommand()
	cmd.SetOut(&output)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	require.Equal(t, "digestd dev (commit: none)\n", output.String())
}
