package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/require"

	"github.com/sysjosh/digestd/internal/feeds"
	"github.com/sysjosh/digestd/internal/metrics"
	"github.com/sysjosh/digestd/internal/model"
	"github.com/sysjosh/digestd/internal/store/storetest"
	"github.com/sysjosh/digestd/pkg/test/testutil"
)

func newIngester(memory *storetest.Memory, options Options) *Ingester {
	ingester := NewIngester(memory, metrics.New(), options)
	ingester.now = func() time.Time {
		return time.Date(2026, 10, 15, 9, 0, 0, 0, time.FixedZone("MSK", 3*60*60))
	}
	return ingester
}

func TestBuildIndex(t *testing.T) {
	t.Parallel()

	memory := storetest.NewMemory()
	for i := range 230 {
		memory.AddArticle(model.Article{URL: fmt.Sprintf("https://example.com/%d", i)})
	}

	index, err := BuildIndex(testutil.Context(t), memory)
	require.NoError(t, err)
	require.Len(t, index, 230)
	require.True(t, index.Contains("https://example.com/229"))
	require.False(t, index.Contains("https://example.com/230"))
}

func TestBuildIndexFailure(t *testing.T) {
	t.Parallel()

	memory := storetest.NewMemory()
	memory.ListArticlesErr = errors.New("unauthorized")

	_, err := BuildIndex(testutil.Context(t), memory)
	require.ErrorIs(t, err, memory.ListArticlesErr)
}

func TestIngest(t *testing.T) {
	t.Parallel()

	ctx := testutil.Context(t)
	memory := storetest.NewMemory()
	memory.AddArticle(model.Article{Title: "Stored", URL: "https://a.example.com/1"})

	ingester := newIngester(memory, Options{
		Sources: []model.FeedSource{
			{Name: "A", Category: "Go"},
			{Name: "B"},
		},
	})

	index, err := BuildIndex(ctx, memory)
	require.NoError(t, err)

	result, err := ingester.Ingest(ctx, index, []model.FeedItem{
		{Title: "A1", Link: "https://a.example.com/1", Source: "A"},
		{Title: "A2", Link: "https://a.example.com/2", Source: "A"},
		{Title: "B1", Link: "https://b.example.com/1", Source: "B"},
		{Title: "B1 again", Link: "https://b.example.com/1", Source: "B"},
		{Title: "A2 from B", Link: "https://a.example.com/2", Source: "B"},
	})
	require.NoError(t, err)
	require.Equal(t, Result{Added: 2, Skipped: 3}, result)
	require.Equal(t, 2, memory.CreateCalls)

	articles := memory.Articles()
	require.Len(t, articles, 3)
	require.Equal(t, model.Article{
		ID:       articles[1].ID,
		Title:    "A2",
		URL:      "https://a.example.com/2",
		Category: mo.Some("Go"),
		AddedAt:  time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC),
		Selected: false,
	}, articles[1])
	require.Equal(t, time.UTC, articles[1].AddedAt.Location())
	require.False(t, articles[2].Category.IsPresent())
}

func TestIngestIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := testutil.Context(t)
	memory := storetest.NewMemory()
	ingester := newIngester(memory, Options{})

	items := []model.FeedItem{
		{Title: "1", Link: "https://example.com/1", Source: "A"},
		{Title: "2", Link: "https://example.com/2", Source: "A"},
	}

	for _, expected := range []Result{{Added: 2}, {Skipped: 2}} {
		index, err := BuildIndex(ctx, memory)
		require.NoError(t, err)

		result, err := ingester.Ingest(ctx, index, items)
		require.NoError(t, err)
		require.Equal(t, expected, result)
	}

	require.Len(t, memory.Articles(), 2)
}

func TestIngestFailureIsolation(t *testing.T) {
	t.Parallel()

	ctx := testutil.Context(t)
	memory := storetest.NewMemory()
	memory.CreateErrs["https://example.com/2"] = errors.New("validation error")
	ingester := newIngester(memory, Options{})

	result, err := ingester.Ingest(ctx, Index{}, []model.FeedItem{
		{Title: "1", Link: "https://example.com/1"},
		{Title: "2", Link: "https://example.com/2"},
		{Title: "3", Link: "https://example.com/3"},
	})
	require.NoError(t, err)
	require.Equal(t, Result{Added: 2, Failed: 1}, result)
	require.Equal(t, 3, memory.CreateCalls)
}

func TestIngestAlreadyExists(t *testing.T) {
	t.Parallel()

	ctx := testutil.Context(t)
	memory := storetest.NewMemory()
	memory.AddArticle(model.Article{URL: "https://example.com/1"})

	// The index is stale: the article has been added after it was built.
	result, err := newIngester(memory, Options{}).Ingest(ctx, Index{}, []model.FeedItem{
		{Title: "1", Link: "https://example.com/1"},
	})
	require.NoError(t, err)
	require.Equal(t, Result{Skipped: 1}, result)
}

func TestIngestDryRun(t *testing.T) {
	t.Parallel()

	memory := storetest.NewMemory()
	result, err := newIngester(memory, Options{DryRun: true}).Ingest(testutil.Context(t), Index{}, []model.FeedItem{
		{Title: "1", Link: "https://example.com/1"},
		{Title: "1", Link: "https://example.com/1"},
	})
	require.NoError(t, err)
	require.Equal(t, Result{Added: 1, Skipped: 1}, result)
	require.Zero(t, memory.CreateCalls)
}

func TestIngestDelay(t *testing.T) {
	t.Parallel()

	memory := storetest.NewMemory()
	ingester := newIngester(memory, Options{InsertDelay: 20 * time.Millisecond})

	startTime := time.Now()
	result, err := ingester.Ingest(testutil.Context(t), Index{}, []model.FeedItem{
		{Link: "https://example.com/1"},
		{Link: "https://example.com/2"},
		{Link: "https://example.com/3"},
	})
	require.NoError(t, err)
	require.Equal(t, 3, result.Added)
	require.GreaterOrEqual(t, time.Since(startTime), 40*time.Millisecond)

	ctx, cancel := context.WithCancel(testutil.Context(t))
	cancel()

	_, err = newIngester(memory, Options{InsertDelay: time.Hour}).Ingest(ctx, Index{}, []model.FeedItem{
		{Link: "https://example.com/4"},
		{Link: "https://example.com/5"},
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPipeline(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		switch r.URL.Path {
		case "/a":
			_, _ = fmt.Fprint(w, `<rss version="2.0"><channel><title>A</title>`+
				`<item><title>A1</title><link>https://a.example.com/1</link></item>`+
				`<item><title>A2</title><link>https://a.example.com/2</link></item>`+
				`</channel></rss>`)
		case "/b":
			_, _ = fmt.Fprint(w, `<rss version="2.0"><channel><title>B</title></channel></rss>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	sources := []model.FeedSource{
		{Name: "A", URL: server.URL + "/a", Category: "Tech"},
		{Name: "B", URL: server.URL + "/b", Category: "Science"},
	}

	memory := storetest.NewMemory()
	memory.AddArticle(model.Article{Title: "A1", URL: "https://a.example.com/1"})

	m := metrics.New()
	pipeline := NewPipeline(sources, feeds.NewFetcher(10, m), memory, NewIngester(memory, m, Options{Sources: sources}), m)

	result, err := pipeline.Run(testutil.Context(t))
	require.NoError(t, err)
	require.Equal(t, Result{Added: 1, Skipped: 1}, result)

	articles := memory.Articles()
	require.Len(t, articles, 2)
	require.Equal(t, "https://a.example.com/2", articles[1].URL)
	require.Equal(t, mo.Some("Tech"), articles[1].Category)
	require.False(t, articles[1].Selected)

	memory.ListArticlesErr = errors.New("unauthorized")
	_, err = pipeline.Run(testutil.Context(t))
	require.ErrorIs(t, err, memory.ListArticlesErr)
	require.Len(t, memory.Articles(), 2)
}
