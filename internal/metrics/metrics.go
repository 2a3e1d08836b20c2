package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	FeedStatusSuccess     = "success"
	FeedStatusUnavailable = "unavailable"
	FeedStatusError       = "error"

	FetchKindFeed = "feed"
	FetchKindPage = "page"

	ArticlesAdded   = "added"
	ArticlesSkipped = "skipped"
	ArticlesFailed  = "failed"
	ArticlesReset   = "reset"

	DigestsSent    = "sent"
	DigestsFailed  = "failed"
	DigestsSkipped = "skipped"

	PipelineIngest = "ingest"
	PipelineDigest = "digest"
)

type Metrics struct {
	startTime prometheus.Gauge

	feedStatus    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	articles      *prometheus.CounterVec
	digests       *prometheus.CounterVec
	runTime       *prometheus.GaugeVec
	runDuration   *prometheus.HistogramVec
}

func New() *Metrics {
	startTime := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "digestd_start_time",
		Help: "Process start time",
	})
	startTime.SetToCurrentTime()

	return &Metrics{
		startTime: startTime,

		feedStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "digestd_feed_status",
			Help: "Feed fetch status",
		}, []string{"name", "status"}),

		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "digestd_fetch_duration",
			Help:    "Document fetch duration",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),

		articles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "digestd_articles",
			Help: "Processed articles",
		}, []string{"result"}),

		digests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "digestd_digests",
			Help: "Digest deliveries",
		}, []string{"result"}),

		runTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "digestd_run_time",
			Help: "Last pipeline run completion time",
		}, []string{"pipeline"}),

		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "digestd_run_duration",
			Help:    "Pipeline run duration",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800},
		}, []string{"pipeline"}),
	}
}

func (m *Metrics) FeedStatus(name string, status string) {
	m.feedStatus.WithLabelValues(name, status).Inc()
}

func (m *Metrics) FetchDuration(kind string) prometheus.Observer {
	return m.fetchDuration.WithLabelValues(kind)
}

func (m *Metrics) Articles(result string, count int) {
	m.articles.WithLabelValues(result).Add(float64(count))
}

func (m *Metrics) Digests(result string, count int) {
	m.digests.WithLabelValues(result).Add(float64(count))
}

// RunFinished records a completed pipeline run which started at startTime.
func (m *Metrics) RunFinished(pipeline string, startTime time.Time) {
	m.runDuration.WithLabelValues(pipeline).Observe(time.Since(startTime).Seconds())
	m.runTime.WithLabelValues(pipeline).SetToCurrentTime()
}

// Push sends the current metric values to a Prometheus Pushgateway.
func (m *Metrics) Push(ctx context.Context, url string, job string) error {
	return push.New(url, job).Collector(m).PushContext(ctx)
}

var _ prometheus.Collector = &Metrics{}

func (m *Metrics) Describe(descs chan<- *prometheus.Desc) {
	m.startTime.Describe(descs)
	m.feedStatus.Describe(descs)
	m.fetchDuration.Describe(descs)
	m.articles.Describe(descs)
	m.digests.Describe(descs)
	m.runTime.Describe(descs)
	m.runDuration.Describe(descs)
}

func (m *Metrics) Collect(metrics chan<- prometheus.Metric) {
	m.startTime.Collect(metrics)
	m.feedStatus.Collect(metrics)
	m.fetchDuration.Collect(metrics)
	m.articles.Collect(metrics)
	m.digests.Collect(metrics)
	m.runTime.Collect(metrics)
	m.runDuration.Collect(metrics)
}
