package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the portal's Prometheus collectors on an isolated registry,
// so tests can create as many instances as they like.
type Metrics struct {
	Registry *prometheus.Registry

	// HTTP
	RequestsTotal          *prometheus.CounterVec
	RequestDurationSeconds *prometheus.HistogramVec

	// Content reloads
	ReloadsTotal      *prometheus.CounterVec
	ArticlesLoaded    prometheus.Gauge
	IngestFailures    prometheus.Gauge
	IngestWarnings    prometheus.Gauge
	ReloadDurationSec prometheus.Histogram

	// Views
	ViewsRecordedTotal  *prometheus.CounterVec
	ViewSnapshotChanges prometheus.Counter
	ViewSubscribers     prometheus.Gauge

	// Cache
	CacheRequestsTotal *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "animeportal_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		RequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "animeportal_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		ReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "animeportal_content_reloads_total",
				Help: "Total number of content reload attempts.",
			},
			[]string{"result"},
		),
		ArticlesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "animeportal_articles_loaded",
			Help: "Number of articles in the current catalog snapshot.",
		}),
		IngestFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "animeportal_ingest_failures",
			Help: "Number of content files rejected by the last reload.",
		}),
		IngestWarnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "animeportal_ingest_warnings",
			Help: "Number of language warnings raised by the last reload.",
		}),
		ReloadDurationSec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "animeportal_content_reload_duration_seconds",
			Help:    "Duration of content reloads in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}),

		ViewsRecordedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "animeportal_views_recorded_total",
				Help: "Total number of article views recorded.",
			},
			[]string{"section"},
		),
		ViewSnapshotChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animeportal_view_snapshot_changes_total",
			Help: "Total number of article counts changed by view snapshots.",
		}),
		ViewSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "animeportal_view_subscribers",
			Help: "Number of live view-count subscriptions.",
		}),

		CacheRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "animeportal_cache_requests_total",
				Help: "Query cache lookups by result.",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSeconds,
		m.ReloadsTotal,
		m.ArticlesLoaded,
		m.IngestFailures,
		m.IngestWarnings,
		m.ReloadDurationSec,
		m.ViewsRecordedTotal,
		m.ViewSnapshotChanges,
		m.ViewSubscribers,
		m.CacheRequestsTotal,
	)
	return m
}

// Handler returns an http.Handler that serves the Prometheus metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency labelled by the matched
// route template, which keeps article ids out of the label set.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDurationSeconds.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveReload records the outcome of one content reload. A nil receiver
// is a no-op.
func (m *Metrics) ObserveReload(result string, articles, failures, warnings int, took time.Duration) {
	if m == nil {
		return
	}
	m.ReloadsTotal.WithLabelValues(result).Inc()
	m.ReloadDurationSec.Observe(took.Seconds())
	if result == "ok" {
		m.ArticlesLoaded.Set(float64(articles))
		m.IngestFailures.Set(float64(failures))
		m.IngestWarnings.Set(float64(warnings))
	}
}

func (m *Metrics) ObserveView(section string) {
	if m == nil {
		return
	}
	m.ViewsRecordedTotal.WithLabelValues(section).Inc()
}

func (m *Metrics) ObserveViewSnapshot(changed, subscribers int) {
	if m == nil {
		return
	}
	m.ViewSnapshotChanges.Add(float64(changed))
	m.ViewSubscribers.Set(float64(subscribers))
}

// ObserveCache publishes the cumulative hit and miss counts of the query cache.
func (m *Metrics) ObserveCache(hits, misses uint64, lastHits, lastMisses uint64) {
	if m == nil {
		return
	}
	if hits > lastHits {
		m.CacheRequestsTotal.WithLabelValues("hit").Add(float64(hits - lastHits))
	}
	if misses > lastMisses {
		m.CacheRequestsTotal.WithLabelValues("miss").Add(float64(misses - lastMisses))
	}
}
