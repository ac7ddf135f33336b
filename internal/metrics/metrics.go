// Package metrics exposes Prometheus collectors for crawl progress.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Page outcomes used as the "outcome" label.
const (
	OutcomeSaved        = "saved"
	OutcomeRenderFailed = "render_failed"
	OutcomeSaveFailed   = "save_failed"
)

// Crawl owns the crawl collectors. A nil *Crawl is valid and records nothing.
type Crawl struct {
	pages          *prometheus.CounterVec
	linksAdmitted  prometheus.Counter
	linkErrors     prometheus.Counter
	restarts       prometheus.Counter
	pending        prometheus.Gauge
	visited        prometheus.Gauge
	renderDuration prometheus.Histogram
	artifactBytes  prometheus.Counter
}

// NewCrawl registers the collectors against reg, or the default registerer
// when reg is nil.
func NewCrawl(reg prometheus.Registerer) (*Crawl, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Crawl{
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitemirror_pages_total",
			Help: "Pages processed, partitioned by outcome.",
		}, []string{"outcome"}),
		linksAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sitemirror_links_admitted_total",
			Help: "Discovered links admitted to the frontier.",
		}),
		linkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sitemirror_link_errors_total",
			Help: "Discovered links that could not be parsed.",
		}),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sitemirror_renderer_restarts_total",
			Help: "Browser session restarts after a failed render.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sitemirror_frontier_pending",
			Help: "URLs waiting in the frontier.",
		}),
		visited: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sitemirror_visited",
			Help: "Distinct origin+path keys visited.",
		}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sitemirror_render_duration_seconds",
			Help:    "Wall time to navigate, wait for readiness and extract a page.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),
		artifactBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sitemirror_artifact_bytes_total",
			Help: "Bytes of rendered markup written to the mirror.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		c.pages,
		c.linksAdmitted,
		c.linkErrors,
		c.restarts,
		c.pending,
		c.visited,
		c.renderDuration,
		c.artifactBytes,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register crawl collector: %w", err)
		}
	}
	return c, nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ObservePage counts one page outcome.
func (c *Crawl) ObservePage(outcome string, bytes int) {
	if c == nil {
		return
	}
	c.pages.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSaved && bytes > 0 {
		c.artifactBytes.Add(float64(bytes))
	}
}

// ObserveRender records how long a render took.
func (c *Crawl) ObserveRender(d time.Duration) {
	if c == nil {
		return
	}
	c.renderDuration.Observe(d.Seconds())
}

// ObserveLinks adds the admitted and malformed link counts of one page.
func (c *Crawl) ObserveLinks(admitted, malformed int) {
	if c == nil {
		return
	}
	c.linksAdmitted.Add(float64(admitted))
	c.linkErrors.Add(float64(malformed))
}

// IncRestarts counts a renderer restart.
func (c *Crawl) IncRestarts() {
	if c == nil {
		return
	}
	c.restarts.Inc()
}

// SetFrontier publishes the current pending and visited sizes.
func (c *Crawl) SetFrontier(pending, visited int) {
	if c == nil {
		return
	}
	c.pending.Set(float64(pending))
	c.visited.Set(float64(visited))
}
