package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

var (
	latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

	jobStates = []string{"idle", "configuring", "ready", "running", "completed", "stopped", "failed"}
)

// Metrics holds the Prometheus collectors of the worker on a private registry
type Metrics struct {
	registry *prometheus.Registry

	framesProcessed *prometheus.CounterVec
	trackerLatency  *prometheus.HistogramVec
	crossings       *prometheus.CounterVec
	warnings        *prometheus.CounterVec
	failures        *prometheus.CounterVec
	jobState        *prometheus.GaugeVec
	siteOccupancy   *prometheus.GaugeVec

	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "counting",
			Name:      "frames_processed_total",
			Help:      "Frames run through the tracker and line-crossing detector",
		}, []string{"camera_role"}),
		trackerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "counting",
			Name:      "tracker_latency_seconds",
			Help:      "Latency of tracker calls per frame",
			Buckets:   latencyBuckets,
		}, []string{"camera_role"}),
		crossings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "counting",
			Name:      "crossings_total",
			Help:      "Crossing events by direction and category",
		}, []string{"camera_role", "direction", "category"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "counting",
			Name:      "warnings_total",
			Help:      "Recoverable per-event problems such as unknown categories",
		}, []string{"camera_role", "code"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "counting",
			Name:      "job_failures_total",
			Help:      "Camera jobs that ended in the failed state",
		}, []string{"camera_role", "kind"}),
		jobState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "counting",
			Name:      "job_state",
			Help:      "1 for the current state of each camera job",
		}, []string{"camera_role", "state"}),
		siteOccupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "counting",
			Name:      "site_people_on_site",
			Help:      "Estimated people on site",
		}, []string{"bound"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "counting",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "counting",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   latencyBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.framesProcessed,
		m.trackerLatency,
		m.crossings,
		m.warnings,
		m.failures,
		m.jobState,
		m.siteOccupancy,
		m.requestTotal,
		m.requestLatency,
	)
	return m
}

// Registry exposes the private registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// FrameProcessed records one processed frame and its tracker latency
func (m *Metrics) FrameProcessed(role models.CameraRole, trackerLatency time.Duration) {
	m.framesProcessed.WithLabelValues(string(role)).Inc()
	m.trackerLatency.WithLabelValues(string(role)).Observe(trackerLatency.Seconds())
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	code := strconv.Itoa(status)
	m.requestTotal.WithLabelValues(method, route, code).Inc()
	m.requestLatency.WithLabelValues(method, route, code).Observe(d.Seconds())
}

// Publish derives counters and gauges from job envelopes
func (m *Metrics) Publish(_ context.Context, env models.Envelope) error {
	role := string(env.Role)
	switch p := env.Payload.(type) {
	case models.CrossingEvent:
		m.crossings.WithLabelValues(role, string(p.Direction), string(p.Category)).Inc()
	case models.Warning:
		m.warnings.WithLabelValues(role, p.Code).Inc()
	case models.JobFailure:
		m.failures.WithLabelValues(role, string(p.Kind)).Inc()
	case models.JobStatus:
		if env.Type == models.MessageStatus {
			m.setState(role, p.State)
		}
	case models.SiteStatistics:
		m.siteOccupancy.WithLabelValues("min").Set(float64(p.PeopleOnSiteMin))
		m.siteOccupancy.WithLabelValues("max").Set(float64(p.PeopleOnSiteMax))
	}
	return nil
}

func (m *Metrics) setState(role, current string) {
	for _, s := range jobStates {
		v := 0.0
		if s == current {
			v = 1
		}
		m.jobState.WithLabelValues(role, s).Set(v)
	}
}
