// Package prom holds the process metrics. Every helper is a no-op until Create is called, so
// libraries and tests can record freely.
package prom

import (
	"sync"
	"time"

	xhttp "github.com/nimasrn/live-commerce/pkg/http"
	"github.com/nimasrn/live-commerce/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemExternal  = "external"
	SystemReconcile = "reconcile"
	SystemPrinter   = "printer"
	SystemJobs      = "jobs"
	SystemLive      = "live"
)

type metrics struct {
	external       *prometheus.HistogramVec
	pass           *prometheus.HistogramVec
	commenters     *prometheus.CounterVec
	upsertFailures prometheus.Counter
	bills          *prometheus.CounterVec
	jobs           *prometheus.CounterVec
	watched        *prometheus.GaugeVec
}

var (
	mu       sync.RWMutex
	active   *metrics
	registry *prometheus.Registry
)

// Create builds the metric set on a fresh registry. Calling it again replaces the previous set.
func Create(host string, env string, namespace string) error {
	labels := prometheus.Labels{"env": env, "instance": host}
	m := &metrics{
		external: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   SystemExternal,
			Name:        "request_duration_seconds",
			Help:        "Outbound calls to Facebook and TPOS.",
			ConstLabels: labels,
		}, []string{"platform", "operation", "outcome"}),
		pass: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   SystemReconcile,
			Name:        "pass_duration_seconds",
			Help:        "Wall time of one reconcile pass.",
			ConstLabels: labels,
			Buckets:     []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"trigger"}),
		commenters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   SystemReconcile,
			Name:        "commenters_total",
			Help:        "Commenters resolved, by the source of their status.",
			ConstLabels: labels,
		}, []string{"source"}),
		upsertFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   SystemReconcile,
			Name:        "upsert_failures_total",
			Help:        "Passes whose customer query or upsert failed.",
			ConstLabels: labels,
		}),
		bills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   SystemPrinter,
			Name:        "bills_total",
			Help:        "Bills sent to the thermal printer.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   SystemJobs,
			Name:        "processed_total",
			Help:        "Queue jobs handled by the processor.",
			ConstLabels: labels,
		}, []string{"type", "outcome"}),
		watched: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   SystemLive,
			Name:        "watched_videos",
			Help:        "Videos on the watch list.",
			ConstLabels: labels,
		}, []string{"state"}),
	}

	reg := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.external, m.pass, m.commenters, m.upsertFailures, m.bills, m.jobs, m.watched,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	mu.Lock()
	active, registry = m, reg
	mu.Unlock()
	return nil
}

// Disable turns every helper back into a no-op.
func Disable() {
	mu.Lock()
	active, registry = nil, nil
	mu.Unlock()
}

func current() *metrics {
	mu.RLock()
	defer mu.RUnlock()
	return active
}

// Gatherer exposes the live registry, nil before Create.
func Gatherer() prometheus.Gatherer {
	mu.RLock()
	defer mu.RUnlock()
	if registry == nil {
		return nil
	}
	return registry
}

func Handler() fasthttp.RequestHandler {
	g := Gatherer()
	if g == nil {
		g = prometheus.NewRegistry()
	}
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

func ListenAndServer(addr string, path string) {
	s := xhttp.CreateServer()
	s.GET(path, Handler())
	logger.Info("[metrics-server] listening...", "addr", addr, "path", path)
	if err := s.ListenAndServe(addr); err != nil {
		logger.Panic("[metrics-server] http listen error", "error", err)
	}
}

// ObserveExternal records one outbound call to a third party platform.
func ObserveExternal(platform, operation string, started time.Time, err error) {
	m := current()
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.external.WithLabelValues(platform, operation, outcome).Observe(time.Since(started).Seconds())
}

func ObservePass(trigger string, duration time.Duration) {
	if m := current(); m != nil {
		m.pass.WithLabelValues(trigger).Observe(duration.Seconds())
	}
}

func AddCommenters(source string, n int) {
	if m := current(); m != nil && n > 0 {
		m.commenters.WithLabelValues(source).Add(float64(n))
	}
}

func IncUpsertFailures() {
	if m := current(); m != nil {
		m.upsertFailures.Inc()
	}
}

func IncBills(outcome string) {
	if m := current(); m != nil {
		m.bills.WithLabelValues(outcome).Inc()
	}
}

func IncJobs(jobType, outcome string) {
	if m := current(); m != nil {
		m.jobs.WithLabelValues(jobType, outcome).Inc()
	}
}

func SetWatchedVideos(state string, n int) {
	if m := current(); m != nil {
		m.watched.WithLabelValues(state).Set(float64(n))
	}
}
