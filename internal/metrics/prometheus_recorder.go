package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "restockwatch"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg            *prom.Registry
	fetchDuration  *prom.HistogramVec
	classification *prom.CounterVec
	transitions    *prom.CounterVec
	notifications  *prom.CounterVec
	runDuration    *prom.HistogramVec
	tracked        prom.Gauge
	available      prom.Gauge
	lastRun        prom.Gauge
}

// NewPrometheusRecorder constructs and registers the collectors on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		fetchDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of product page fetches",
			Buckets:   prom.DefBuckets,
		}, []string{"host", "result"}),
		classification: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Classification results by rule set and state",
		}, []string{"rule_set", "state"}),
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Observed availability transitions",
		}, []string{"from", "to"}),
		notifications: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications sent by kind and outcome",
		}, []string{"kind", "outcome"}),
		runDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total duration of a monitoring run",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"outcome"}),
		tracked: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "targets_tracked",
			Help:      "Configured targets",
		}),
		available: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "targets_available",
			Help:      "Configured targets currently available",
		}),
		lastRun: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
	reg.MustRegister(pr.fetchDuration, pr.classification, pr.transitions, pr.notifications,
		pr.runDuration, pr.tracked, pr.available, pr.lastRun)
	return pr
}

// Registry returns the registry the collectors live on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

func (p *PrometheusRecorder) ObserveFetchDuration(host string, d time.Duration, success bool) {
	if p == nil {
		return
	}
	p.fetchDuration.WithLabelValues(host, resultLabel(success)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncClassification(ruleSet, state string) {
	if p == nil {
		return
	}
	p.classification.WithLabelValues(ruleSet, state).Inc()
}

func (p *PrometheusRecorder) IncTransition(from, to string) {
	if p == nil {
		return
	}
	p.transitions.WithLabelValues(from, to).Inc()
}

func (p *PrometheusRecorder) IncNotification(kind string, outcome Outcome) {
	if p == nil {
		return
	}
	p.notifications.WithLabelValues(kind, string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration, outcome Outcome) {
	if p == nil {
		return
	}
	p.runDuration.WithLabelValues(string(outcome)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetTargets(tracked, available int) {
	if p == nil {
		return
	}
	p.tracked.Set(float64(tracked))
	p.available.Set(float64(available))
}

func (p *PrometheusRecorder) SetLastRun(t time.Time) {
	if p == nil {
		return
	}
	p.lastRun.Set(float64(t.Unix()))
}

// WriteTextfile writes the registry in text exposition format for the
// node_exporter textfile collector. The write is atomic.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.reg)
}

// HTTPHandler serves the registry for scraping.
func (p *PrometheusRecorder) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func resultLabel(success bool) string {
	if success {
		return string(OutcomeSuccess)
	}
	return string(OutcomeFailed)
}
