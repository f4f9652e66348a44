package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"bifa-core/model"
)

// PromCollector records analysis metrics in a private Prometheus registry.
// It satisfies bifa.MetricsCollector.
type PromCollector struct {
	reg *prometheus.Registry

	scans       prometheus.Counter
	evaluations prometheus.Counter
	scanHits    prometheus.Counter
	scanLatency prometheus.Histogram
	skips       prometheus.Counter
	adjusted    *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runLatency  prometheus.Histogram
	finalHits   prometheus.Counter
}

// NewPromCollector registers every metric on a fresh registry.
func NewPromCollector() *PromCollector {
	c := &PromCollector{
		reg: prometheus.NewRegistry(),
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bifa_model_scans_total",
			Help: "Completed model scans over one sequence",
		}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bifa_window_evaluations_total",
			Help: "Windows scored by binding models",
		}),
		scanHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bifa_scan_hits_total",
			Help: "Hits above threshold emitted by scans",
		}),
		scanLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bifa_model_scan_seconds",
			Help:    "Latency of one model scan",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
		skips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bifa_model_skips_total",
			Help: "Model failures that were logged and skipped",
		}),
		adjusted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bifa_adjusted_total",
			Help: "Phylogenetic write-backs",
		}, []string{"unit"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bifa_runs_total",
			Help: "Analyses of one central sequence",
		}, []string{"status"}),
		runLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bifa_run_seconds",
			Help:    "Latency of one analysis",
			Buckets: prometheus.DefBuckets,
		}),
		finalHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bifa_final_hits_total",
			Help: "Hits returned after adjustment and cutoff",
		}),
	}
	c.reg.MustRegister(c.scans, c.evaluations, c.scanHits, c.scanLatency,
		c.skips, c.adjusted, c.runs, c.runLatency, c.finalHits)
	return c
}

// Registry exposes the underlying registry.
func (c *PromCollector) Registry() *prometheus.Registry { return c.reg }

func (c *PromCollector) RecordScan(_ model.BinderID, evaluations, hits int, d time.Duration) {
	c.scans.Inc()
	c.evaluations.Add(float64(evaluations))
	c.scanHits.Add(float64(hits))
	c.scanLatency.Observe(d.Seconds())
}

func (c *PromCollector) RecordSkip(model.BinderID, error) { c.skips.Inc() }

func (c *PromCollector) RecordAdjust(_ model.BinderID, hits int) {
	c.adjusted.WithLabelValues("binder").Inc()
	c.adjusted.WithLabelValues("hit").Add(float64(hits))
}

func (c *PromCollector) RecordRun(d time.Duration, hits int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.runs.WithLabelValues(status).Inc()
	c.runLatency.Observe(d.Seconds())
	c.finalHits.Add(float64(hits))
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (c *PromCollector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.reg)
}
