// Package metrics exposes a Prometheus Collector and a PhaseCallback
// decorator so a mass-parallel run's progress/error traffic can be
// scraped the same way a worker queue's throughput would be.
package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/entropycollective/syncprogress/pkg/progress"
)

// Collector collects Prometheus metrics for one or more concurrent
// progress runs.
type Collector struct {
	itemsProcessed prometheus.Counter
	bytesProcessed prometheus.Counter
	itemsTotal     prometheus.Gauge
	bytesTotal     prometheus.Gauge

	errorsReported prometheus.Counter
	errorsRetried  prometheus.Counter
	errorsIgnored  prometheus.Counter

	statusUpdateLatency prometheus.Histogram

	mu sync.Mutex
}

// NewCollector creates and registers a new Collector against the default
// Prometheus registry.
func NewCollector() *Collector {
	c := &Collector{
		itemsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "syncprogress_items_processed_total",
			Help: "Total number of items reported as processed.",
		}),
		bytesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "syncprogress_bytes_processed_total",
			Help: "Total number of bytes reported as processed.",
		}),
		itemsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "syncprogress_items_total",
			Help: "Current estimate of total items in the active run.",
		}),
		bytesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "syncprogress_bytes_total",
			Help: "Current estimate of total bytes in the active run.",
		}),
		errorsReported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "syncprogress_errors_reported_total",
			Help: "Total number of recoverable errors reported.",
		}),
		errorsRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "syncprogress_errors_retried_total",
			Help: "Total number of recoverable errors resolved with retry.",
		}),
		errorsIgnored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "syncprogress_errors_ignored_total",
			Help: "Total number of recoverable errors resolved with ignore.",
		}),
		statusUpdateLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "syncprogress_status_update_seconds",
			Help:    "Wall time spent inside UpdateStatus handler calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	prometheus.MustRegister(
		c.itemsProcessed, c.bytesProcessed, c.itemsTotal, c.bytesTotal,
		c.errorsReported, c.errorsRetried, c.errorsIgnored,
		c.statusUpdateLatency,
	)

	return c
}

// StartServer starts a Prometheus metrics HTTP server on port, exposing
// /metrics for scraping.
func StartServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}

// PhaseCallback wraps a progress.PhaseCallback, forwarding every call to
// the wrapped implementation and recording Prometheus metrics for data
// updates, UpdateStatus latency and ReportError outcomes. LogInfo is
// forwarded without recording a metric.
// It is itself a progress.PhaseCallback, so it can be passed directly to
// progress.MassParallelExecute.
type PhaseCallback struct {
	next progress.PhaseCallback
	c    *Collector
}

// Decorate wraps next with metrics recording backed by c.
func Decorate(next progress.PhaseCallback, c *Collector) *PhaseCallback {
	return &PhaseCallback{next: next, c: c}
}

func (d *PhaseCallback) UpdateDataProcessed(items int, bytes int64) {
	if items > 0 {
		d.c.itemsProcessed.Add(float64(items))
	}
	if bytes > 0 {
		d.c.bytesProcessed.Add(float64(bytes))
	}
	d.next.UpdateDataProcessed(items, bytes)
}

func (d *PhaseCallback) UpdateDataTotal(items int, bytes int64) {
	d.c.mu.Lock()
	d.c.itemsTotal.Add(float64(items))
	d.c.bytesTotal.Add(float64(bytes))
	d.c.mu.Unlock()
	d.next.UpdateDataTotal(items, bytes)
}

func (d *PhaseCallback) UpdateStatus(text string) error {
	start := time.Now()
	err := d.next.UpdateStatus(text)
	d.c.statusUpdateLatency.Observe(time.Since(start).Seconds())
	return err
}

func (d *PhaseCallback) LogInfo(text string) error {
	return d.next.LogInfo(text)
}

func (d *PhaseCallback) ReportError(info progress.ErrorInfo) (progress.Response, error) {
	d.c.errorsReported.Inc()
	resp, err := d.next.ReportError(info)
	if err != nil {
		return resp, err
	}
	if resp == progress.ResponseRetry {
		d.c.errorsRetried.Inc()
	} else {
		d.c.errorsIgnored.Inc()
	}
	return resp, nil
}
