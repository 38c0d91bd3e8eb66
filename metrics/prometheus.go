package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/tensorarena/internal/arena"
)

// PrometheusCollector exports arena events as Prometheus metrics. Every
// series carries an "arena" label so several arenas can share a registry.
type PrometheusCollector struct {
	allocs         *prometheus.CounterVec
	allocBytes     prometheus.Counter
	frees          prometheus.Counter
	freeBytes      prometheus.Counter
	growths        prometheus.Counter
	growthDuration prometheus.Histogram
	coalesced      prometheus.Counter
	used           prometheus.Gauge
	capacity       prometheus.Gauge
}

var _ arena.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector registers the arena metrics with reg. A nil reg
// creates unregistered metrics.
func NewPrometheusCollector(reg prometheus.Registerer, arenaName string) *PrometheusCollector {
	labels := prometheus.Labels{"arena": arenaName}
	f := promauto.With(reg)

	return &PrometheusCollector{
		allocs: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "tensorarena_allocs_total",
			Help:        "Allocation attempts by outcome.",
			ConstLabels: labels,
		}, []string{"status"}),
		allocBytes: f.NewCounter(prometheus.CounterOpts{
			Name:        "tensorarena_alloc_bytes_total",
			Help:        "Aligned bytes handed out by successful allocations.",
			ConstLabels: labels,
		}),
		frees: f.NewCounter(prometheus.CounterOpts{
			Name:        "tensorarena_frees_total",
			Help:        "Released blocks.",
			ConstLabels: labels,
		}),
		freeBytes: f.NewCounter(prometheus.CounterOpts{
			Name:        "tensorarena_free_bytes_total",
			Help:        "Aligned bytes returned to the free list.",
			ConstLabels: labels,
		}),
		growths: f.NewCounter(prometheus.CounterOpts{
			Name:        "tensorarena_growths_total",
			Help:        "Buffer relocations.",
			ConstLabels: labels,
		}),
		growthDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:        "tensorarena_growth_duration_seconds",
			Help:        "Time spent acquiring, copying and releasing buffers during growth.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		coalesced: f.NewCounter(prometheus.CounterOpts{
			Name:        "tensorarena_coalesced_regions_total",
			Help:        "Free regions merged into a neighbour.",
			ConstLabels: labels,
		}),
		used: f.NewGauge(prometheus.GaugeOpts{
			Name:        "tensorarena_used_bytes",
			Help:        "Bytes held by live allocations.",
			ConstLabels: labels,
		}),
		capacity: f.NewGauge(prometheus.GaugeOpts{
			Name:        "tensorarena_capacity_bytes",
			Help:        "Size of the backing buffer.",
			ConstLabels: labels,
		}),
	}
}

func (p *PrometheusCollector) RecordAlloc(size int, _ bool, err error) {
	if err != nil {
		p.allocs.WithLabelValues("error").Inc()
		return
	}
	p.allocs.WithLabelValues("ok").Inc()
	p.allocBytes.Add(float64(size))
}

func (p *PrometheusCollector) RecordFree(size int) {
	p.frees.Inc()
	p.freeBytes.Add(float64(size))
}

func (p *PrometheusCollector) RecordGrowth(_, newCapacity int, d time.Duration) {
	p.growths.Inc()
	p.growthDuration.Observe(d.Seconds())
	p.capacity.Set(float64(newCapacity))
}

func (p *PrometheusCollector) RecordCoalesce(merged int) {
	p.coalesced.Add(float64(merged))
}

func (p *PrometheusCollector) RecordUsage(used, capacity int) {
	p.used.Set(float64(used))
	p.capacity.Set(float64(capacity))
}
