// Package prom exports cache and engine metrics to Prometheus.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/sievecache/cache"
	"github.com/IvanBrykalov/sievecache/sieve"
)

// Adapter implements cache.Metrics and exports Prometheus counters/gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits     prometheus.Counter
	misses   prometheus.Counter
	evicts   *prometheus.CounterVec
	sizeEnt  prometheus.Gauge
	sizeCost prometheus.Gauge
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Cache hits",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Cache misses",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Cache evictions by reason",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		sizeEnt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_entries",
			Help:        "Number of resident entries",
			ConstLabels: constLabels,
		}),
		sizeCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_cost",
			Help:        "Total resident cost",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.sizeEnt, a.sizeCost)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Evict increments the eviction counter with a reason label.
func (a *Adapter) Evict(r cache.EvictReason) {
	a.evicts.WithLabelValues(reason(r)).Inc()
}

// Size updates gauges for the number of entries and total cost.
func (a *Adapter) Size(entries int, cost int64) {
	a.sizeEnt.Set(float64(entries))
	a.sizeCost.Set(float64(cost))
}

// reason maps EvictReason to a stable label value.
func reason(r cache.EvictReason) string {
	switch r {
	case cache.EvictTTL:
		return "ttl"
	case cache.EvictCapacity:
		return "capacity"
	default:
		return "policy"
	}
}

// Compile-time check: ensure Adapter implements cache.Metrics.
var _ cache.Metrics = (*Adapter)(nil)

// EngineCollector exports a sieve engine's sweep counters on scrape.
// The snapshot function is typically Cache.EngineStats or List.Stats.
type EngineCollector struct {
	snapshot func() sieve.StatsSnapshot

	sweeps        *prometheus.Desc
	candidates    *prometheus.Desc
	claimed       *prometheus.Desc
	secondChances *prometheus.Desc
	turnResets    *prometheus.Desc
	turnAborts    *prometheus.Desc
}

// NewEngineCollector builds a collector reading engine counters through
// snapshot. Register it on the same registry as the Adapter.
func NewEngineCollector(snapshot func() sieve.StatsSnapshot, ns, sub string, constLabels prometheus.Labels) *EngineCollector {
	fqName := func(name string) string {
		return prometheus.BuildFQName(ns, sub, name)
	}
	return &EngineCollector{
		snapshot: snapshot,
		sweeps: prometheus.NewDesc(fqName("sweeps_total"),
			"Completed refill sweeps", nil, constLabels),
		candidates: prometheus.NewDesc(fqName("candidates_total"),
			"Nodes staged for eviction", nil, constLabels),
		claimed: prometheus.NewDesc(fqName("claimed_total"),
			"Candidates handed to consumers", nil, constLabels),
		secondChances: prometheus.NewDesc(fqName("second_chances_total"),
			"Accessed flags cleared by the sweeper", nil, constLabels),
		turnResets: prometheus.NewDesc(fqName("turn_resets_total"),
			"Sweep wraps from the head snapshot back to the tail", nil, constLabels),
		turnAborts: prometheus.NewDesc(fqName("turn_aborts_total"),
			"Sweeps that gave up at the turn limit", nil, constLabels),
	}
}

// Describe implements prometheus.Collector.
func (c *EngineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sweeps
	ch <- c.candidates
	ch <- c.claimed
	ch <- c.secondChances
	ch <- c.turnResets
	ch <- c.turnAborts
}

// Collect implements prometheus.Collector.
func (c *EngineCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.snapshot()
	ch <- prometheus.MustNewConstMetric(c.sweeps, prometheus.CounterValue, float64(st.Sweeps))
	ch <- prometheus.MustNewConstMetric(c.candidates, prometheus.CounterValue, float64(st.Candidates))
	ch <- prometheus.MustNewConstMetric(c.claimed, prometheus.CounterValue, float64(st.Claimed))
	ch <- prometheus.MustNewConstMetric(c.secondChances, prometheus.CounterValue, float64(st.SecondChances))
	ch <- prometheus.MustNewConstMetric(c.turnResets, prometheus.CounterValue, float64(st.TurnResets))
	ch <- prometheus.MustNewConstMetric(c.turnAborts, prometheus.CounterValue, float64(st.TurnAborts))
}

// Compile-time check: ensure EngineCollector implements prometheus.Collector.
var _ prometheus.Collector = (*EngineCollector)(nil)
