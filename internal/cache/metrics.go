package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// All cache metrics carry a "cache" label whose value is the ProviderConfig
// Group, so the page cache and any future caches stay distinguishable on one
// dashboard.
var (
	// HitsTotal counts lookups that found an entry.
	HitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits.",
		},
		[]string{"cache"},
	)

	// MissesTotal counts lookups that came back empty.
	MissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses.",
		},
		[]string{"cache"},
	)

	// EvictionsTotal counts entries pushed out by capacity or TTL.
	EvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of entries evicted from the cache.",
		},
		[]string{"cache"},
	)
)

// sizeCollector reports the current entry count for one cache group. The
// count is read at scrape time, so groups backed by Redis stay accurate even
// though server-side TTL expiry removes fields without telling us.
type sizeCollector struct {
	desc *prometheus.Desc
	size func() int
}

func (c *sizeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *sizeCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(c.size()))
}

var (
	sizeCollectorMu sync.Mutex
	sizeCollectors  = make(map[string]*sizeCollector)

	// entriesReg is swappable so tests can use an isolated registry.
	entriesReg prometheus.Registerer = prometheus.DefaultRegisterer
)

// trackEntries registers a size collector for the group, replacing any
// collector left behind by an earlier cache instance with the same group.
func trackEntries(group string, size func() int) {
	c := &sizeCollector{
		desc: prometheus.NewDesc(
			"cache_entries",
			"Current number of entries in the cache.",
			nil,
			prometheus.Labels{"cache": group},
		),
		size: size,
	}

	sizeCollectorMu.Lock()
	defer sizeCollectorMu.Unlock()

	if old, ok := sizeCollectors[group]; ok {
		entriesReg.Unregister(old)
	}
	sizeCollectors[group] = c
	_ = entriesReg.Register(c)
}

// forgetEntries drops the group's size collector.
func forgetEntries(group string) {
	sizeCollectorMu.Lock()
	defer sizeCollectorMu.Unlock()

	if c, ok := sizeCollectors[group]; ok {
		entriesReg.Unregister(c)
		delete(sizeCollectors, group)
	}
}
