package db

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

type pagerMetrics struct {
	cacheHits   prometheus.Counter
	diskReads   prometheus.Counter
	pageWrites  prometheus.Counter
	allocations prometheus.Counter
	pages       prometheus.Gauge
}

func newPagerMetrics(reg prometheus.Registerer) (*pagerMetrics, error) {
	m := &pagerMetrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "btreedb",
			Subsystem: "pager",
			Name:      "cache_hits_total",
			Help:      "Page requests served from the page cache.",
		}),
		diskReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "btreedb",
			Subsystem: "pager",
			Name:      "disk_reads_total",
			Help:      "Pages read from the database file.",
		}),
		pageWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "btreedb",
			Subsystem: "pager",
			Name:      "page_writes_total",
			Help:      "Pages written to the database file.",
		}),
		allocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "btreedb",
			Subsystem: "pager",
			Name:      "page_allocations_total",
			Help:      "Pages allocated past the end of the database.",
		}),
		pages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "btreedb",
			Subsystem: "pager",
			Name:      "pages",
			Help:      "Number of pages in the database.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	var err error
	for _, c := range []prometheus.Collector{m.cacheHits, m.diskReads, m.pageWrites, m.allocations, m.pages} {
		err = multierr.Append(err, reg.Register(c))
	}
	return m, err
}

func (m *pagerMetrics) unregister(reg prometheus.Registerer) {
	if reg == nil {
		return
	}
	for _, c := range []prometheus.Collector{m.cacheHits, m.diskReads, m.pageWrites, m.allocations, m.pages} {
		reg.Unregister(c)
	}
}
