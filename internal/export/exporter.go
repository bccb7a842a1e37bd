// Package export publishes the latest collection snapshot for consumers: a
// Prometheus collector for scrape-based pipelines and a read API for the
// JSON endpoints. Per-metric counter/gauge classification lives here — the
// collection core itself carries no cross-cycle semantics.
package export

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/HerbHall/edgewatch/internal/collect"
)

const namespace = "edgex"

// Meta describes how a metric behaves across cycles: cumulative counts are
// exposed as Prometheus counters (the server derives rates), point-in-time
// values as gauges.
type Meta struct {
	Help string
	Type prometheus.ValueType
}

// MetaFor classifies a snapshot metric by name. The mapping is fixed
// metadata about the EdgeX endpoints, keyed on the namespacing scheme the
// parsers use.
func MetaFor(name string) Meta {
	switch {
	case name == "events":
		return Meta{"Events recorded by core-data since service start.", prometheus.CounterValue}
	case name == "readings":
		return Meta{"Readings recorded by core-data since service start.", prometheus.CounterValue}
	case name == "registered_devices":
		return Meta{"Devices currently registered with core-metadata.", prometheus.GaugeValue}
	case strings.HasSuffix(name, "_malloc"):
		return Meta{"Cumulative heap objects allocated by the service.", prometheus.CounterValue}
	case strings.HasSuffix(name, "_alloc"):
		return Meta{"Heap bytes currently allocated by the service.", prometheus.GaugeValue}
	case strings.HasSuffix(name, "_frees"):
		return Meta{"Heap objects freed by the service.", prometheus.GaugeValue}
	case strings.HasSuffix(name, "_live_objects"):
		return Meta{"Live heap objects held by the service.", prometheus.GaugeValue}
	default:
		return Meta{"EdgeWatch collected metric.", prometheus.GaugeValue}
	}
}

// Exporter holds the most recent snapshot and implements
// prometheus.Collector over it. Publish and Collect may race freely; the
// snapshot reference is swapped whole under the lock, never mutated.
type Exporter struct {
	mu          sync.RWMutex
	snap        collect.Snapshot
	collectedAt time.Time
}

// Compile-time interface guard.
var _ prometheus.Collector = (*Exporter)(nil)

// New returns an Exporter with no snapshot published yet.
func New() *Exporter {
	return &Exporter{}
}

// Publish replaces the exported snapshot. Callers must not modify snap after
// publishing it.
func (e *Exporter) Publish(snap collect.Snapshot, collectedAt time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snap = snap
	e.collectedAt = collectedAt
}

// Latest returns the current snapshot and its collection time. The snapshot
// is nil until the first successful cycle publishes one.
func (e *Exporter) Latest() (collect.Snapshot, time.Time) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap, e.collectedAt
}

// Describe implements prometheus.Collector. The exported metric set follows
// the snapshot contents, so descriptions are derived from a live Collect.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(e, ch)
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	snap, _ := e.Latest()
	for name, value := range snap {
		meta := MetaFor(name)
		desc := prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", name),
			meta.Help, nil, nil,
		)
		ch <- prometheus.MustNewConstMetric(desc, meta.Type, float64(value))
	}
}
