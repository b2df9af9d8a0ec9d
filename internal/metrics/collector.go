package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bleepstore/blobstore/blobstore"
)

// StatsSource reports point-in-time store totals. *blobstore.Engine
// satisfies it.
type StatsSource interface {
	Stats() blobstore.Stats
}

// StatsCollector exports container, object and byte gauges read from a
// StatsSource at scrape time.
type StatsCollector struct {
	source     StatsSource
	containers *prometheus.Desc
	objects    *prometheus.Desc
	bytes      *prometheus.Desc
}

// NewStatsCollector returns a collector over source.
func NewStatsCollector(source StatsSource) *StatsCollector {
	return &StatsCollector{
		source: source,
		containers: prometheus.NewDesc(
			"blobstore_containers",
			"Number of containers",
			nil, nil,
		),
		objects: prometheus.NewDesc(
			"blobstore_objects",
			"Number of objects across all containers",
			nil, nil,
		),
		bytes: prometheus.NewDesc(
			"blobstore_stored_bytes",
			"Total object bytes held in memory",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.containers
	ch <- c.objects
	ch <- c.bytes
}

// Collect implements prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.containers, prometheus.GaugeValue, float64(st.Containers))
	ch <- prometheus.MustNewConstMetric(c.objects, prometheus.GaugeValue, float64(st.Objects))
	ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(st.Bytes))
}

// RegisterStats registers a StatsCollector for source with the default
// registry.
func RegisterStats(source StatsSource) error {
	return prometheus.Register(NewStatsCollector(source))
}
