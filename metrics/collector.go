// Package metrics exports allocator statistics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vkngwrapper/sizedalloc/memutils"
)

// StatisticsSource is anything that can report memutils.Statistics, such as a sized.Allocator
type StatisticsSource interface {
	AddStatistics(stats *memutils.Statistics)
}

// Collector is a prometheus.Collector that reads a StatisticsSource's statistics on every scrape.
// Each Collector carries a constant "allocator" label so that several allocators can be registered
// with the same registry.
type Collector struct {
	source StatisticsSource

	blocks             *prometheus.Desc
	allocations        *prometheus.Desc
	blockElements      *prometheus.Desc
	allocationElements *prometheus.Desc
	unusedElements     *prometheus.Desc
}

var _ prometheus.Collector = &Collector{}

// NewCollector creates a Collector for source, labeled with name
func NewCollector(name string, source StatisticsSource) *Collector {
	labels := prometheus.Labels{"allocator": name}

	return &Collector{
		source: source,
		blocks: prometheus.NewDesc(
			"sizedalloc_blocks",
			"Number of memory regions currently held by the allocator",
			nil, labels,
		),
		allocations: prometheus.NewDesc(
			"sizedalloc_allocations",
			"Number of reservations currently handed out by the allocator",
			nil, labels,
		),
		blockElements: prometheus.NewDesc(
			"sizedalloc_block_elements",
			"Number of elements of capacity held in the allocator's regions",
			nil, labels,
		),
		allocationElements: prometheus.NewDesc(
			"sizedalloc_allocation_elements",
			"Number of elements handed out by the allocator",
			nil, labels,
		),
		unusedElements: prometheus.NewDesc(
			"sizedalloc_unused_elements",
			"Number of elements of region capacity not yet handed out",
			nil, labels,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.blocks
	ch <- c.allocations
	ch <- c.blockElements
	ch <- c.allocationElements
	ch <- c.unusedElements
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	var stats memutils.Statistics
	c.source.AddStatistics(&stats)

	ch <- prometheus.MustNewConstMetric(c.blocks, prometheus.GaugeValue, float64(stats.BlockCount))
	ch <- prometheus.MustNewConstMetric(c.allocations, prometheus.GaugeValue, float64(stats.AllocationCount))
	ch <- prometheus.MustNewConstMetric(c.blockElements, prometheus.GaugeValue, float64(stats.BlockElements))
	ch <- prometheus.MustNewConstMetric(c.allocationElements, prometheus.GaugeValue, float64(stats.AllocationElements))
	ch <- prometheus.MustNewConstMetric(c.unusedElements, prometheus.GaugeValue, float64(stats.UnusedElements()))
}
