package gc

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ContainerCollector exports the tracker's population per type.
type ContainerCollector struct {
	t *Tracker

	tracked *prometheus.Desc
	total   *prometheus.Desc
}

func NewContainerCollector(t *Tracker) *ContainerCollector {
	return &ContainerCollector{
		t: t,
		tracked: prometheus.NewDesc(
			"scriptcore_gc_tracked_objects",
			"Live collectable objects known to the cycle collector",
			[]string{"type"}, nil,
		),
		total: prometheus.NewDesc(
			"scriptcore_gc_tracked_entries",
			"Tracker entries, including destroyed objects not yet pruned",
			nil, nil,
		),
	}
}

func (cc *ContainerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cc.tracked
	ch <- cc.total
}

func (cc *ContainerCollector) Collect(ch chan<- prometheus.Metric) {
	for name, n := range cc.t.countByType() {
		ch <- prometheus.MustNewConstMetric(
			cc.tracked,
			prometheus.GaugeValue,
			float64(n),
			name,
		)
	}
	ch <- prometheus.MustNewConstMetric(
		cc.total,
		prometheus.GaugeValue,
		float64(cc.t.Len()),
	)
}
