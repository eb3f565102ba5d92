package main

import (
	"github.com/czerwonk/netperf_monitor/sampler"
	"github.com/czerwonk/netperf_monitor/series"
	"github.com/prometheus/client_golang/prometheus"
)

const prefix = "netperf_"

func newDesc(name, help string, variableLabels []string, constLabels prometheus.Labels) *prometheus.Desc {
	return prometheus.NewDesc(prefix+name, help, variableLabels, constLabels)
}

type statsSource interface {
	Stats() sampler.Stats
}

// netperfCollector exports the most recent sample and the sampler's counters.
type netperfCollector struct {
	store   *series.Store
	sampler statsSource
	labels  *customLabelSet

	latency       scaledMetrics
	uploadDesc    *prometheus.Desc
	downloadDesc  *prometheus.Desc
	reachableDesc *prometheus.Desc
	samplesDesc   *prometheus.Desc
	failuresDesc  *prometheus.Desc
}

func newNetperfCollector(store *series.Store, smp statsSource, unit rttUnit, labels map[string]string) *netperfCollector {
	cl := newCustomLabelSet(labels)
	names := cl.labelNames()

	return &netperfCollector{
		store:         store,
		sampler:       smp,
		labels:        cl,
		latency:       newScaledDesc("latency", "Round trip time of the last latency probe", unit, names),
		uploadDesc:    newDesc("upload_mbps", "Upload throughput of the last sample in megabits per second", names, nil),
		downloadDesc:  newDesc("download_mbps", "Download throughput of the last sample in megabits per second", names, nil),
		reachableDesc: newDesc("latency_reachable", "1 if the last latency probe got a reply", names, nil),
		samplesDesc:   newDesc("samples_total", "Number of recorded samples", names, nil),
		failuresDesc:  newDesc("sample_failures_total", "Number of discarded measurement cycles", names, nil),
	}
}

func (c *netperfCollector) Describe(ch chan<- *prometheus.Desc) {
	c.latency.Describe(ch)
	ch <- c.uploadDesc
	ch <- c.downloadDesc
	ch <- c.reachableDesc
	ch <- c.samplesDesc
	ch <- c.failuresDesc
}

func (c *netperfCollector) Collect(ch chan<- prometheus.Metric) {
	l := c.labels.labelValues()
	stats := c.sampler.Stats()

	ch <- prometheus.MustNewConstMetric(c.samplesDesc, prometheus.CounterValue, float64(stats.Samples), l...)
	ch <- prometheus.MustNewConstMetric(c.failuresDesc, prometheus.CounterValue, float64(stats.Failures), l...)

	latest, ok := c.store.Snapshot().Latest()
	if !ok {
		return
	}

	c.latency.Collect(ch, latest.LatencyMs, l...)
	ch <- prometheus.MustNewConstMetric(c.uploadDesc, prometheus.GaugeValue, latest.UploadMbps, l...)
	ch <- prometheus.MustNewConstMetric(c.downloadDesc, prometheus.GaugeValue, latest.DownloadMbps, l...)

	reachable := 0.0
	if latest.Reachable {
		reachable = 1
	}
	ch <- prometheus.MustNewConstMetric(c.reachableDesc, prometheus.GaugeValue, reachable, l...)
}
