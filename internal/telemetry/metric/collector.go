package metric

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/jobdesk-go/internal/storage"
)

// StatsSource is anything that reports KV statistics.
type StatsSource interface {
	Stats(ctx context.Context) (*storage.KVStats, error)
}

// KVCollector reports local KV engine statistics at scrape time.
type KVCollector struct {
	src StatsSource

	totalSize *prometheus.Desc
	lsmSize   *prometheus.Desc
	vlogSize  *prometheus.Desc
	lastGC    *prometheus.Desc
	up        *prometheus.Desc
}

// NewKVCollector creates a collector for src.
func NewKVCollector(src StatsSource) *KVCollector {
	labels := []string{"engine"}
	return &KVCollector{
		src:       src,
		totalSize: prometheus.NewDesc(namespace+"_kv_size_bytes", "Total on-disk size of the KV engine.", labels, nil),
		lsmSize:   prometheus.NewDesc(namespace+"_kv_lsm_size_bytes", "LSM tree size (badger).", labels, nil),
		vlogSize:  prometheus.NewDesc(namespace+"_kv_vlog_size_bytes", "Value log size (badger).", labels, nil),
		lastGC:    prometheus.NewDesc(namespace+"_kv_last_gc_timestamp_seconds", "Last value log GC run.", labels, nil),
		up:        prometheus.NewDesc(namespace+"_kv_up", "1 if the KV engine answered the stats call.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *KVCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalSize
	ch <- c.lsmSize
	ch <- c.vlogSize
	ch <- c.lastGC
	ch <- c.up
}

// Collect implements prometheus.Collector.
func (c *KVCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stats, err := c.src.Stats(ctx)
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.totalSize, prometheus.GaugeValue, float64(stats.TotalSize), stats.Engine)
	ch <- prometheus.MustNewConstMetric(c.lsmSize, prometheus.GaugeValue, float64(stats.LSMSize), stats.Engine)
	ch <- prometheus.MustNewConstMetric(c.vlogSize, prometheus.GaugeValue, float64(stats.ValueLogSize), stats.Engine)
	if stats.LastGCTime > 0 {
		ch <- prometheus.MustNewConstMetric(c.lastGC, prometheus.GaugeValue, float64(stats.LastGCTime)/1000, stats.Engine)
	}
}
