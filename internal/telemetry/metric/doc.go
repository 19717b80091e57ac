// Package metric exposes jobdesk's Prometheus metrics.
//
//   - prometheus.go: the Registry, its recording methods and exposition
//   - collector.go: a collector reporting local KV engine statistics
//
// The portal serves the registry at /metrics. One-shot CLI runs can write
// it to a node-exporter textfile instead (metrics.textfile).
package metric
