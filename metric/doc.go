// Package metric provides the Prometheus-based metrics an executor
// collects about itself, plus a registry components can use to add
// their own collectors alongside the core set.
//
// # Architecture
//
// The package separates two concerns:
//
//  1. Core metrics: lifecycle status, tuple throughput, queue depth,
//     backpressure state, tick latency, and classified error counts —
//     every executor registers these for itself (the Metrics type).
//  2. A registrar: ComponentLogic implementations that want their own
//     Prometheus collectors register them through MetricsRegistry,
//     which tracks registrations to reject accidental duplicates
//     before they reach the underlying prometheus.Registry.
//
// # Basic usage
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(":9090", "/metrics", registry)
//	go server.Start(ctx)
//
//	core := registry.CoreMetrics()
//	core.RecordExecutorStatus("bolt-7", "word-count", 2)
//	core.RecordQueueDepth("bolt-7", "receive", 128)
//
// # Component metrics
//
// A component registers its own collectors once, typically during
// setupMetrics, before Execute is first called:
//
//	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "words_total"})
//	err := registry.RegisterCounter("word-count", "words_total", counter)
//
// Unregister mirrors registration and is used when a component is torn down.
package metric
