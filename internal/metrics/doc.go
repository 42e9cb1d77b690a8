// Package metrics exposes Prometheus instrumentation for the price collector.
//
// Every Metrics value owns its own registry so tests and multiple
// instances never collide on the global default registry. The observe
// helpers are nil-safe: components accept a *Metrics that may be nil
// when instrumentation is not wired.
package metrics
