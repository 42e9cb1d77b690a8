// Package api provides the read-only status HTTP server for the price
// collector.
//
// Routes:
//
//	GET /api/v1/health   component health (store, ledger, broker)
//	GET /api/v1/status   scheduler status and a redacted config summary
//	GET /api/v1/runs     recent collection runs from the ledger (?limit=N)
//	GET /metrics         Prometheus metrics
//
// The server is optional (api.enabled) and never serves price data; prices
// live in InfluxDB and on the MQTT retained topic.
//
// Lifecycle:
//
//	srv, err := api.New(deps)
//	if err := srv.Start(ctx); err != nil { ... }
//	defer srv.Close()
package api
