// Package collector runs one fetch-and-persist tick.
//
// A tick computes the target date (tomorrow, UTC midnight), fetches the
// day's prices and writes every point to the time-series store. A fetch
// failure fails the tick before anything is written. A write failure is
// logged and the batch continues, so the tick succeeds as long as the
// fetch did.
//
// # Usage
//
//	writer := collector.NewWriter(store, cfg.InfluxDB.Measurement, logger, m)
//	c := collector.New(pricingClient, writer, logger,
//	    collector.WithPublisher(broadcaster),
//	    collector.WithMetrics(m),
//	)
//	summary, err := c.Tick(ctx)
package collector
