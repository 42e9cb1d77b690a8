// Package influxdb provides InfluxDB connectivity for the price collector.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, blocking point writes and health monitoring.
//
// # Addressing
//
// The store is addressed by database name at a URL. With InfluxDB 1.8+
// the v1 compatibility API is used: the bucket is "database[/rp]" and the
// token is "username:password". With InfluxDB 2.x set token and org.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.WritePointWithTime(ctx, "price_info",
//	    map[string]string{"date": "2024-01-02T00:00:00Z"},
//	    map[string]interface{}{"price": 0.2874, "hour": int64(13)},
//	    time.Now())
//
// # Error Handling
//
// Writes are blocking so each failure is returned to the caller, which
// decides whether to log or escalate it.
package influxdb
