// Package mqtt broadcasts collected prices over MQTT.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained publishing of the next day's price document
//   - Last Will and Testament (LWT) for offline detection
//
// # Topics
//
// All topics live under the configured prefix (default "pricecollector"):
//
//	<prefix>/prices/tomorrow   retained price document, one per cycle
//	<prefix>/system/status     retained online/offline status and LWT
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, logger)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishRetained(client.Topics().PricesTomorrow(), doc)
//
// MQTT is optional. When mqtt.enabled is false the collector never
// connects and price batches are only written to InfluxDB.
package mqtt
