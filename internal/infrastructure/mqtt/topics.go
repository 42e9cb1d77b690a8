package mqtt

import "strings"

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "pricecollector"

// Topics builds the collector's topic names under a common prefix.
//
//	topics := mqtt.NewTopics("home/energy")
//	topics.PricesTomorrow() // "home/energy/prices/tomorrow"
type Topics struct {
	prefix string
}

// NewTopics creates a builder for prefix. Surrounding slashes are trimmed.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// PricesTomorrow is the retained document with the next day's prices.
//
// Example: pricecollector/prices/tomorrow
func (t Topics) PricesTomorrow() string {
	return t.prefix + "/prices/tomorrow"
}

// SystemStatus carries the online/offline status and the Last Will.
//
// Example: pricecollector/system/status
func (t Topics) SystemStatus() string {
	return t.prefix + "/system/status"
}
