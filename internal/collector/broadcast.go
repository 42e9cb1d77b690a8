package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/price-collector/internal/pricing"
)

// MessagePublisher sends a retained payload to a topic at the client's
// configured QoS. *mqtt.Client satisfies it.
type MessagePublisher interface {
	PublishRetained(topic string, payload []byte) error
}

// BroadcastPoint is one hour of a broadcast price document.
type BroadcastPoint struct {
	Hour      uint8     `json:"hour"`
	Price     float64   `json:"price"`
	WrittenAt time.Time `json:"written_at"`
}

// BroadcastDocument is the retained message describing tomorrow's prices.
type BroadcastDocument struct {
	Date    string           `json:"date"`
	Points  []BroadcastPoint `json:"points"`
	Written int              `json:"written"`
	Failed  int              `json:"failed"`
}

// Broadcaster publishes written batches as retained JSON documents.
type Broadcaster struct {
	client MessagePublisher
	topic  string
}

// NewBroadcaster creates a Broadcaster publishing to topic.
func NewBroadcaster(client MessagePublisher, topic string) *Broadcaster {
	return &Broadcaster{client: client, topic: topic}
}

// PublishPrices implements Publisher.
func (b *Broadcaster) PublishPrices(_ context.Context, batch pricing.Batch, summary Summary) error {
	doc := BroadcastDocument{
		Date:    batch.Date,
		Points:  make([]BroadcastPoint, 0, batch.Len()),
		Written: summary.Written,
		Failed:  summary.Failed,
	}
	for _, p := range batch.Points {
		doc.Points = append(doc.Points, BroadcastPoint{Hour: p.Hour, Price: p.Price, WrittenAt: p.Timestamp})
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding price document: %w", err)
	}

	return b.client.PublishRetained(b.topic, payload)
}
