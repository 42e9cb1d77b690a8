package collector

import (
	"context"
	"time"

	"github.com/nerrad567/price-collector/internal/pricing"
)

// PriceSource provides the next day's price batch.
type PriceSource interface {
	FetchTomorrow(ctx context.Context) (pricing.Batch, error)
}

// PointStore persists a single point. *influxdb.Client satisfies it.
type PointStore interface {
	WritePointWithTime(ctx context.Context, measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time) error
}

// Publisher announces a written batch to downstream consumers.
type Publisher interface {
	PublishPrices(ctx context.Context, batch pricing.Batch, summary Summary) error
}

// Summary describes a successful tick.
//
// Written counts the points processed, including ones the store rejected.
// Failed counts the rejected ones.
type Summary struct {
	Date    string `json:"date"`
	Written int    `json:"written"`
	Failed  int    `json:"failed"`
}

// Stored returns the number of points the store accepted.
func (s Summary) Stored() int {
	return s.Written - s.Failed
}
