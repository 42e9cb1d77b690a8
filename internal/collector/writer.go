package collector

import (
	"context"
	"time"

	"github.com/nerrad567/price-collector/internal/infrastructure/logging"
	"github.com/nerrad567/price-collector/internal/metrics"
	"github.com/nerrad567/price-collector/internal/pricing"
)

// Field and tag keys of a stored price point.
const (
	FieldPrice = "price"
	FieldHour  = "hour"
	TagDate    = "date"
)

// Writer stores price points one at a time.
//
// Writes are fire-and-log: a failure is logged against the point's hour
// and never returned, so one bad write cannot abort its siblings.
type Writer struct {
	store       PointStore
	measurement string
	logger      *logging.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewWriter creates a Writer for the given measurement. m may be nil.
func NewWriter(store PointStore, measurement string, logger *logging.Logger, m *metrics.Metrics) *Writer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Writer{
		store:       store,
		measurement: measurement,
		logger:      logger.With("component", "writer"),
		metrics:     m,
		now:         time.Now,
	}
}

// WritePoint stores one point stamped with the current time.
//
// The point's Date becomes the date tag. The returned point carries the
// write time in Timestamp. ok reports whether the store accepted the write
// and is only meant for counting.
func (w *Writer) WritePoint(ctx context.Context, p pricing.PricePoint) (stamped pricing.PricePoint, ok bool) {
	p.Timestamp = w.now().UTC()

	err := w.store.WritePointWithTime(ctx, w.measurement,
		map[string]string{TagDate: p.Date},
		map[string]interface{}{
			FieldPrice: p.Price,
			FieldHour:  int64(p.Hour),
		},
		p.Timestamp,
	)
	w.metrics.ObservePoint(err == nil)

	if err != nil {
		w.logger.Error("writing price point failed", "hour", p.Hour, "date", p.Date, "error", err)
		return p, false
	}

	w.logger.Debug("price point written", "hour", p.Hour, "price", p.Price)
	return p, true
}
