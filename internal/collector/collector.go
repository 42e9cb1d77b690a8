package collector

import (
	"context"
	"time"

	"github.com/nerrad567/price-collector/internal/infrastructure/logging"
	"github.com/nerrad567/price-collector/internal/metrics"
)

// Collector runs fetch-and-persist ticks.
type Collector struct {
	source    PriceSource
	writer    *Writer
	publisher Publisher
	logger    *logging.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithPublisher announces each written batch through p.
func WithPublisher(p Publisher) Option {
	return func(c *Collector) { c.publisher = p }
}

// WithMetrics records tick and fetch metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Collector) { c.metrics = m }
}

// WithClock replaces the wall clock used to derive the target date.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// New creates a Collector.
func New(source PriceSource, writer *Writer, logger *logging.Logger, opts ...Option) *Collector {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Collector{
		source: source,
		writer: writer,
		logger: logger.With("component", "collector"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TargetDate returns tomorrow's UTC midnight, relative to now, in RFC 3339.
func TargetDate(now time.Time) string {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
}

// Tick fetches tomorrow's prices and writes every point.
//
// Parameters:
//   - ctx: Context for cancellation of the fetch and the writes
//
// Returns:
//   - Summary: Target date and write counts (Date only on failure)
//   - error: The fetch error; nil whenever the fetch succeeded, regardless
//     of individual write outcomes
func (c *Collector) Tick(ctx context.Context) (Summary, error) {
	date := c.TargetDate()
	summary := Summary{Date: date}

	start := time.Now()
	batch, err := c.source.FetchTomorrow(ctx)
	c.metrics.ObserveFetch(time.Since(start))
	if err != nil {
		c.logger.Error("fetching prices failed", "date", date, "error", err)
		c.metrics.ObserveTick(err)
		return summary, err
	}

	batch.Date = date
	c.logger.Info("writing price batch", "date", date, "count", batch.Len())

	for i := range batch.Points {
		batch.Points[i].Date = date
		stamped, ok := c.writer.WritePoint(ctx, batch.Points[i])
		batch.Points[i] = stamped
		if !ok {
			summary.Failed++
		}
		summary.Written++
	}

	c.logger.Info("price batch written", "date", date, "written", summary.Written, "failed", summary.Failed)

	if c.publisher != nil {
		if err := c.publisher.PublishPrices(ctx, batch, summary); err != nil {
			c.logger.Warn("publishing price batch failed", "date", date, "error", err)
		}
	}

	c.metrics.ObserveTick(nil)
	return summary, nil
}

// TargetDate returns the date tag a tick started now would write.
func (c *Collector) TargetDate() string {
	return TargetDate(c.now())
}
