package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/nerrad567/price-collector/internal/infrastructure/config"
	"github.com/nerrad567/price-collector/internal/infrastructure/logging"
)

const (
	defaultTimeout = 30 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// Client fetches price batches from the pricing API.
//
// A Client holds only immutable settings and a shared *http.Client, so it
// is safe for concurrent use.
type Client struct {
	endpoint  string
	token     string
	userAgent string
	http      *http.Client
	logger    *logging.Logger
}

// NewClient creates a pricing client.
//
// Parameters:
//   - cfg: Pricing configuration (endpoint, timeout, user agent)
//   - token: Resolved bearer token
//   - logger: Logger for fetch diagnostics
//
// Returns:
//   - *Client: Ready to use, no connection is made until the first fetch
func NewClient(cfg config.PricingConfig, token string, logger *logging.Logger) *Client {
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &Client{
		endpoint:  cfg.Endpoint,
		token:     token,
		userAgent: cfg.UserAgent,
		http:      newHTTPClient(timeout),
		logger:    logger.With("component", "pricing"),
	}
}

// newHTTPClient returns a client with bounded dial, handshake and overall timeouts.
func newHTTPClient(timeout time.Duration) *http.Client {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: t}
}

// FetchTomorrow retrieves the next day's hourly prices for the first home.
//
// Parameters:
//   - ctx: Context for cancellation of the HTTP request
//
// Returns:
//   - Batch: Points in delivery order, hour = index; Date is left empty
//   - error: One of the package sentinels, see errors.go
func (c *Client) FetchTomorrow(ctx context.Context) (Batch, error) {
	resp, err := c.post(ctx)
	if err != nil {
		c.logger.Error("price request failed", "error", err)
		return Batch{}, err
	}

	if len(resp.Errors) > 0 {
		c.logger.Warn("price query returned errors", "errors", joinMessages(resp.Errors))
	}

	batch, err := decodeBatch(resp)
	if err != nil {
		c.logger.Warn("price response rejected", "reason", err.Error())
		return Batch{}, err
	}

	c.logger.Debug("prices fetched", "count", batch.Len())
	return batch, nil
}

// post sends the price query and decodes the GraphQL envelope.
func (c *Client) post(ctx context.Context) (priceResponse, error) {
	var out priceResponse

	body, err := json.Marshal(graphQLRequest{Query: priceQuery})
	if err != nil {
		return out, fmt.Errorf("%w: encoding query: %w", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("%w: building request: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return out, fmt.Errorf("%w: reading response: %w", ErrRequestFailed, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return out, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, res.StatusCode, snippet(data))
	}

	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("%w: decoding response: %w", ErrRequestFailed, err)
	}

	// Errors without data mean the query itself was refused.
	if out.Data == nil && len(out.Errors) > 0 {
		return out, fmt.Errorf("%w: %w: %s", ErrRequestFailed, ErrNoData, joinMessages(out.Errors))
	}

	return out, nil
}

// decodeBatch validates the response and extracts tomorrow's prices.
func decodeBatch(resp priceResponse) (Batch, error) {
	if resp.Data == nil {
		return Batch{}, ErrNoData
	}

	var first *home
	for _, h := range resp.Data.Viewer.Homes {
		if h != nil {
			first = h
			break
		}
	}
	if first == nil {
		return Batch{}, ErrNoHomes
	}

	if first.CurrentSubscription == nil {
		return Batch{}, ErrNoSubscription
	}
	if first.CurrentSubscription.PriceInfo == nil {
		return Batch{}, ErrNoPriceInfo
	}

	tomorrow := first.CurrentSubscription.PriceInfo.Tomorrow
	if len(tomorrow) > HoursPerDay {
		return Batch{}, fmt.Errorf("%w: got %d", ErrTooManyPrices, len(tomorrow))
	}

	points := make([]PricePoint, 0, len(tomorrow))
	for i, p := range tomorrow {
		if p == nil {
			return Batch{}, fmt.Errorf("%w: hour %d", ErrMissingPrice, i)
		}
		if p.Total == nil {
			return Batch{}, fmt.Errorf("%w: hour %d", ErrMissingTotal, i)
		}
		points = append(points, PricePoint{
			Price: *p.Total,
			Hour:  uint8(i), // #nosec G115 -- bounded by HoursPerDay above
		})
	}

	return Batch{Points: points}, nil
}

func joinMessages(errs []graphQLError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// snippet returns a short printable prefix of a response body.
func snippet(data []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(data))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
