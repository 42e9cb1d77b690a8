package influxdb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/price-collector/internal/infrastructure/config"
)

// Default timeouts for InfluxDB operations.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second

	// defaultRequestTimeout is used when the config leaves timeout unset.
	defaultRequestTimeout = 10 * time.Second
)

// Client wraps the InfluxDB client for price point storage.
//
// Writes are blocking: every call returns the server's verdict so the
// caller can log a failure against the specific point that was lost.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string

	connected bool
	mu        sync.RWMutex
}

// Connect establishes a connection to the InfluxDB server.
//
// It performs the following setup:
//  1. Derives the bucket and token (v1 compatibility when no token is set)
//  2. Creates the client with the configured request timeout
//  3. Verifies connectivity with a ping
//  4. Configures the blocking write API
//
// Parameters:
//   - ctx: Context for cancellation of the connectivity check
//   - cfg: InfluxDB configuration
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If the server cannot be reached or reports unhealthy
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	timeout := cfg.RequestTimeout()
	if timeout < time.Second {
		timeout = defaultRequestTimeout
	}

	// #nosec G115 -- timeout is at least one second
	client := influxdb2.NewClientWithOptions(
		strings.TrimRight(cfg.URL, "/"),
		authToken(cfg),
		influxdb2.DefaultOptions().SetHTTPRequestTimeout(uint(timeout/time.Second)),
	)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	bucket := bucketName(cfg)
	return &Client{
		client:    client,
		writeAPI:  client.WriteAPIBlocking(cfg.Org, bucket),
		bucket:    bucket,
		connected: true,
	}, nil
}

// bucketName returns the write target. Against InfluxDB 1.8+ the bucket is
// "database/retention-policy"; an empty policy selects the default one.
func bucketName(cfg config.InfluxDBConfig) string {
	if cfg.RetentionPolicy == "" {
		return cfg.Database
	}
	return cfg.Database + "/" + cfg.RetentionPolicy
}

// authToken returns the token sent in the Authorization header.
// An explicit token wins; otherwise v1 credentials become "username:password".
func authToken(cfg config.InfluxDBConfig) string {
	if cfg.Token != "" {
		return cfg.Token
	}
	if cfg.Username != "" {
		return cfg.Username + ":" + cfg.Password
	}
	return ""
}

// Bucket returns the bucket (database[/retention policy]) writes go to.
func (c *Client) Bucket() string {
	return c.bucket
}

// Close shuts down the InfluxDB connection.
//
// Returns:
//   - error: nil (InfluxDB client Close doesn't return errors)
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.client.Close()
	return nil
}

// HealthCheck verifies the InfluxDB connection is alive and functioning.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check failed: server not healthy")
	}

	return nil
}

// IsConnected returns the current connection state.
//
// Note: This reflects the last known state. For reliability,
// use HealthCheck which performs an active ping.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
