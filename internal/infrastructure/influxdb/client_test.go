package influxdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/price-collector/internal/infrastructure/config"
)

// fakeInflux is a minimal InfluxDB HTTP API: /ping and /api/v2/write.
type fakeInflux struct {
	mu        sync.Mutex
	lines     []string
	queries   []string
	auth      []string
	failWrite bool
	unhealthy bool
}

func (f *fakeInflux) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		if f.unhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/v2/write", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		f.queries = append(f.queries, r.URL.RawQuery)
		if !f.failWrite {
			f.lines = append(f.lines, strings.TrimSpace(string(body)))
		}
		f.mu.Unlock()
		if f.failWrite {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"code":"internal error","message":"disk full"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func startFake(t *testing.T, f *fakeInflux) (*httptest.Server, config.InfluxDBConfig) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return srv, config.InfluxDBConfig{
		URL:         srv.URL,
		Database:    "energy",
		Username:    "writer",
		Password:    "secret",
		Measurement: "price_info",
		Timeout:     2,
	}
}

func TestConnect(t *testing.T) {
	f := &fakeInflux{}
	_, cfg := startFake(t, f)

	client, err := Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if client.Bucket() != "energy" {
		t.Errorf("Bucket() = %q, want %q", client.Bucket(), "energy")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := config.InfluxDBConfig{URL: "http://127.0.0.1:59999", Database: "energy", Timeout: 1}

	_, err := Connect(context.Background(), cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_Unhealthy(t *testing.T) {
	f := &fakeInflux{unhealthy: true}
	_, cfg := startFake(t, f)

	_, err := Connect(context.Background(), cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestHealthCheck(t *testing.T) {
	f := &fakeInflux{}
	_, cfg := startFake(t, f)

	client, err := Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestHealthCheck_AfterClose(t *testing.T) {
	f := &fakeInflux{}
	_, cfg := startFake(t, f)

	client, err := Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestWritePointWithTime(t *testing.T) {
	f := &fakeInflux{}
	_, cfg := startFake(t, f)

	client, err := Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	ts := time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)
	err = client.WritePointWithTime(context.Background(), "price_info",
		map[string]string{"date": "2024-01-02T00:00:00Z"},
		map[string]interface{}{"price": 0.25, "hour": int64(7)},
		ts,
	)
	if err != nil {
		t.Fatalf("WritePointWithTime() error = %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.lines) != 1 {
		t.Fatalf("server received %d writes, want 1", len(f.lines))
	}
	line := f.lines[0]
	for _, want := range []string{"price_info,date=2024-01-02T00:00:00Z", "hour=7i", "price=0.25"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if !strings.Contains(f.queries[0], "bucket=energy") {
		t.Errorf("write query %q missing bucket", f.queries[0])
	}
	if f.auth[0] != "Token writer:secret" {
		t.Errorf("Authorization = %q, want v1 credentials token", f.auth[0])
	}
}

func TestWritePointWithTime_ServerError(t *testing.T) {
	f := &fakeInflux{}
	_, cfg := startFake(t, f)

	client, err := Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	f.failWrite = true
	err = client.WritePointWithTime(context.Background(), "price_info", nil, map[string]interface{}{"price": 1.0}, time.Now())
	if !errors.Is(err, ErrWriteFailed) {
		t.Errorf("WritePointWithTime() error = %v, want ErrWriteFailed", err)
	}
}

func TestWritePointWithTime_NotConnected(t *testing.T) {
	client := &Client{}

	err := client.WritePointWithTime(context.Background(), "price_info", nil, map[string]interface{}{"price": 1.0}, time.Now())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("WritePointWithTime() error = %v, want ErrNotConnected", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var client *Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

func TestBucketName(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.InfluxDBConfig
		want string
	}{
		{name: "database only", cfg: config.InfluxDBConfig{Database: "energy"}, want: "energy"},
		{name: "with retention policy", cfg: config.InfluxDBConfig{Database: "energy", RetentionPolicy: "year"}, want: "energy/year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bucketName(tt.cfg); got != tt.want {
				t.Errorf("bucketName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAuthToken(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.InfluxDBConfig
		want string
	}{
		{name: "explicit token wins", cfg: config.InfluxDBConfig{Token: "tok", Username: "u", Password: "p"}, want: "tok"},
		{name: "v1 credentials", cfg: config.InfluxDBConfig{Username: "u", Password: "p"}, want: "u:p"},
		{name: "anonymous", cfg: config.InfluxDBConfig{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := authToken(tt.cfg); got != tt.want {
				t.Errorf("authToken() = %q, want %q", got, tt.want)
			}
		})
	}
}
