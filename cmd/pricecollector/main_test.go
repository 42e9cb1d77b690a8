package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/price-collector/internal/credentials"
	"github.com/nerrad567/price-collector/internal/infrastructure/config"
	"github.com/nerrad567/price-collector/internal/infrastructure/database"
	"github.com/nerrad567/price-collector/internal/ledger"
	"github.com/nerrad567/price-collector/internal/schedule"
)

// envKeys are cleared before every test so the host environment cannot leak in.
var envKeys = []string{
	configEnvVar,
	"PRICECOLLECTOR_INFLUXDB_URL",
	"PRICECOLLECTOR_INFLUXDB_DATABASE",
	"PRICECOLLECTOR_INFLUXDB_USERNAME",
	"PRICECOLLECTOR_INFLUXDB_PASSWORD",
	"PRICECOLLECTOR_INFLUXDB_TOKEN",
	"PRICECOLLECTOR_PRICING_ENDPOINT",
	"PRICECOLLECTOR_PRICING_TOKEN",
	"PRICECOLLECTOR_PRICING_TOKEN_FILE",
	"PRICECOLLECTOR_RETRIES",
	"PRICECOLLECTOR_WAKE_HOUR",
	"PRICECOLLECTOR_LOG_LEVEL",
	"PRICECOLLECTOR_LOG_FORMAT",
	"PRICECOLLECTOR_MQTT_HOST",
	"PRICECOLLECTOR_MQTT_USERNAME",
	"PRICECOLLECTOR_MQTT_PASSWORD",
	"PRICECOLLECTOR_DATABASE_PATH",
	"PRICECOLLECTOR_API_PORT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	t.Setenv("PRICECOLLECTOR_LOG_LEVEL", "error")
	t.Setenv("HOME", t.TempDir())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

// missingEnvFile returns a dotenv path that does not exist.
func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

// fakeInflux accepts /ping and /api/v2/write.
type fakeInflux struct {
	mu    sync.Mutex
	lines []string
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ping":
		w.WriteHeader(http.StatusNoContent)
	case "/api/v2/write":
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.lines = append(f.lines, strings.TrimSpace(string(body)))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeInflux) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines)
}

// pricesHandler serves a full day of 24 hourly prices.
func pricesHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		entries := make([]string, 0, 24)
		for i := 0; i < 24; i++ {
			entries = append(entries, fmt.Sprintf(`{"total":%.2f,"startsAt":"2024-01-02T%02d:00:00.000+01:00"}`, 0.1+0.01*float64(i), i))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":{"viewer":{"homes":[{"currentSubscription":{"priceInfo":{"tomorrow":[%s]}}}]}}}`, strings.Join(entries, ","))
	})
}

// setServiceEnv points the collector at fake pricing and store servers.
func setServiceEnv(t *testing.T, pricing http.Handler) *fakeInflux {
	t.Helper()

	influx := &fakeInflux{}
	influxSrv := httptest.NewServer(influx)
	t.Cleanup(influxSrv.Close)

	pricingSrv := httptest.NewServer(pricing)
	t.Cleanup(pricingSrv.Close)

	t.Setenv("PRICECOLLECTOR_INFLUXDB_URL", influxSrv.URL)
	t.Setenv("PRICECOLLECTOR_INFLUXDB_DATABASE", "energy")
	t.Setenv("PRICECOLLECTOR_PRICING_ENDPOINT", pricingSrv.URL)
	t.Setenv("PRICECOLLECTOR_PRICING_TOKEN", "test-token")
	return influx
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "pricecollector "+version) {
		t.Errorf("output = %q", out)
	}
}

func TestRun_InvalidConfigPath(t *testing.T) {
	clearEnv(t)

	_, err := execute(t, "run", "--config", "/nonexistent/path/config.yaml", "--env-file", missingEnvFile(t))
	if err == nil {
		t.Fatal("run should fail with invalid config path")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want a missing file error", err)
	}
}

func TestRun_MissingStoreIsConfigError(t *testing.T) {
	clearEnv(t)

	_, err := execute(t, "run", "--env-file", missingEnvFile(t))
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("error = %v, want ErrInvalidConfig", err)
	}
	if !strings.Contains(err.Error(), "influxdb.url") {
		t.Errorf("error %q does not name the missing setting", err)
	}
}

func TestRun_InvalidWakeHour(t *testing.T) {
	clearEnv(t)
	setServiceEnv(t, pricesHandler())
	t.Setenv("PRICECOLLECTOR_WAKE_HOUR", "24")

	_, err := execute(t, "--env-file", missingEnvFile(t))
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestNextWake_FromEnvFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "PRICECOLLECTOR_INFLUXDB_URL=http://localhost:8086\n" +
		"PRICECOLLECTOR_INFLUXDB_DATABASE=energy\n" +
		"PRICECOLLECTOR_WAKE_HOUR=5\n"
	if err := os.WriteFile(envFile, []byte(content), 0600); err != nil {
		t.Fatalf("writing env file: %v", err)
	}
	// godotenv never overrides existing variables, so unset the keys it
	// should fill. t.Setenv above restores them after the test.
	for _, k := range []string{"PRICECOLLECTOR_INFLUXDB_URL", "PRICECOLLECTOR_INFLUXDB_DATABASE", "PRICECOLLECTOR_WAKE_HOUR"} {
		os.Unsetenv(k)
	}

	out, err := execute(t, "next-wake", "--env-file", envFile)
	if err != nil {
		t.Fatalf("next-wake error = %v", err)
	}

	stamp, _, _ := strings.Cut(strings.TrimSpace(out), " ")
	wake, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		t.Fatalf("output %q does not start with an RFC3339 time: %v", out, err)
	}
	if wake.UTC().Hour() != 5 || wake.Minute() != 0 {
		t.Errorf("wake = %v, want 05:00 UTC", wake)
	}
	if !wake.After(time.Now()) {
		t.Errorf("wake %v is not in the future", wake)
	}
}

func TestOnce_WritesFullDayAndRecordsRun(t *testing.T) {
	clearEnv(t)
	influx := setServiceEnv(t, pricesHandler())

	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	cfgYAML := fmt.Sprintf("database:\n  enabled: true\n  path: %q\n  wal_mode: true\n  busy_timeout: 5\n", dbPath)
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	if _, err := execute(t, "once", "--config", cfgPath, "--env-file", missingEnvFile(t)); err != nil {
		t.Fatalf("once error = %v", err)
	}

	if got := influx.count(); got != 24 {
		t.Errorf("store received %d points, want 24", got)
	}

	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{Path: dbPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("reopening ledger: %v", err)
	}
	defer db.Close()

	run, err := ledger.New(db.DB).Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if run.State != schedule.StateDone || run.Attempts != 1 || run.PointsWritten != 24 {
		t.Errorf("recorded run = %+v", run)
	}
}

func TestOnce_Exhausted(t *testing.T) {
	clearEnv(t)
	failing := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	})
	influx := setServiceEnv(t, failing)
	t.Setenv("PRICECOLLECTOR_RETRIES", "1")

	_, err := execute(t, "once", "--env-file", missingEnvFile(t))
	if !errors.Is(err, errCycleFailed) {
		t.Fatalf("error = %v, want errCycleFailed", err)
	}
	if !strings.Contains(err.Error(), string(schedule.StateExhausted)) {
		t.Errorf("error %q does not report the exhausted state", err)
	}
	if influx.count() != 0 {
		t.Errorf("store received %d points after failed fetch", influx.count())
	}
}

func TestOnce_MissingCredential(t *testing.T) {
	clearEnv(t)
	setServiceEnv(t, pricesHandler())
	t.Setenv("PRICECOLLECTOR_PRICING_TOKEN", "")

	_, err := execute(t, "once", "--env-file", missingEnvFile(t))
	if !errors.Is(err, credentials.ErrNoCredential) {
		t.Fatalf("error = %v, want ErrNoCredential", err)
	}
}
