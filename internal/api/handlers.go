package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/nerrad567/price-collector/internal/infrastructure/config"
	"github.com/nerrad567/price-collector/internal/schedule"
)

// healthCheckTimeout bounds each component check.
const healthCheckTimeout = 2 * time.Second

// Health status values.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// ConfigSummary is the part of the configuration safe to expose.
// Tokens and passwords are never included.
type ConfigSummary struct {
	PricingEndpoint string `json:"pricing_endpoint"`
	InfluxURL       string `json:"influxdb_url"`
	Database        string `json:"influxdb_database"`
	Measurement     string `json:"measurement"`
	WakeHour        int    `json:"wake_hour"`
	Retries         int    `json:"retries"`
	MQTTEnabled     bool   `json:"mqtt_enabled"`
	LedgerEnabled   bool   `json:"ledger_enabled"`
}

// SummarizeConfig extracts the non-secret settings from cfg.
func SummarizeConfig(cfg *config.Config) ConfigSummary {
	return ConfigSummary{
		PricingEndpoint: cfg.Pricing.Endpoint,
		InfluxURL:       cfg.InfluxDB.URL,
		Database:        cfg.InfluxDB.Database,
		Measurement:     cfg.InfluxDB.Measurement,
		WakeHour:        cfg.Schedule.WakeHour,
		Retries:         cfg.Schedule.Retries,
		MQTTEnabled:     cfg.MQTT.Enabled,
		LedgerEnabled:   cfg.Database.Enabled,
	}
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// StatusResponse is returned by GET /api/v1/status.
type StatusResponse struct {
	Version       string                  `json:"version"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	Scheduler     schedule.StatusSnapshot `json:"scheduler"`
	Config        ConfigSummary           `json:"config"`
	SchemaVersion string                  `json:"schema_version,omitempty"`
}

// RunsResponse is returned by GET /api/v1/runs.
type RunsResponse struct {
	Runs  []schedule.Cycle `json:"runs"`
	Count int              `json:"count"`
}

// handleHealth runs every registered component check. Any failure turns the
// overall status to degraded with a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{
		Status:  HealthOK,
		Version: s.version,
		Checks:  make(map[string]string, len(names)),
	}
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()

		if err != nil {
			resp.Status = HealthDegraded
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = HealthOK
	}

	status := http.StatusOK
	if resp.Status != HealthOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.status.Snapshot()

	resp := StatusResponse{
		Version:       s.version,
		UptimeSeconds: int64(time.Since(snap.StartedAt).Seconds()),
		Scheduler:     snap,
		Config:        s.summary,
	}

	if s.schema != nil {
		version, err := s.schema.SchemaVersion(r.Context())
		if err != nil {
			s.logger.Warn("reading schema version failed", "error", err)
		} else {
			resp.SchemaVersion = version
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, ErrCodeUnavailable, "run ledger is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.runs.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing collection runs failed", "error", err)
		writeInternalError(w, "failed to list collection runs")
		return
	}

	writeJSON(w, http.StatusOK, RunsResponse{Runs: runs, Count: len(runs)})
}
