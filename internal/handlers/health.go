package handlers

import (
	"net/http"
	"time"

	"github.com/pizza-hub/api/internal/domain"
	"github.com/pizza-hub/api/internal/services"
)

// HealthHandlers serves the liveness and readiness endpoints.
type HealthHandlers struct {
	system    services.SystemService
	startedAt time.Time
}

// NewHealthHandlers constructs health handlers. The system service may be nil,
// in which case readiness reports ok without probing dependencies.
func NewHealthHandlers(system services.SystemService) *HealthHandlers {
	return &HealthHandlers{
		system:    system,
		startedAt: time.Now(),
	}
}

type healthResponse struct {
	Status      string                 `json:"status"`
	Uptime      string                 `json:"uptime,omitempty"`
	Version     string                 `json:"version,omitempty"`
	Environment string                 `json:"environment,omitempty"`
	GeneratedAt string                 `json:"generatedAt,omitempty"`
	Checks      map[string]healthCheck `json:"checks,omitempty"`
}

type healthCheck struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latencyMs,omitempty"`
}

// Healthz reports process liveness only.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, healthResponse{
		Status: domain.HealthStatusOK,
		Uptime: time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// Readyz probes backing dependencies. A report with error status returns 503
// so load balancers rotate the instance out.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.system == nil {
		writeJSONResponse(w, http.StatusOK, healthResponse{Status: domain.HealthStatusOK})
		return
	}

	report, err := h.system.HealthReport(r.Context())
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, healthResponse{
			Status: domain.HealthStatusError,
		})
		return
	}

	status := http.StatusOK
	if report.Status == domain.HealthStatusError {
		status = http.StatusServiceUnavailable
	}

	payload := healthResponse{
		Status:      report.Status,
		Uptime:      time.Since(h.startedAt).Round(time.Second).String(),
		Version:     report.Version,
		Environment: report.Environment,
		GeneratedAt: formatTime(report.GeneratedAt),
	}
	if len(report.Checks) > 0 {
		payload.Checks = make(map[string]healthCheck, len(report.Checks))
		for name, check := range report.Checks {
			payload.Checks[name] = healthCheck{
				Status:    check.Status,
				Detail:    check.Detail,
				Error:     check.Error,
				LatencyMS: check.Latency.Milliseconds(),
			}
		}
	}
	writeJSONResponse(w, status, payload)
}
