package rest

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/telemetry"
)

// HealthStatus follows the health+json draft
type HealthStatus string

const (
	HealthStatusPass HealthStatus = "pass"
	HealthStatusWarn HealthStatus = "warn"
	HealthStatusFail HealthStatus = "fail"
)

// HealthChecker probes one dependency. A failing optional checker degrades
// readiness to warn instead of fail.
type HealthChecker struct {
	Name     string
	Optional bool
	Check    func(ctx context.Context) error
}

// HealthCheckResult is the outcome of one checker
type HealthCheckResult struct {
	Status       HealthStatus `json:"status"`
	Error        string       `json:"error,omitempty"`
	ResponseTime string       `json:"responseTime"`
}

// HealthResponse is the body of the health endpoints
type HealthResponse struct {
	Status  HealthStatus                 `json:"status"`
	Version string                       `json:"version,omitempty"`
	Uptime  string                       `json:"uptime"`
	Checks  map[string]HealthCheckResult `json:"checks,omitempty"`
}

// HealthService answers liveness and readiness probes
type HealthService struct {
	checkers  []HealthChecker
	version   string
	timeout   time.Duration
	startTime time.Time
	logger    *zap.Logger
}

// NewHealthService creates a health service over checkers
func NewHealthService(version string, timeout time.Duration, logger *zap.Logger, checkers ...HealthChecker) *HealthService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sorted := append([]HealthChecker(nil), checkers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	return &HealthService{
		checkers:  sorted,
		version:   version,
		timeout:   timeout,
		startTime: time.Now(),
		logger:    logger,
	}
}

// LivenessHandler reports that the process is serving
func (h *HealthService) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.write(w, http.StatusOK, HealthResponse{
			Status:  HealthStatusPass,
			Version: h.version,
			Uptime:  time.Since(h.startTime).Round(time.Second).String(),
		})
	}
}

// ReadinessHandler runs every checker. Any required failure makes the
// service unready.
func (h *HealthService) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := telemetry.StartServiceSpan(r.Context(), "health", "readiness")
		defer span.End()

		checks := h.runChecks(ctx)

		status := HealthStatusPass
		statusCode := http.StatusOK
		for _, c := range h.checkers {
			result := checks[c.Name]
			if result.Status == HealthStatusFail && !c.Optional {
				status = HealthStatusFail
				statusCode = http.StatusServiceUnavailable
				break
			}
			if result.Status != HealthStatusPass {
				status = HealthStatusWarn
			}
		}

		span.SetAttributes(
			attribute.String("health.status", string(status)),
			attribute.Int("health.checks_count", len(checks)),
		)

		h.write(w, statusCode, HealthResponse{
			Status:  status,
			Version: h.version,
			Uptime:  time.Since(h.startTime).Round(time.Second).String(),
			Checks:  checks,
		})
	}
}

// runChecks runs all checkers concurrently under the probe timeout
func (h *HealthService) runChecks(ctx context.Context) map[string]HealthCheckResult {
	results := make(map[string]HealthCheckResult, len(h.checkers))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, checker := range h.checkers {
		wg.Add(1)
		go func(c HealthChecker) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
			defer cancel()

			start := time.Now()
			err := c.Check(checkCtx)
			result := HealthCheckResult{
				Status:       HealthStatusPass,
				ResponseTime: time.Since(start).String(),
			}
			if err != nil {
				result.Status = HealthStatusFail
				result.Error = err.Error()
				h.logger.Warn("health check failed",
					zap.String("check", c.Name),
					zap.Bool("optional", c.Optional),
					zap.Error(err))
			}

			mu.Lock()
			results[c.Name] = result
			mu.Unlock()
		}(checker)
	}

	wg.Wait()
	return results
}

func (h *HealthService) write(w http.ResponseWriter, status int, body HealthResponse) {
	w.Header().Set("Cache-Control", "no-cache")
	writeJSONContentType(w, "application/health+json", status, body)
}
