package rest

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/config"
)

// Dependencies are the collaborators the router mounts
type Dependencies struct {
	Handlers *Handlers
	Health   *HealthService
	// Metrics receives the HTTP collectors and backs /metrics. Nil creates a
	// private registry with Go runtime collectors.
	Metrics *prometheus.Registry
	Logger  *zap.Logger
}

// NewRouter wires routes and middleware. API routes are rate limited per
// client; health checks and /metrics are not.
func NewRouter(cfg config.ServerConfig, deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := deps.Metrics
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	httpMetrics := newHTTPMetrics(reg)
	mux := http.NewServeMux()

	var apiMiddleware []Middleware
	if cfg.RateLimitRPS > 0 {
		apiMiddleware = append(apiMiddleware, rateLimitMiddleware(newInMemoryRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst), &errorHandler{logger: logger}))
	}

	route := func(pattern string, h http.HandlerFunc, extra ...Middleware) {
		mws := append([]Middleware{httpMetrics.middleware(pattern), tracingMiddleware(pattern)}, extra...)
		mux.Handle(pattern, chain(h, mws...))
	}

	if deps.Handlers != nil {
		route("POST /api/v1/advice/check", deps.Handlers.CheckAdvice, apiMiddleware...)
		route("POST /api/v1/advisors/verify", deps.Handlers.VerifyAdvisor, apiMiddleware...)
		route("POST /api/v1/companies/verify", deps.Handlers.VerifyCompany, apiMiddleware...)
		route("GET /api/v1/registry/search", deps.Handlers.SearchRegistry, apiMiddleware...)
	}

	if deps.Health != nil {
		mux.Handle("GET /health", deps.Health.LivenessHandler())
		mux.Handle("GET /health/ready", deps.Health.ReadinessHandler())
	}

	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	return chain(mux,
		requestIDMiddleware,
		loggingMiddleware(logger),
		recoveryMiddleware(logger),
	)
}
