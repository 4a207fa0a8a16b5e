package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds all domain-specific metrics for the application
type Registry struct {
	meter metric.Meter

	// Analysis metrics
	AnalysisDuration metric.Float64Histogram
	AnalysisCounter  metric.Int64Counter
	AnalysisFailures metric.Int64Counter
	FinalScore       metric.Int64Histogram
	RedFlagCounter   metric.Int64Counter

	// ML client metrics
	MLRequestDuration metric.Float64Histogram
	MLFailureCounter  metric.Int64Counter

	// Registry metrics
	RegistryCacheHits   metric.Int64Counter
	RegistryCacheMisses metric.Int64Counter
	RegistryStoreErrors metric.Int64Counter

	// System metrics
	DatabaseConnectionPool metric.Int64ObservableGauge

	mu         sync.RWMutex
	dbPoolSize int64
}

// NewRegistry creates a new metrics registry from the global meter provider
func NewRegistry(meterName string) (*Registry, error) {
	return NewRegistryWithMeter(otel.Meter(meterName))
}

// NewRegistryWithMeter creates a registry on an explicit meter
func NewRegistryWithMeter(meter metric.Meter) (*Registry, error) {
	r := &Registry{meter: meter}

	if err := r.initAnalysisMetrics(); err != nil {
		return nil, err
	}

	if err := r.initMLMetrics(); err != nil {
		return nil, err
	}

	if err := r.initRegistryMetrics(); err != nil {
		return nil, err
	}

	if err := r.initSystemMetrics(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Registry) initAnalysisMetrics() error {
	var err error

	r.AnalysisDuration, err = r.meter.Float64Histogram(
		"advice.analysis.duration",
		metric.WithDescription("End-to-end duration of an advice analysis in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000),
	)
	if err != nil {
		return err
	}

	r.AnalysisCounter, err = r.meter.Int64Counter(
		"advice.analysis.total",
		metric.WithDescription("Completed analyses by risk level"),
	)
	if err != nil {
		return err
	}

	r.AnalysisFailures, err = r.meter.Int64Counter(
		"advice.analysis.failure_total",
		metric.WithDescription("Analyses aborted with an error, by error type"),
	)
	if err != nil {
		return err
	}

	r.FinalScore, err = r.meter.Int64Histogram(
		"advice.analysis.final_score",
		metric.WithDescription("Distribution of final risk scores"),
		metric.WithExplicitBucketBoundaries(20, 40, 70, 100),
	)
	if err != nil {
		return err
	}

	r.RedFlagCounter, err = r.meter.Int64Counter(
		"advice.rules.match_total",
		metric.WithDescription("Rule matches by category"),
	)

	return err
}

func (r *Registry) initMLMetrics() error {
	var err error

	r.MLRequestDuration, err = r.meter.Float64Histogram(
		"advice.ml.request_duration",
		metric.WithDescription("Duration of ML scoring requests in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000),
	)
	if err != nil {
		return err
	}

	r.MLFailureCounter, err = r.meter.Int64Counter(
		"advice.ml.failure_total",
		metric.WithDescription("ML scoring failures by error code"),
	)

	return err
}

func (r *Registry) initRegistryMetrics() error {
	var err error

	r.RegistryCacheHits, err = r.meter.Int64Counter(
		"advice.registry.cache_hit_total",
		metric.WithDescription("Registry lookups served from cache"),
	)
	if err != nil {
		return err
	}

	r.RegistryCacheMisses, err = r.meter.Int64Counter(
		"advice.registry.cache_miss_total",
		metric.WithDescription("Registry lookups that queried the store"),
	)
	if err != nil {
		return err
	}

	r.RegistryStoreErrors, err = r.meter.Int64Counter(
		"advice.registry.error_total",
		metric.WithDescription("Registry lookups that failed on cache or store access"),
	)

	return err
}

func (r *Registry) initSystemMetrics() error {
	var err error

	r.DatabaseConnectionPool, err = r.meter.Int64ObservableGauge(
		"advice.system.db_pool_connections",
		metric.WithDescription("Open connections in the registry database pool"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.dbPoolSize)
			return nil
		}),
	)

	return err
}

// SetDBPoolSize updates the observed database pool size
func (r *Registry) SetDBPoolSize(size int64) {
	r.mu.Lock()
	r.dbPoolSize = size
	r.mu.Unlock()
}

// RecordAnalysis records a completed analysis
func (r *Registry) RecordAnalysis(ctx context.Context, duration time.Duration, riskLevel string, score int, mlUsed bool) {
	attrs := metric.WithAttributes(
		attribute.String("risk_level", riskLevel),
		attribute.Bool("ml_used", mlUsed),
	)
	r.AnalysisDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	r.AnalysisCounter.Add(ctx, 1, attrs)
	r.FinalScore.Record(ctx, int64(score), metric.WithAttributes(attribute.String("risk_level", riskLevel)))
}

// RecordAnalysisFailure records an analysis aborted with an error
func (r *Registry) RecordAnalysisFailure(ctx context.Context, errorType string) {
	r.AnalysisFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("error_type", errorType)))
}

// RecordRedFlag records one rule match
func (r *Registry) RecordRedFlag(ctx context.Context, category, severity string) {
	r.RedFlagCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("severity", severity),
	))
}

// RecordMLRequest records an ML call and, when code is non-empty, a failure
func (r *Registry) RecordMLRequest(ctx context.Context, duration time.Duration, code string) {
	success := code == ""
	r.MLRequestDuration.Record(ctx, float64(duration.Microseconds())/1000,
		metric.WithAttributes(attribute.Bool("success", success)))
	if !success {
		r.MLFailureCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
	}
}

// RecordCacheLookup records a registry cache hit or miss
func (r *Registry) RecordCacheLookup(ctx context.Context, lookup string, hit bool) {
	attrs := metric.WithAttributes(attribute.String("lookup", lookup))
	if hit {
		r.RegistryCacheHits.Add(ctx, 1, attrs)
		return
	}
	r.RegistryCacheMisses.Add(ctx, 1, attrs)
}

// RecordRegistryError records a failed registry access
func (r *Registry) RecordRegistryError(ctx context.Context, lookup, stage string) {
	r.RegistryStoreErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("lookup", lookup),
		attribute.String("stage", stage),
	))
}
