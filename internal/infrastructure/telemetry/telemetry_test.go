package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level, env string
		enabled    zapcore.Level
		disabled   zapcore.Level
	}{
		{"debug", "development", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"warn", "production", zapcore.WarnLevel, zapcore.InfoLevel},
		{"error", "production", zapcore.ErrorLevel, zapcore.WarnLevel},
		{"bogus", "production", zapcore.InfoLevel, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.env, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.env)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled))
			assert.False(t, logger.Core().Enabled(tt.disabled))
		})
	}
}

func TestWithTrace(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	t.Run("no span leaves logger unchanged", func(t *testing.T) {
		WithTrace(context.Background(), logger).Info("plain")
		entry := logs.TakeAll()[0]
		assert.Empty(t, entry.ContextMap())
	})

	t.Run("active span adds ids", func(t *testing.T) {
		tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		WithTrace(ctx, logger).Info("traced")
		fields := logs.TakeAll()[0].ContextMap()
		assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
		assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
		assert.Equal(t, true, fields["sampled"])
	})
}

func TestInitializeOpenTelemetry_Disabled(t *testing.T) {
	p, err := InitializeOpenTelemetry(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	assert.NotNil(t, p.TracerProvider)
	assert.NotNil(t, p.MeterProvider)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordError(span, nil)
	RecordError(span, errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)
	assert.Len(t, ended[0].Events(), 1)
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.5).Description(), "TraceIDRatioBased")
}
