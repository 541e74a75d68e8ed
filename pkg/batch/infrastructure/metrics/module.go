package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	config "github.com/kangwooc/spring-batch/pkg/batch/core/config"
	metrics "github.com/kangwooc/spring-batch/pkg/batch/core/metrics"
	logger "github.com/kangwooc/spring-batch/pkg/batch/support/util/logger"
)

// Metric recorder types.
const (
	RecorderPrometheus = "prometheus"
	RecorderOtel       = "otel"
	RecorderNone       = "none"
)

// DecorateRecorder replaces the no-op recorder with the backend named by
// infrastructure.metrics.type, behind an AsyncMetricRecorder drained on stop.
func DecorateRecorder(lc fx.Lifecycle, cfg *config.Config, base metrics.MetricRecorder) (metrics.MetricRecorder, error) {
	backend, err := newBackend(lc, cfg)
	if err != nil || backend == nil {
		return base, err
	}
	async := NewAsyncMetricRecorder(cfg.Batch.MetricsAsyncBufferSize, backend)
	// Appended after the backend hooks so it drains before they run.
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error {
		async.Close()
		return nil
	}})
	logger.Debugf("Metrics: %s recorder wrapped for asynchronous recording.", cfg.Infrastructure.Metrics.Type)
	return async, nil
}

// newBackend returns nil for the "none" type.
func newBackend(lc fx.Lifecycle, cfg *config.Config) (metrics.MetricRecorder, error) {
	mc := cfg.Infrastructure.Metrics
	switch mc.Type {
	case RecorderNone, "":
		return nil, nil
	case RecorderPrometheus:
		recorder := NewPrometheusRecorder(mc.Namespace)
		if mc.TextfilePath != "" {
			lc.Append(fx.Hook{OnStop: func(ctx context.Context) error {
				return writeTextfile(mc.TextfilePath, recorder.Registry())
			}})
		}
		return recorder, nil
	case RecorderOtel:
		provider, err := NewMeterProvider(context.Background(), mc, cfg.Infrastructure.Tracing.ServiceName)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: provider.Shutdown})
		return NewOtelRecorder(provider.Meter(TracerName), mc.Namespace)
	default:
		return nil, fmt.Errorf("unsupported metrics type: %s", mc.Type)
	}
}

func writeTextfile(path string, registry *prometheus.Registry) error {
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	logger.Infof("Metrics written to %s.", path)
	return nil
}

// DecorateTracer replaces the no-op tracer unless the tracing exporter is "none".
func DecorateTracer(lc fx.Lifecycle, cfg *config.Config, base metrics.Tracer) (metrics.Tracer, error) {
	tc := cfg.Infrastructure.Tracing
	if tc.Exporter == ExporterNone || tc.Exporter == "" {
		return base, nil
	}
	provider, err := NewTracerProvider(context.Background(), tc)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: provider.Shutdown})
	logger.Infof("Tracing: exporting spans via %s to %q.", tc.Exporter, tc.Endpoint)
	return NewOpenTelemetryTracer(provider), nil
}

// Module decorates the recorder and tracer of core/metrics.Module.
var Module = fx.Options(
	fx.Decorate(DecorateRecorder),
	fx.Decorate(DecorateTracer),
)
