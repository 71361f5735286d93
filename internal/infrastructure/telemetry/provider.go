// Package telemetry exports the connector's traces, metrics and logs to an
// OTLP collector and offers the span and instrument helpers the services use.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const (
	defaultServiceVersion  = "1.0.0"
	defaultMetricsInterval = time.Minute
	shutdownTimeout        = 10 * time.Second
)

// Config selects the exported signals. All signals share one collector.
type Config struct {
	CollectorEndpoint string
	Insecure          bool
	ServiceName       string
	ServiceVersion    string

	TracesEnabled bool
	SamplingRatio float64

	MetricsEnabled  bool
	MetricsInterval time.Duration

	LogsEnabled bool

	Profiling ProfilerConfig
}

// Providers holds one provider per signal. Disabled signals hold a provider
// that falls back to the otel globals.
type Providers struct {
	Traces   *TracerProvider
	Metrics  *MeterProvider
	Logs     *LoggerProvider
	Profiler *Profiler
}

// Setup builds every provider. A failure shuts down the providers already built.
func Setup(ctx context.Context, cfg Config, log *zap.Logger) (*Providers, error) {
	p := &Providers{}
	var err error

	if p.Traces, err = NewTracerProvider(ctx, cfg, log); err != nil {
		return nil, err
	}
	if p.Metrics, err = NewMeterProvider(ctx, cfg, log); err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	if p.Logs, err = NewLoggerProvider(ctx, cfg, log); err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	if p.Profiler, err = NewProfiler(cfg.Profiling, cfg.ServiceName, log); err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	return p, nil
}

// Shutdown flushes and stops every built provider
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.Profiler != nil {
		errs = append(errs, p.Profiler.Stop())
	}
	if p.Logs != nil {
		errs = append(errs, p.Logs.Shutdown(ctx))
	}
	if p.Metrics != nil {
		errs = append(errs, p.Metrics.Shutdown(ctx))
	}
	if p.Traces != nil {
		errs = append(errs, p.Traces.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func shutdownSignal(ctx context.Context, log *zap.Logger, signal string, stop func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := stop(ctx); err != nil {
		log.Error("Telemetry shutdown failed", zap.String("signal", signal), zap.Error(err))
		return fmt.Errorf("shutdown %s provider: %w", signal, err)
	}
	log.Debug("Telemetry provider stopped", zap.String("signal", signal))
	return nil
}

// newResource describes the running connector on every exported signal
func newResource(cfg Config) (*resource.Resource, error) {
	version := cfg.ServiceVersion
	if version == "" {
		version = defaultServiceVersion
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}
	return res, nil
}
