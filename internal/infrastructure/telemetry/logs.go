package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerProvider ships zap entries to the collector as OTLP log records
type LoggerProvider struct {
	sdk   *sdklog.LoggerProvider
	scope string
	log   *zap.Logger
}

// NewLoggerProvider installs a batching OTLP logger as the otel global
func NewLoggerProvider(ctx context.Context, cfg Config, log *zap.Logger) (*LoggerProvider, error) {
	if !cfg.LogsEnabled {
		log.Info("Log export disabled")
		return &LoggerProvider{log: log}, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create log exporter: %w", err)
	}

	lp, err := newLoggerProvider(cfg, sdklog.NewBatchProcessor(exporter), log)
	if err != nil {
		return nil, err
	}
	global.SetLoggerProvider(lp.sdk)

	log.Info("Log export enabled", zap.String("collector", cfg.CollectorEndpoint))
	return lp, nil
}

func newLoggerProvider(cfg Config, processor sdklog.Processor, log *zap.Logger) (*LoggerProvider, error) {
	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}
	return &LoggerProvider{
		sdk:   sdklog.NewLoggerProvider(sdklog.WithResource(res), sdklog.WithProcessor(processor)),
		scope: cfg.ServiceName,
		log:   log,
	}, nil
}

func (lp *LoggerProvider) IsEnabled() bool { return lp != nil && lp.sdk != nil }

// ForceFlush exports the records still held by the batch processor
func (lp *LoggerProvider) ForceFlush(ctx context.Context) error {
	if !lp.IsEnabled() {
		return nil
	}
	return lp.sdk.ForceFlush(ctx)
}

func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if !lp.IsEnabled() {
		return nil
	}
	return shutdownSignal(ctx, lp.log, "logs", lp.sdk.Shutdown)
}

// BridgeLogger tees base into the provider for entries at or above level.
// base is returned unchanged when the provider is disabled.
func BridgeLogger(base *zap.Logger, lp *LoggerProvider, level zapcore.Level) *zap.Logger {
	if !lp.IsEnabled() {
		return base
	}
	bridge := &minLevelCore{
		Core: otelzap.NewCore(lp.scope, otelzap.WithLoggerProvider(lp.sdk)),
		min:  level,
	}
	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, bridge)
	}))
}

// minLevelCore drops entries below min before they reach the wrapped core
type minLevelCore struct {
	zapcore.Core
	min zapcore.Level
}

func (c *minLevelCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.min && c.Core.Enabled(lvl)
}

func (c *minLevelCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if entry.Level < c.min {
		return ce
	}
	return c.Core.Check(entry, ce)
}

func (c *minLevelCore) With(fields []zapcore.Field) zapcore.Core {
	return &minLevelCore{Core: c.Core.With(fields), min: c.min}
}
