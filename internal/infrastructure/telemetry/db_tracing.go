package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultSlowQuery = 200 * time.Millisecond
	defaultDBSystem  = "postgresql"

	// statement-scoped setting holding the start time of a query
	queryStartedKey = "telemetry:query_started"
)

// DBTracingConfig controls the gorm tracing plugin
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps query arguments on spans
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
	// TracerProvider replaces the otel global, mainly for tests
	TracerProvider trace.TracerProvider
}

// DBTracingPlugin installs otelgorm and annotates the caller's span with row
// counts, failures other than "record not found", and slow queries.
type DBTracingPlugin struct {
	cfg DBTracingConfig
	log *zap.Logger
}

var _ gorm.Plugin = (*DBTracingPlugin)(nil)

func NewDBTracingPlugin(cfg DBTracingConfig, log *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = defaultSlowQuery
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = defaultDBSystem
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DBTracingPlugin{cfg: cfg, log: log}
}

func (p *DBTracingPlugin) Name() string { return "connector:db_tracing" }

// Initialize is a no-op when tracing is disabled
func (p *DBTracingPlugin) Initialize(db *gorm.DB) error {
	if !p.cfg.Enabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.cfg.DBSystem)}
	if !p.cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if p.cfg.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(p.cfg.TracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.register(db); err != nil {
		return err
	}

	p.log.Info("Database tracing enabled",
		zap.String("db_system", p.cfg.DBSystem),
		zap.Bool("log_full_sql", p.cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", p.cfg.SlowQueryThresh),
	)
	return nil
}

// register brackets the main gorm callback of every operation
func (p *DBTracingPlugin) register(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("telemetry:start_create", markStart),
		cb.Create().After("gorm:create").Register("telemetry:finish_create", p.afterQuery),
		cb.Query().Before("gorm:query").Register("telemetry:start_query", markStart),
		cb.Query().After("gorm:query").Register("telemetry:finish_query", p.afterQuery),
		cb.Update().Before("gorm:update").Register("telemetry:start_update", markStart),
		cb.Update().After("gorm:update").Register("telemetry:finish_update", p.afterQuery),
		cb.Delete().Before("gorm:delete").Register("telemetry:start_delete", markStart),
		cb.Delete().After("gorm:delete").Register("telemetry:finish_delete", p.afterQuery),
		cb.Row().Before("gorm:row").Register("telemetry:start_row", markStart),
		cb.Row().After("gorm:row").Register("telemetry:finish_row", p.afterQuery),
		cb.Raw().Before("gorm:raw").Register("telemetry:start_raw", markStart),
		cb.Raw().After("gorm:raw").Register("telemetry:finish_raw", p.afterQuery),
	)
}

func markStart(db *gorm.DB) {
	db.InstanceSet(queryStartedKey, time.Now())
}

func (p *DBTracingPlugin) afterQuery(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{attribute.Int64("db.rows_affected", max(db.Statement.RowsAffected, 0))}
	if table := db.Statement.Table; table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", table))
	}
	span.SetAttributes(attrs...)

	if err := db.Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	started, ok := db.InstanceGet(queryStartedKey)
	if !ok {
		return
	}
	if elapsed := time.Since(started.(time.Time)); elapsed > p.cfg.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.cfg.SlowQueryThresh.Milliseconds()),
		))
	}
}
