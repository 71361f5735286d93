package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowThreshold = 200 * time.Millisecond

// GormLogger routes gorm statements to zap. Failed statements log at error,
// slow ones at warn and the rest at debug when the level is Info.
// gorm.ErrRecordNotFound is not a failure: repositories map it to NOT_FOUND.
type GormLogger struct {
	log           *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	fullSQL       bool
}

type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is slow; 0 disables it
func WithSlowThreshold(d time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowThreshold = d }
}

// WithFullSQL adds the statement text to every entry, not only to failures
func WithFullSQL(enabled bool) GormLoggerOption {
	return func(l *GormLogger) { l.fullSQL = enabled }
}

func NewGormLogger(log *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{log: log.Named("gorm"), level: level, slowThreshold: defaultSlowThreshold}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.log.Sugar().Infof(msg, args...)
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.log.Sugar().Warnf(msg, args...)
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.log.Sugar().Errorf(msg, args...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	failed := err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound)
	elapsed := time.Since(begin)
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold

	var msg string
	var write func(string, ...zap.Field)
	switch {
	case failed && l.level >= gormlogger.Error:
		msg, write = "SQL failed", l.log.Error
	case !failed && slow && l.level >= gormlogger.Warn:
		msg, write = "Slow SQL", l.log.Warn
	case !failed && l.level >= gormlogger.Info:
		msg, write = "SQL", l.log.Debug
	default:
		return
	}

	sql, rows := fc()
	fields := append(contextFields(ctx),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
	)
	if slow {
		fields = append(fields, zap.Duration("slow_threshold", l.slowThreshold))
	}
	if failed || l.fullSQL {
		fields = append(fields, zap.String("sql", sql))
	}
	if failed {
		fields = append(fields, zap.Error(err))
	}
	write(msg, fields...)
}

// contextFields returns the request, instance and trace identifiers found in ctx
func contextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	for key, value := range map[string]string{
		"request_id":  RequestID(ctx),
		"instance_id": InstanceID(ctx),
		"trace_id":    TraceID(ctx),
	} {
		if value != "" {
			fields = append(fields, zap.String(key, value))
		}
	}
	return fields
}

// MapGormLogLevel maps the application log level to gorm's: debug and info
// trace every statement, anything unknown keeps warnings and errors.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	}
	return gormlogger.Warn
}
