// Package logger builds the connector's zap loggers and carries request
// scoped fields through context, gin and gorm.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level, encoding and destination of the root logger
type Config struct {
	Level       string // debug, info, warn, error
	Format      string // json or console
	Output      string // stdout, stderr or a file path
	TimeFormat  string
	ServiceName string // attached as "service" when set
}

// ISO8601Millis is the default timestamp layout
const ISO8601Millis = "2006-01-02T15:04:05.000Z07:00"

// New builds a logger from cfg. Entries at error and above carry a stack
// trace. An output file that cannot be opened is an error.
func New(cfg Config) (*zap.Logger, error) {
	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(cfg.Level)),
		Encoding:         "json",
		EncoderConfig:    encoderConfig(cfg.TimeFormat),
		OutputPaths:      []string{outputPath(cfg.Output)},
		ErrorOutputPaths: []string{"stderr"},
	}
	if strings.EqualFold(cfg.Format, "console") {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if cfg.ServiceName != "" {
		l = l.With(zap.String("service", cfg.ServiceName))
	}
	return l, nil
}

// ParseLevel maps a level name to zap, defaulting to info
func ParseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl > zapcore.FatalLevel {
		return zapcore.InfoLevel
	}
	if lvl == zapcore.DPanicLevel || lvl == zapcore.PanicLevel {
		return zapcore.ErrorLevel
	}
	return lvl
}

func encoderConfig(timeFormat string) zapcore.EncoderConfig {
	if timeFormat == "" {
		timeFormat = ISO8601Millis
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.FunctionKey = zapcore.OmitKey
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(timeFormat)
	ec.EncodeDuration = zapcore.MillisDurationEncoder
	return ec
}

func outputPath(output string) string {
	if output == "" {
		return "stdout"
	}
	return output
}
