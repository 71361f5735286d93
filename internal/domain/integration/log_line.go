package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LogLevel is the severity of an import log line.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelError   LogLevel = "ERROR"
)

// LogLine is a structured import message recorded against a queue line,
// e.g. a SKU that matched no product.
type LogLine struct {
	ID          uuid.UUID
	InstanceID  uuid.UUID
	QueueLineID uuid.UUID
	Level       LogLevel
	Message     string
	SKU         string
	OrderRef    string
	CreatedAt   time.Time
}

// NewLogLine creates a log line for a queue line.
func NewLogLine(instanceID, queueLineID uuid.UUID, level LogLevel, message string) *LogLine {
	return &LogLine{
		ID:          uuid.New(),
		InstanceID:  instanceID,
		QueueLineID: queueLineID,
		Level:       level,
		Message:     message,
		CreatedAt:   time.Now(),
	}
}

// WithSKU sets the SKU the message refers to.
func (l *LogLine) WithSKU(sku string) *LogLine {
	l.SKU = sku
	return l
}

// WithOrderRef sets the storefront order reference the message refers to.
func (l *LogLine) WithOrderRef(ref string) *LogLine {
	l.OrderRef = ref
	return l
}

// LogLineRepository persists import log lines
type LogLineRepository interface {
	Save(ctx context.Context, line *LogLine) error
	FindByQueueLine(ctx context.Context, queueLineID uuid.UUID) ([]LogLine, error)
}
