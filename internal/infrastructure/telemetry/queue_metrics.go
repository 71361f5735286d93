package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/erp/connector/internal/domain/integration"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// QueueMetrics records data queue activity: lines enqueued, lines processed with
// their outcome and duration, and periodically the backlog per kind and state.
type QueueMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	linesEnqueued  *Counter
	linesProcessed *Counter
	lineDuration   *Histogram
	linesByState   *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// LineCount is the number of queue lines of one kind sitting in one state.
type LineCount struct {
	Kind  integration.QueueKind
	State integration.QueueLineState
	Count int64
}

// QueueStatsProvider supplies the backlog snapshot for periodic collection.
type QueueStatsProvider interface {
	CountLinesByState(ctx context.Context) ([]LineCount, error)
}

// NewQueueMetrics creates the queue instruments on the given meter.
func NewQueueMetrics(meter metric.Meter, logger *zap.Logger) (*QueueMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	qm := &QueueMetrics{
		meter:    meter,
		logger:   logger,
		stopChan: make(chan struct{}),
	}

	var err error
	qm.linesEnqueued, err = NewCounter(meter,
		"connector_queue_lines_enqueued_total",
		"Total number of storefront records enqueued as queue lines",
		"{lines}",
	)
	if err != nil {
		return nil, err
	}

	qm.linesProcessed, err = NewCounter(meter,
		"connector_queue_lines_processed_total",
		"Total number of queue lines processed, by outcome",
		"{lines}",
	)
	if err != nil {
		return nil, err
	}

	qm.lineDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "connector_queue_line_duration_seconds",
		Description: "Time spent processing a single queue line",
		Unit:        "s",
		Boundaries:  LineDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	qm.linesByState, err = NewGauge(meter,
		"connector_queue_lines",
		"Current number of queue lines per kind and state",
		"{lines}",
	)
	if err != nil {
		return nil, err
	}

	return qm, nil
}

// LinesEnqueued counts freshly created queue lines.
func (qm *QueueMetrics) LinesEnqueued(ctx context.Context, kind integration.QueueKind, count int) {
	qm.linesEnqueued.Add(ctx, int64(count), AttrQueueKind.String(string(kind)))
}

// LineProcessed counts one processed line and records how long it took.
func (qm *QueueMetrics) LineProcessed(ctx context.Context, kind integration.QueueKind, outcome string, elapsed time.Duration) {
	qm.linesProcessed.Inc(ctx,
		AttrQueueKind.String(string(kind)),
		AttrLineOutcome.String(outcome),
	)
	qm.lineDuration.RecordDuration(ctx, elapsed,
		AttrQueueKind.String(string(kind)),
		AttrLineOutcome.String(outcome),
	)
}

// StartPeriodicCollection samples the backlog every interval until Stop or ctx is done.
// It is non-blocking and only starts once.
func (qm *QueueMetrics) StartPeriodicCollection(ctx context.Context, provider QueueStatsProvider, interval time.Duration) {
	qm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		go qm.runPeriodicCollection(ctx, provider, interval)
	})
}

func (qm *QueueMetrics) runPeriodicCollection(ctx context.Context, provider QueueStatsProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	qm.Collect(ctx, provider)

	for {
		select {
		case <-qm.stopChan:
			qm.logger.Info("Stopping periodic queue metrics collection")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			qm.Collect(ctx, provider)
		}
	}
}

// Collect records one backlog snapshot.
func (qm *QueueMetrics) Collect(ctx context.Context, provider QueueStatsProvider) {
	if provider == nil {
		return
	}
	counts, err := provider.CountLinesByState(ctx)
	if err != nil {
		qm.logger.Warn("Failed to collect queue line counts", zap.Error(err))
		return
	}
	for _, c := range counts {
		qm.linesByState.Record(ctx, c.Count,
			AttrQueueKind.String(string(c.Kind)),
			AttrLineState.String(string(c.State)),
		)
	}
}

// Stop stops the periodic collection.
func (qm *QueueMetrics) Stop() {
	qm.stopOnce.Do(func() {
		close(qm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewQueueMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
