package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/infrastructure/persistence"
	"github.com/erp/connector/internal/infrastructure/persistence/models"
	"github.com/erp/connector/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubStatsProvider struct {
	counts []telemetry.LineCount
	err    error
	calls  int
}

func (p *stubStatsProvider) CountLinesByState(context.Context) ([]telemetry.LineCount, error) {
	p.calls++
	return p.counts, p.err
}

func TestNewQueueMetrics_NilMeter(t *testing.T) {
	qm, err := telemetry.NewQueueMetrics(nil, zap.NewNop())

	require.Error(t, err)
	assert.Nil(t, qm)
	assert.Equal(t, "NewQueueMetrics: meter cannot be nil", err.Error())
}

func TestQueueMetrics_RecordsLineActivity(t *testing.T) {
	meter, reader := newManualMeter(t)
	ctx := context.Background()

	qm, err := telemetry.NewQueueMetrics(meter, nil)
	require.NoError(t, err)

	qm.LinesEnqueued(ctx, integration.QueueKindOrder, 3)
	qm.LineProcessed(ctx, integration.QueueKindOrder, "done", 20*time.Millisecond)
	qm.LineProcessed(ctx, integration.QueueKindOrder, "failed", 40*time.Millisecond)
	qm.LineProcessed(ctx, integration.QueueKindOrder, "done", 10*time.Millisecond)

	data := collectMetrics(t, reader)

	enqueued, ok := data["connector_queue_lines_enqueued_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, enqueued.DataPoints, 1)
	assert.Equal(t, int64(3), enqueued.DataPoints[0].Value)

	processed, ok := data["connector_queue_lines_processed_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	byOutcome := map[string]int64{}
	for _, dp := range processed.DataPoints {
		outcome, _ := dp.Attributes.Value(telemetry.AttrLineOutcome)
		byOutcome[outcome.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"done": 2, "failed": 1}, byOutcome)

	duration, ok := data["connector_queue_line_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var total uint64
	for _, dp := range duration.DataPoints {
		total += dp.Count
	}
	assert.Equal(t, uint64(3), total)
}

func TestQueueMetrics_Collect(t *testing.T) {
	ctx := context.Background()

	t.Run("records backlog per kind and state", func(t *testing.T) {
		meter, reader := newManualMeter(t)
		qm, err := telemetry.NewQueueMetrics(meter, zap.NewNop())
		require.NoError(t, err)

		qm.Collect(ctx, &stubStatsProvider{counts: []telemetry.LineCount{
			{Kind: integration.QueueKindOrder, State: integration.QueueLineStateDraft, Count: 4},
			{Kind: integration.QueueKindCustomer, State: integration.QueueLineStateFailed, Count: 1},
		}})

		gauge, ok := collectMetrics(t, reader)["connector_queue_lines"].(metricdata.Gauge[int64])
		require.True(t, ok)
		assert.Len(t, gauge.DataPoints, 2)
	})

	t.Run("provider error is tolerated", func(t *testing.T) {
		qm, err := telemetry.NewQueueMetrics(noop.NewMeterProvider().Meter("test"), zap.NewNop())
		require.NoError(t, err)

		provider := &stubStatsProvider{err: errors.New("db down")}
		qm.Collect(ctx, provider)
		qm.Collect(ctx, nil)

		assert.Equal(t, 1, provider.calls)
	})
}

func TestQueueMetrics_PeriodicCollection(t *testing.T) {
	qm, err := telemetry.NewQueueMetrics(noop.NewMeterProvider().Meter("test"), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &countingProvider{collected: make(chan struct{}, 8)}
	qm.StartPeriodicCollection(ctx, provider, 10*time.Millisecond)
	qm.StartPeriodicCollection(ctx, provider, 10*time.Millisecond)

	for range 2 {
		select {
		case <-provider.collected:
		case <-time.After(2 * time.Second):
			t.Fatal("collection did not run")
		}
	}

	qm.Stop()
	qm.Stop()
}

type countingProvider struct {
	collected chan struct{}
}

func (p *countingProvider) CountLinesByState(context.Context) ([]telemetry.LineCount, error) {
	select {
	case p.collected <- struct{}{}:
	default:
	}
	return nil, nil
}

func TestGormQueueStatsProvider(t *testing.T) {
	ctx := context.Background()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	queue, err := integration.NewDataQueue(uuid.New(), integration.QueueKindOrder, "ORDER batch")
	require.NoError(t, err)
	a, err := integration.NewQueueLine(queue, "A", []byte(`{}`))
	require.NoError(t, err)
	b, err := integration.NewQueueLine(queue, "B", []byte(`{}`))
	require.NoError(t, err)
	c, err := integration.NewQueueLine(queue, "C", []byte(`{}`))
	require.NoError(t, err)
	c.MarkFailed(errors.New("boom"))
	require.NoError(t, persistence.NewGormQueueRepository(db).SaveQueueWithLines(ctx, queue, []*integration.QueueLine{a, b, c}))

	counts, err := telemetry.NewGormQueueStatsProvider(db).CountLinesByState(ctx)

	require.NoError(t, err)
	assert.ElementsMatch(t, []telemetry.LineCount{
		{Kind: integration.QueueKindOrder, State: integration.QueueLineStateDraft, Count: 2},
		{Kind: integration.QueueKindOrder, State: integration.QueueLineStateFailed, Count: 1},
	}, counts)
}
