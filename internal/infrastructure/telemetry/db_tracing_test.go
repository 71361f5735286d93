package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func setupSpanRecorder(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestNewDBTracingPlugin_Defaults(t *testing.T) {
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, nil)

	assert.Equal(t, "connector:db_tracing", plugin.Name())
	assert.Equal(t, 200*time.Millisecond, plugin.cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", plugin.cfg.DBSystem)
	assert.False(t, plugin.cfg.LogFullSQL)
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := setupTestDB(t)
	tp, recorder := setupSpanRecorder(t)

	require.NoError(t, db.Use(NewDBTracingPlugin(DBTracingConfig{TracerProvider: tp}, zap.NewNop())))
	require.NoError(t, db.Create(&tracedRow{Name: "a"}).Error)

	assert.Empty(t, recorder.Ended())
}

func TestDBTracingPlugin_Enabled(t *testing.T) {
	db := setupTestDB(t)
	tp, recorder := setupSpanRecorder(t)

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, DBSystem: "sqlite", TracerProvider: tp}, zap.NewNop())
	require.NoError(t, db.Use(plugin))

	ctx, parent := tp.Tracer("test").Start(context.Background(), "import-order")
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "a"}).Error)
	var rows []tracedRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	parent.End()

	assert.GreaterOrEqual(t, len(recorder.Ended()), 3)
	assert.Len(t, rows, 1)
}

func TestDBTracingPlugin_AfterQuery(t *testing.T) {
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: 200 * time.Millisecond}, zap.NewNop())

	t.Run("record not found is not an error", func(t *testing.T) {
		db := setupTestDB(t)
		tp, recorder := setupSpanRecorder(t)
		ctx, span := tp.Tracer("test").Start(context.Background(), "lookup")

		var row tracedRow
		tx := db.WithContext(ctx).First(&row, 99999)
		require.ErrorIs(t, tx.Error, gorm.ErrRecordNotFound)
		plugin.afterQuery(tx)
		span.End()

		ended := recorder.Ended()
		require.Len(t, ended, 1)
		assert.NotEqual(t, codes.Error, ended[0].Status().Code)
		table, ok := spanAttr(ended[0], "db.sql.table")
		require.True(t, ok)
		assert.Equal(t, "traced_rows", table.AsString())
	})

	t.Run("query errors mark the span", func(t *testing.T) {
		db := setupTestDB(t)
		tp, recorder := setupSpanRecorder(t)
		ctx, span := tp.Tracer("test").Start(context.Background(), "broken")

		tx := db.WithContext(ctx).Exec("SELECT * FROM missing_table")
		require.Error(t, tx.Error)
		plugin.afterQuery(tx)
		span.End()

		ended := recorder.Ended()
		require.Len(t, ended, 1)
		assert.Equal(t, codes.Error, ended[0].Status().Code)
	})

	t.Run("slow query is flagged", func(t *testing.T) {
		db := setupTestDB(t)
		tp, recorder := setupSpanRecorder(t)
		ctx, span := tp.Tracer("test").Start(context.Background(), "slow")

		var rows []tracedRow
		tx := db.WithContext(ctx).InstanceSet(queryStartedKey, time.Now().Add(-time.Second)).Find(&rows)
		require.NoError(t, tx.Error)
		plugin.afterQuery(tx)
		span.End()

		ended := recorder.Ended()
		require.Len(t, ended, 1)
		slow, ok := spanAttr(ended[0], "db.slow_query")
		require.True(t, ok)
		assert.True(t, slow.AsBool())
		require.NotEmpty(t, ended[0].Events())
		assert.Equal(t, "slow_query_warning", ended[0].Events()[0].Name)
	})

	t.Run("non-recording span is ignored", func(t *testing.T) {
		db := setupTestDB(t)
		var rows []tracedRow
		tx := db.WithContext(context.Background()).Find(&rows)
		assert.NotPanics(t, func() { plugin.afterQuery(tx) })
	})
}
