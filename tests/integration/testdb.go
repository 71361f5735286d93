//go:build integration

// Package integration runs the connector against real PostgreSQL and Redis
// containers started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/erp/connector/internal/infrastructure/cache"
	"github.com/erp/connector/internal/infrastructure/migration"
	"github.com/erp/connector/migrations"
)

const (
	postgresImage = "postgres:16-alpine"
	redisImage    = "redis:7-alpine"
)

// TestDB is a migrated PostgreSQL database in its own container
type TestDB struct {
	DB    *gorm.DB
	SqlDB *sql.DB
}

// NewTestDB starts PostgreSQL, applies the embedded migrations and registers
// cleanup of both the pool and the container.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	pg, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase("connector_test"),
		tcpostgres.WithUsername("connector"),
		tcpostgres.WithPassword("connector"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err, "start postgres")
	terminateOnCleanup(t, pg)

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormLogLevel())})
	require.NoError(t, err, "open gorm")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up(), "apply migrations")

	return &TestDB{DB: db, SqlDB: sqlDB}
}

// TEST_DB_DEBUG=1 echoes every statement
func gormLogLevel() gormlogger.LogLevel {
	if os.Getenv("TEST_DB_DEBUG") != "" {
		return gormlogger.Info
	}
	return gormlogger.Silent
}

// NewTestRedis starts Redis and returns a connected client
func NewTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	rc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        redisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "start redis")
	terminateOnCleanup(t, rc)

	addr, err := rc.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := cache.NewRedisClient(ctx, addr, "", 0)
	require.NoError(t, err, "connect redis")
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func terminateOnCleanup(t *testing.T, c testcontainers.Container) {
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("terminate %s: %v", c.GetContainerID(), err)
		}
	})
}
